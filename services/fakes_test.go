// services/fakes_test.go
package services

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/ridelink_backend/models"
)

// fakeMemberStore is an in-memory MemberStore for engine tests.
type fakeMemberStore struct {
	mu        sync.Mutex
	members   map[primitive.ObjectID]*models.Member
	wallet    map[primitive.ObjectID][]models.WalletTransaction
	points    map[primitive.ObjectID][]models.PointTransaction
	creditErr map[primitive.ObjectID]error
}

func newFakeMemberStore() *fakeMemberStore {
	return &fakeMemberStore{
		members:   make(map[primitive.ObjectID]*models.Member),
		wallet:    make(map[primitive.ObjectID][]models.WalletTransaction),
		points:    make(map[primitive.ObjectID][]models.PointTransaction),
		creditErr: make(map[primitive.ObjectID]error),
	}
}

func (f *fakeMemberStore) add(member *models.Member) primitive.ObjectID {
	f.mu.Lock()
	defer f.mu.Unlock()
	if member.ID.IsZero() {
		member.ID = primitive.NewObjectID()
	}
	f.members[member.ID] = member
	return member.ID
}

func copyMember(m *models.Member) *models.Member {
	out := *m
	out.DirectChildren = append([]primitive.ObjectID(nil), m.DirectChildren...)
	out.LevelSets = make([][]primitive.ObjectID, len(m.LevelSets))
	for i, level := range m.LevelSets {
		out.LevelSets[i] = append([]primitive.ObjectID(nil), level...)
	}
	out.RankHistory = append([]models.RankAchievement(nil), m.RankHistory...)
	return &out
}

func (f *fakeMemberStore) GetMember(_ context.Context, id primitive.ObjectID) (*models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[id]
	if !ok {
		return nil, models.ErrMemberNotFound
	}
	return copyMember(m), nil
}

func (f *fakeMemberStore) GetMembers(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[primitive.ObjectID]*models.Member, len(ids))
	for _, id := range ids {
		if m, ok := f.members[id]; ok {
			out[id] = copyMember(m)
		}
	}
	return out, nil
}

func (f *fakeMemberStore) FindByIdentifier(_ context.Context, identifier string) (*models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, err := primitive.ObjectIDFromHex(identifier); err == nil {
		if m, ok := f.members[id]; ok {
			return copyMember(m), nil
		}
	}
	for _, m := range f.members {
		if m.SponsorCode == identifier || (m.Handle != "" && m.Handle == identifier) {
			return copyMember(m), nil
		}
	}
	return nil, models.ErrMemberNotFound
}

func (f *fakeMemberStore) SetSponsor(_ context.Context, id primitive.ObjectID, sponsorID *primitive.ObjectID, sponsorCode string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[id]
	if !ok {
		return models.ErrMemberNotFound
	}
	m.SponsorID = sponsorID
	m.SponsorBy = sponsorCode
	return nil
}

func (f *fakeMemberStore) AddDirectChild(_ context.Context, sponsorID, childID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[sponsorID]
	if !ok {
		return models.ErrMemberNotFound
	}
	for _, id := range m.DirectChildren {
		if id == childID {
			return nil
		}
	}
	m.DirectChildren = append(m.DirectChildren, childID)
	return nil
}

func (f *fakeMemberStore) RemoveDirectChild(_ context.Context, sponsorID, childID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[sponsorID]
	if !ok {
		return models.ErrMemberNotFound
	}
	out := m.DirectChildren[:0]
	for _, id := range m.DirectChildren {
		if id != childID {
			out = append(out, id)
		}
	}
	m.DirectChildren = out
	return nil
}

func (f *fakeMemberStore) SaveLevelSets(_ context.Context, id primitive.ObjectID, levels [][]primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[id]
	if !ok {
		return models.ErrMemberNotFound
	}
	m.LevelSets = levels
	return nil
}

func (f *fakeMemberStore) CreditWallet(_ context.Context, id primitive.ObjectID, amount float64, txn models.WalletTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.creditErr[id]; err != nil {
		return err
	}
	m, ok := f.members[id]
	if !ok {
		return models.ErrMemberNotFound
	}
	m.WalletBalance += amount
	f.wallet[id] = append(f.wallet[id], txn)
	return nil
}

func (f *fakeMemberStore) WalletTransactions(_ context.Context, id primitive.ObjectID, limit int64) ([]models.WalletTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txns := f.wallet[id]
	if limit > 0 && int64(len(txns)) > limit {
		txns = txns[int64(len(txns))-limit:]
	}
	return append([]models.WalletTransaction(nil), txns...), nil
}

func (f *fakeMemberStore) AddPoints(_ context.Context, id primitive.ObjectID, pointType string, points float64, txn models.PointTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[id]
	if !ok {
		return models.ErrMemberNotFound
	}
	bucket := &m.Points.PGP
	if pointType == models.PointTypeTeam {
		bucket = &m.Points.TGP
	}
	bucket.Monthly += points
	bucket.Accumulated += points
	f.points[id] = append(f.points[id], txn)
	return nil
}

func (f *fakeMemberStore) ResetMonthlyPoints(_ context.Context, id primitive.ObjectID, pointType string, resetAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[id]
	if !ok {
		return models.ErrMemberNotFound
	}
	bucket := &m.Points.PGP
	if pointType == models.PointTypeTeam {
		bucket = &m.Points.TGP
	}
	bucket.Monthly = 0
	bucket.LastReset = resetAt
	return nil
}

func (f *fakeMemberStore) SetRank(_ context.Context, id primitive.ObjectID, status models.RankStatus, entry models.RankAchievement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[id]
	if !ok {
		return models.ErrMemberNotFound
	}
	m.Rank = status
	m.RankHistory = append(m.RankHistory, entry)
	return nil
}

func (f *fakeMemberStore) SetRewardClaimed(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[id]
	if !ok {
		return models.ErrMemberNotFound
	}
	m.Rank.Claimed = true
	if n := len(m.RankHistory); n > 0 {
		m.RankHistory[n-1].Claimed = true
	}
	return nil
}

func (f *fakeMemberStore) AllMemberIDs(_ context.Context) ([]primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]primitive.ObjectID, 0, len(f.members))
	for id := range f.members {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeMemberStore) CleanupDuplicateWalletTransactions(_ context.Context) (int64, error) {
	return 0, nil
}

type memberStoreState struct {
	members map[primitive.ObjectID]*models.Member
	wallet  map[primitive.ObjectID][]models.WalletTransaction
	points  map[primitive.ObjectID][]models.PointTransaction
}

func (f *fakeMemberStore) snapshot() memberStoreState {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := memberStoreState{
		members: make(map[primitive.ObjectID]*models.Member, len(f.members)),
		wallet:  make(map[primitive.ObjectID][]models.WalletTransaction, len(f.wallet)),
		points:  make(map[primitive.ObjectID][]models.PointTransaction, len(f.points)),
	}
	for id, m := range f.members {
		s.members[id] = copyMember(m)
	}
	for id, txns := range f.wallet {
		s.wallet[id] = append([]models.WalletTransaction(nil), txns...)
	}
	for id, txns := range f.points {
		s.points[id] = append([]models.PointTransaction(nil), txns...)
	}
	return s
}

func (f *fakeMemberStore) restore(s memberStoreState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members = s.members
	f.wallet = s.wallet
	f.points = s.points
}

// fakePlanStore is an in-memory PlanStore for engine tests. balanceErr
// injects a failure into IncrementPoolBalances.
type fakePlanStore struct {
	mu         sync.Mutex
	plan       *models.CompensationPlan
	dists      map[string]models.DistributionTransaction
	balances   map[string]float64
	total      float64
	balanceErr error
}

func newFakePlanStore(plan *models.CompensationPlan) *fakePlanStore {
	return &fakePlanStore{
		plan:     plan,
		dists:    make(map[string]models.DistributionTransaction),
		balances: make(map[string]float64),
	}
}

func (f *fakePlanStore) GetPlan(_ context.Context) (*models.CompensationPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.plan == nil {
		return nil, models.ErrPlanNotFound
	}
	return f.plan, nil
}

func (f *fakePlanStore) ReplacePlan(_ context.Context, plan *models.CompensationPlan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plan = plan
	return nil
}

func (f *fakePlanStore) AppendDistribution(_ context.Context, txn models.DistributionTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.dists[txn.RideID]; exists {
		return models.ErrDuplicateRide
	}
	f.dists[txn.RideID] = txn
	return nil
}

func (f *fakePlanStore) HasDistribution(_ context.Context, rideID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.dists[rideID]
	return ok, nil
}

func (f *fakePlanStore) IncrementPoolBalances(_ context.Context, allocs []models.PoolAllocation, gross float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balanceErr != nil {
		return f.balanceErr
	}
	for _, a := range allocs {
		f.balances[a.Pool+"/"+a.SubPool] += a.Amount
	}
	f.total += gross
	return nil
}

func (f *fakePlanStore) PoolBalances(_ context.Context) ([]models.PoolBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.PoolBalance, 0, len(f.balances))
	for key, balance := range f.balances {
		out = append(out, models.PoolBalance{Pool: key, Balance: balance})
	}
	return out, nil
}

type planStoreState struct {
	plan     *models.CompensationPlan
	dists    map[string]models.DistributionTransaction
	balances map[string]float64
	total    float64
}

func (f *fakePlanStore) snapshot() planStoreState {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := planStoreState{
		plan:     f.plan,
		dists:    make(map[string]models.DistributionTransaction, len(f.dists)),
		balances: make(map[string]float64, len(f.balances)),
		total:    f.total,
	}
	for id, txn := range f.dists {
		s.dists[id] = txn
	}
	for key, balance := range f.balances {
		s.balances[key] = balance
	}
	return s
}

func (f *fakePlanStore) restore(s planStoreState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plan = s.plan
	f.dists = s.dists
	f.balances = s.balances
	f.total = s.total
}

// fakeTxRunner gives the in-memory stores transactional semantics: a
// failed body restores both to their pre-transaction state.
func fakeTxRunner(members *fakeMemberStore, plans *fakePlanStore) TxRunner {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		ms, ps := members.snapshot(), plans.snapshot()
		if err := fn(ctx); err != nil {
			members.restore(ms)
			plans.restore(ps)
			return err
		}
		return nil
	}
}

// fakeNotifier records notification calls.
type fakeNotifier struct {
	mu       sync.Mutex
	credits  []models.WalletTransaction
	advances []models.RankAdvance
}

func (f *fakeNotifier) NotifyWalletCredit(_ primitive.ObjectID, txn models.WalletTransaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credits = append(f.credits, txn)
}

func (f *fakeNotifier) NotifyRankAdvance(_ primitive.ObjectID, advance models.RankAdvance) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advances = append(f.advances, advance)
}
