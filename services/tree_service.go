// services/tree_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/ridelink_backend/models"
)

// maxChainDepth bounds every upward walk. Sponsor chains in practice are a
// few levels deep; the guard only matters if stored edges are corrupt.
const maxChainDepth = 1000

// TreeService maintains the referral tree: sponsor links, direct-child
// lists and the cached per-level descendant sets. Every traversal carries a
// visited set so an accidentally cyclic chain terminates instead of looping.
// The service moves no money and no points.
type TreeService struct {
	members MemberStore
}

func NewTreeService(members MemberStore) *TreeService {
	return &TreeService{members: members}
}

// Attach links member under the sponsor resolved from identifier (id hex,
// sponsor code, or handle). Fails with models.ErrSponsorNotFound when
// nothing resolves and models.ErrCircularReference when the sponsor is the
// member itself or one of its descendants. A member already attached
// elsewhere is moved: the old chain is recomputed along with the new one.
func (s *TreeService) Attach(ctx context.Context, memberID primitive.ObjectID, sponsorIdentifier string) error {
	member, err := s.members.GetMember(ctx, memberID)
	if err != nil {
		return err
	}

	sponsor, err := s.members.FindByIdentifier(ctx, sponsorIdentifier)
	if err != nil {
		if errors.Is(err, models.ErrMemberNotFound) {
			return fmt.Errorf("%w: %q", models.ErrSponsorNotFound, sponsorIdentifier)
		}
		return err
	}

	if sponsor.ID == memberID {
		return fmt.Errorf("%w: cannot sponsor yourself", models.ErrCircularReference)
	}
	descendants, err := s.DescendantSet(ctx, memberID)
	if err != nil {
		return err
	}
	if descendants[sponsor.ID] {
		return fmt.Errorf("%w: %s is a descendant of %s", models.ErrCircularReference, sponsor.ID.Hex(), memberID.Hex())
	}

	var oldSponsorID *primitive.ObjectID
	if member.SponsorID != nil && *member.SponsorID != sponsor.ID {
		oldSponsorID = member.SponsorID
		if err := s.members.RemoveDirectChild(ctx, *oldSponsorID, memberID); err != nil {
			return err
		}
	}

	if err := s.members.SetSponsor(ctx, memberID, &sponsor.ID, sponsor.SponsorCode); err != nil {
		return err
	}
	if err := s.members.AddDirectChild(ctx, sponsor.ID, memberID); err != nil {
		return err
	}

	// The member's own levels are unchanged by re-parenting, but every
	// ancestor's descendant sets are, on both the old and new chains.
	if err := s.RecomputeAncestorChain(ctx, memberID); err != nil {
		return err
	}
	if oldSponsorID != nil {
		if err := s.RecomputeAncestorChain(ctx, *oldSponsorID); err != nil {
			return err
		}
	}
	return nil
}

// Detach removes the member from its current sponsor's child list without
// touching any historical ledger entries. Detaching an orphan is a no-op.
func (s *TreeService) Detach(ctx context.Context, memberID primitive.ObjectID) error {
	member, err := s.members.GetMember(ctx, memberID)
	if err != nil {
		return err
	}
	if member.SponsorID == nil {
		return nil
	}

	oldSponsorID := *member.SponsorID
	if err := s.members.RemoveDirectChild(ctx, oldSponsorID, memberID); err != nil {
		return err
	}
	if err := s.members.SetSponsor(ctx, memberID, nil, ""); err != nil {
		return err
	}
	return s.RecomputeAncestorChain(ctx, oldSponsorID)
}

// RecomputeLevels rebuilds the member's cached level sets with a breadth
// first expansion over direct children. The visited set is seeded with the
// member's own id, so a node already placed at a shallower level (or a
// cycle pointing back at the root) is never counted again. Expansion runs
// until no new nodes are found; only the first four levels are consumed by
// money and point distribution.
func (s *TreeService) RecomputeLevels(ctx context.Context, memberID primitive.ObjectID) ([][]primitive.ObjectID, error) {
	member, err := s.members.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	visited := map[primitive.ObjectID]bool{memberID: true}
	var levels [][]primitive.ObjectID

	frontier := uniqueUnvisited(member.DirectChildren, visited)
	for len(frontier) > 0 {
		level := make([]primitive.ObjectID, len(frontier))
		copy(level, frontier)
		levels = append(levels, level)

		nodes, err := s.members.GetMembers(ctx, frontier)
		if err != nil {
			return nil, err
		}
		var next []primitive.ObjectID
		for _, id := range frontier {
			node, ok := nodes[id]
			if !ok {
				continue
			}
			next = append(next, uniqueUnvisited(node.DirectChildren, visited)...)
		}
		frontier = next
	}

	if err := s.members.SaveLevelSets(ctx, memberID, levels); err != nil {
		return nil, err
	}
	return levels, nil
}

// RecomputeAncestorChain recomputes the member's levels and then every
// ancestor's, walking the sponsor chain to the root. The walk carries its
// own visited set so a corrupt cyclic chain terminates.
func (s *TreeService) RecomputeAncestorChain(ctx context.Context, memberID primitive.ObjectID) error {
	seen := make(map[primitive.ObjectID]bool)
	current := memberID
	for depth := 0; depth < maxChainDepth; depth++ {
		if seen[current] {
			return nil
		}
		seen[current] = true

		if _, err := s.RecomputeLevels(ctx, current); err != nil {
			if errors.Is(err, models.ErrMemberNotFound) {
				return nil
			}
			return err
		}
		member, err := s.members.GetMember(ctx, current)
		if err != nil {
			return err
		}
		if member.SponsorID == nil {
			return nil
		}
		current = *member.SponsorID
	}
	return nil
}

// DescendantSet returns every member reachable through direct-child edges
// from memberID, excluding memberID itself.
func (s *TreeService) DescendantSet(ctx context.Context, memberID primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	member, err := s.members.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	visited := map[primitive.ObjectID]bool{memberID: true}
	result := make(map[primitive.ObjectID]bool)
	frontier := uniqueUnvisited(member.DirectChildren, visited)
	for len(frontier) > 0 {
		for _, id := range frontier {
			result[id] = true
		}
		nodes, err := s.members.GetMembers(ctx, frontier)
		if err != nil {
			return nil, err
		}
		var next []primitive.ObjectID
		for _, id := range frontier {
			node, ok := nodes[id]
			if !ok {
				continue
			}
			next = append(next, uniqueUnvisited(node.DirectChildren, visited)...)
		}
		frontier = next
	}
	return result, nil
}

// SponsorChain returns up to maxLevels ancestors above the member, nearest
// first (index 0 = direct sponsor). The chain stops early when a member has
// no sponsor, the sponsor record is gone, or an already-seen id reappears.
func (s *TreeService) SponsorChain(ctx context.Context, memberID primitive.ObjectID, maxLevels int) ([]*models.Member, error) {
	member, err := s.members.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	seen := map[primitive.ObjectID]bool{memberID: true}
	var chain []*models.Member
	current := member
	for len(chain) < maxLevels {
		if current.SponsorID == nil {
			break
		}
		next := *current.SponsorID
		if seen[next] {
			break
		}
		sponsor, err := s.members.GetMember(ctx, next)
		if err != nil {
			if errors.Is(err, models.ErrMemberNotFound) {
				break
			}
			return nil, err
		}
		seen[next] = true
		chain = append(chain, sponsor)
		current = sponsor
	}
	return chain, nil
}

// uniqueUnvisited filters ids through the visited set, marking and keeping
// each new id once.
func uniqueUnvisited(ids []primitive.ObjectID, visited map[primitive.ObjectID]bool) []primitive.ObjectID {
	var out []primitive.ObjectID
	for _, id := range ids {
		if visited[id] {
			continue
		}
		visited[id] = true
		out = append(out, id)
	}
	return out
}
