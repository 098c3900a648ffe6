// controllers/member_controller.go
package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/ridelink_backend/middleware"
	"github.com/HSouheill/ridelink_backend/models"
	"github.com/HSouheill/ridelink_backend/services"
)

// MemberController exposes a member's own compensation data: point
// statistics, rank status, reward claims, and wallet history.
type MemberController struct {
	members services.MemberStore
	ledger  *services.PointLedger
	ranks   *services.RankEngine
}

func NewMemberController(members services.MemberStore, ledger *services.PointLedger, ranks *services.RankEngine) *MemberController {
	return &MemberController{members: members, ledger: ledger, ranks: ranks}
}

func (mc *MemberController) callerID(c echo.Context) (primitive.ObjectID, error) {
	id := middleware.GetMemberIDFromToken(c)
	if id == "" {
		id = c.QueryParam("memberId")
	}
	if id == "" {
		return primitive.NilObjectID, errors.New("member ID not found")
	}
	return primitive.ObjectIDFromHex(id)
}

// GetPoints handles GET /api/members/points. Runs the lazy monthly reset
// before reading, so a stale monthly counter is never reported.
func (mc *MemberController) GetPoints(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	memberID, err := mc.callerID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid member ID",
		})
	}

	stats, err := mc.ledger.Stats(ctx, memberID)
	if err != nil {
		if errors.Is(err, models.ErrMemberNotFound) {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Member not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch point statistics",
			Data:    err.Error(),
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Point statistics fetched successfully",
		Data:    stats,
	})
}

// GetRank handles GET /api/members/rank
func (mc *MemberController) GetRank(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	memberID, err := mc.callerID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid member ID",
		})
	}

	member, err := mc.members.GetMember(ctx, memberID)
	if err != nil {
		if errors.Is(err, models.ErrMemberNotFound) {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Member not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
			Data:    err.Error(),
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Rank fetched successfully",
		Data: map[string]interface{}{
			"rank":        member.RankName(),
			"reward":      member.Rank.Reward,
			"claimed":     member.Rank.Claimed,
			"rankHistory": member.RankHistory,
		},
	})
}

// ClaimRankReward handles POST /api/members/rank/claim. Pays the current
// rank's reward into the wallet, once.
func (mc *MemberController) ClaimRankReward(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	memberID, err := mc.callerID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid member ID",
		})
	}

	txn, err := mc.ranks.ClaimReward(ctx, memberID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrMemberNotFound):
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Member not found",
			})
		case errors.Is(err, models.ErrNoRankAchieved):
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "No rank achieved yet",
			})
		case errors.Is(err, models.ErrRewardAlreadyClaimed):
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "Rank reward already claimed",
			})
		default:
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to claim rank reward",
				Data:    err.Error(),
			})
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Rank reward claimed successfully",
		Data:    txn,
	})
}

// GetWallet handles GET /api/members/wallet. Returns the balance and the
// most recent transactions.
func (mc *MemberController) GetWallet(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	memberID, err := mc.callerID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid member ID",
		})
	}

	member, err := mc.members.GetMember(ctx, memberID)
	if err != nil {
		if errors.Is(err, models.ErrMemberNotFound) {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Member not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
			Data:    err.Error(),
		})
	}

	txns, err := mc.members.WalletTransactions(ctx, memberID, 50)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch wallet transactions",
			Data:    err.Error(),
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Wallet fetched successfully",
		Data: map[string]interface{}{
			"balance":      member.WalletBalance,
			"transactions": txns,
		},
	})
}
