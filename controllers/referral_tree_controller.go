// controllers/referral_tree_controller.go
package controllers

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/HSouheill/ridelink_backend/config"
	"github.com/HSouheill/ridelink_backend/middleware"
	"github.com/HSouheill/ridelink_backend/models"
	"github.com/HSouheill/ridelink_backend/services"
	"github.com/HSouheill/ridelink_backend/utils"
)

// ReferralTreeController exposes sponsor attach/detach and tree views.
type ReferralTreeController struct {
	db      *mongo.Client
	tree    *services.TreeService
	members services.MemberStore
}

func NewReferralTreeController(db *mongo.Client, tree *services.TreeService, members services.MemberStore) *ReferralTreeController {
	return &ReferralTreeController{db: db, tree: tree, members: members}
}

// memberIDFromRequest resolves the acting member: the JWT claim wins, an
// explicit body field is accepted for service-to-service calls.
func memberIDFromRequest(c echo.Context, bodyID string) (primitive.ObjectID, error) {
	id := middleware.GetMemberIDFromToken(c)
	if id == "" {
		id = bodyID
	}
	if id == "" {
		return primitive.NilObjectID, errors.New("member ID not found in token or request")
	}
	return primitive.ObjectIDFromHex(id)
}

// AttachSponsor handles POST /api/referrals/attach. The identifier may be a
// member id, a sponsor code, or a display handle.
func (rc *ReferralTreeController) AttachSponsor(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var req models.AttachSponsorRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
			Data:    err.Error(),
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Data:    err.Error(),
		})
	}

	memberID, err := memberIDFromRequest(c, req.MemberID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid member ID",
		})
	}

	if err := rc.tree.Attach(ctx, memberID, req.SponsorIdentifier); err != nil {
		switch {
		case errors.Is(err, models.ErrSponsorNotFound):
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Sponsor not found",
				Data:    err.Error(),
			})
		case errors.Is(err, models.ErrMemberNotFound):
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Member not found",
				Data:    err.Error(),
			})
		case errors.Is(err, models.ErrCircularReference):
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Attachment would create a cycle in the referral tree",
				Data:    err.Error(),
			})
		default:
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to attach sponsor",
				Data:    err.Error(),
			})
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Sponsor attached successfully",
	})
}

// DetachSponsor handles POST /api/referrals/detach
func (rc *ReferralTreeController) DetachSponsor(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var req models.DetachSponsorRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
			Data:    err.Error(),
		})
	}

	memberID, err := memberIDFromRequest(c, req.MemberID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid member ID",
		})
	}

	if err := rc.tree.Detach(ctx, memberID); err != nil {
		if errors.Is(err, models.ErrMemberNotFound) {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Member not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to detach sponsor",
			Data:    err.Error(),
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Sponsor detached successfully",
	})
}

// treeLevelNode is the per-member slice of the downline view.
type treeLevelNode struct {
	ID       primitive.ObjectID `json:"id"`
	FullName string             `json:"fullName"`
	Rank     string             `json:"rank"`
}

// GetTree handles GET /api/referrals/tree. Returns the member's cached
// level sets resolved to displayable nodes, one array per referral level.
func (rc *ReferralTreeController) GetTree(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	memberID, err := memberIDFromRequest(c, c.QueryParam("memberId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid member ID",
		})
	}

	member, err := rc.members.GetMember(ctx, memberID)
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

	levels := make([][]treeLevelNode, 0, len(member.LevelSets))
	for _, ids := range member.LevelSets {
		nodes, err := rc.members.GetMembers(ctx, ids)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to resolve tree level",
				Data:    err.Error(),
			})
		}
		level := make([]treeLevelNode, 0, len(ids))
		for _, id := range ids {
			node, ok := nodes[id]
			if !ok {
				continue
			}
			level = append(level, treeLevelNode{
				ID:       node.ID,
				FullName: node.FullName,
				Rank:     node.RankName(),
			})
		}
		levels = append(levels, level)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Referral tree fetched successfully",
		Data: map[string]interface{}{
			"memberId":       member.ID,
			"sponsorCode":    member.SponsorCode,
			"directChildren": len(member.DirectChildren),
			"levels":         levels,
		},
	})
}

// GetReferralQRCode handles GET /api/referrals/qrcode. Returns the member's
// sponsor code, invite link, and the link encoded as a base64 QR PNG. A
// missing sponsor code is generated on first request.
func (rc *ReferralTreeController) GetReferralQRCode(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	memberID, err := memberIDFromRequest(c, c.QueryParam("memberId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid member ID",
		})
	}

	member, err := rc.members.GetMember(ctx, memberID)
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

	if member.SponsorCode == "" {
		code, err := utils.GenerateSponsorCode()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to generate sponsor code",
			})
		}
		_, err = config.GetCollection(rc.db, "members").UpdateByID(ctx, memberID, bson.M{
			"$set": bson.M{"sponsorCode": code, "updatedAt": time.Now()},
		})
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to save sponsor code",
				Data:    err.Error(),
			})
		}
		member.SponsorCode = code
	}

	link := fmt.Sprintf("https://ridelink.app/join?sponsor=%s", member.SponsorCode)
	qrImage, err := generateQRCode(link)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate QR code",
			Data:    err.Error(),
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Referral QR code generated successfully",
		Data: map[string]interface{}{
			"sponsorCode": member.SponsorCode,
			"inviteLink":  link,
			"qrCode":      qrImage,
		},
	})
}

// generateQRCode encodes content as a 300x300 QR PNG, base64 data URI.
func generateQRCode(content string) (string, error) {
	code, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		return "", err
	}

	code, err = barcode.Scale(code, 300, 300)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, code); err != nil {
		return "", err
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
