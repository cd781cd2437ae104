package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/focusplus/focus-backend/internal/domain"
	"github.com/focusplus/focus-backend/internal/services"
	"github.com/focusplus/focus-backend/internal/utils"
)

// UserService defines profile and XP operations consumed by HTTP handlers.
type UserService interface {
	// Me returns the authenticated user's profile.
	Me(ctx context.Context, userID string) (*domain.User, error)
	// TotalXP returns the user's current XP balance.
	TotalXP(ctx context.Context, userID string) (int64, error)
	// XPLogs returns the most recent XP ledger entries, newest first.
	XPLogs(ctx context.Context, userID string, limit int) ([]domain.XPLog, error)
	// Award atomically adds XP and records a ledger entry.
	Award(ctx context.Context, userID string, amount int64, reason, referenceID string) error
}

//
// DTOs
//

// MeResponse is the public profile projection for the authenticated user.
type MeResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	TotalXP        int64  `json:"totalXp"`
}

// XPResponse carries the XP balance alone, for light polling.
type XPResponse struct {
	TotalXP int64 `json:"totalXp"`
}

// XPLogsResponse wraps recent XP ledger rows.
type XPLogsResponse struct {
	Logs []domain.XPLog `json:"logs"`
}

// AwardXPRequest is the JSON payload for a manual XP grant.
type AwardXPRequest struct {
	// Amount is the XP delta; must be positive.
	Amount int64 `json:"amount" binding:"required,gt=0" example:"10"`
	// Reason labels the ledger entry (e.g. "pomodoro", "workout").
	Reason string `json:"reason" binding:"required,min=1,max=64" example:"pomodoro"`
	// ReferenceID optionally links the grant to another record.
	ReferenceID string `json:"referenceId" example:"5f0c0e0a-8d53-4f09-9f8e-000000000000"`
}

//
// Handlers
//

// Me godoc
// @ID          me
// @Summary     Get the authenticated user's profile
// @Tags        Users
// @Produce     json
// @Success     200  {object}  handlers.MeResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     404  {object}  handlers.ErrorResponse  "User no longer exists"
// @Router      /users/me [get]
func (h *Handlers) Me(c *gin.Context) {
	ctx := c.Request.Context()

	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing credentials")
		return
	}

	u, err := h.userSvc.Me(ctx, uid)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load profile")
		return
	}
	ok(c, http.StatusOK, MeResponse{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		ProfilePicture: u.ProfilePicture,
		TotalXP:        u.TotalXP,
	})
}

// GetXP godoc
// @ID          getXP
// @Summary     Get the authenticated user's XP balance
// @Tags        Users
// @Produce     json
// @Success     200  {object}  handlers.XPResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     404  {object}  handlers.ErrorResponse  "User no longer exists"
// @Router      /users/me/xp [get]
func (h *Handlers) GetXP(c *gin.Context) {
	ctx := c.Request.Context()

	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing credentials")
		return
	}

	total, err := h.userSvc.TotalXP(ctx, uid)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load xp")
		return
	}
	ok(c, http.StatusOK, XPResponse{TotalXP: total})
}

// ListXPLogs godoc
// @ID          listXPLogs
// @Summary     List recent XP ledger entries
// @Description Returns the newest XP grants first. The `limit` query param
// @Description caps the page size (default 50, max 200).
// @Tags        Users
// @Produce     json
// @Param       limit  query  int  false  "Max entries to return"  default(50)
// @Success     200  {object}  handlers.XPLogsResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Router      /users/me/xp/logs [get]
func (h *Handlers) ListXPLogs(c *gin.Context) {
	ctx := c.Request.Context()

	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing credentials")
		return
	}

	limit := utils.ClampInt(utils.AtoiDefault(c.Query("limit"), 50), 1, 200)

	logs, err := h.userSvc.XPLogs(ctx, uid, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list xp logs")
		return
	}
	if logs == nil {
		logs = []domain.XPLog{}
	}
	ok(c, http.StatusOK, XPLogsResponse{Logs: logs})
}

// AwardXP godoc
// @ID          awardXP
// @Summary     Grant XP to the authenticated user
// @Description Adds XP to the balance and appends a ledger entry in one
// @Description transaction. Used by clients for activities completed outside
// @Description chat (pomodoros, workouts).
// @Tags        Users
// @Accept      json
// @Produce     json
// @Success     200  {object}  handlers.XPResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid amount or reason"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     404  {object}  handlers.ErrorResponse  "User no longer exists"
// @Router      /users/me/xp [post]
func (h *Handlers) AwardXP(c *gin.Context) {
	ctx := c.Request.Context()

	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing credentials")
		return
	}

	var req AwardXPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "amount (>0) and reason are required")
		return
	}

	if err := h.userSvc.Award(ctx, uid, req.Amount, req.Reason, req.ReferenceID); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not award xp")
		return
	}

	total, err := h.userSvc.TotalXP(ctx, uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load xp")
		return
	}
	ok(c, http.StatusOK, XPResponse{TotalXP: total})
}
