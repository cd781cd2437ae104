// Package services – UserService
//
// This file implements UserService, covering the identity and XP surface:
// the caller's profile (including the denormalized XP balance) and the
// append-only XP ledger.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/focusplus/focus-backend/internal/domain"
	"github.com/focusplus/focus-backend/internal/repo"
)

// UserService exposes profile and XP reads plus the ledger append.
type UserService struct {
	DB *gorm.DB
}

// Me returns the authenticated user's stored profile.
func (s *UserService) Me(ctx context.Context, userID string) (*domain.User, error) {
	u, err := repo.GetUser(ctx, s.DB, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// TotalXP returns the caller's current XP balance.
func (s *UserService) TotalXP(ctx context.Context, userID string) (int64, error) {
	u, err := s.Me(ctx, userID)
	if err != nil {
		return 0, err
	}
	return u.TotalXP, nil
}

// XPLogs returns the caller's ledger entries, newest first.
func (s *UserService) XPLogs(ctx context.Context, userID string, limit int) ([]domain.XPLog, error) {
	return repo.ListXPLogs(ctx, s.DB, userID, limit)
}

// Award appends a ledger entry and updates the balance atomically.
func (s *UserService) Award(ctx context.Context, userID string, amount int64, reason, referenceID string) error {
	err := repo.AddXP(ctx, s.DB, userID, amount, reason, referenceID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return err
}
