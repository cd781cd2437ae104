// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model
// and the XP ledger.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a user is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/focusplus/focus-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GoogleProfile is the subset of the OAuth userinfo payload persisted on
// each login.
type GoogleProfile struct {
	GoogleID string
	Name     string
	Email    string
	Picture  string
}

// UpsertGoogleUser inserts a user row keyed by the external Google identity,
// or refreshes the profile fields when the identity already exists. It is the
// single idempotent login write used by the auth provider and returns the
// persisted row in either case.
func UpsertGoogleUser(ctx context.Context, db *gorm.DB, p GoogleProfile) (*domain.User, error) {
	u := &domain.User{
		ID:             uuid.NewString(),
		GoogleID:       p.GoogleID,
		Name:           p.Name,
		Email:          p.Email,
		ProfilePicture: p.Picture,
		CreatedAt:      time.Now().UTC(),
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "google_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"name":            p.Name,
				"email":           p.Email,
				"profile_picture": p.Picture,
			}),
		}).
		Create(u).Error
	if err != nil {
		return nil, err
	}
	// The conflict path keeps the original primary key; read the row back so
	// callers always see the stored identity.
	var out domain.User
	if err := db.WithContext(ctx).Where("google_id = ?", p.GoogleID).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUser fetches a user by primary key, or ErrNotFound if missing.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// AddXP appends a ledger entry and applies the matching balance update on
// users.total_xp in one transaction. Either both writes commit or neither
// does; a missing user rolls back with ErrNotFound.
func AddXP(ctx context.Context, db *gorm.DB, userID string, amount int64, reason, referenceID string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.User{}).
			Where("id = ?", userID).
			UpdateColumn("total_xp", gorm.Expr("COALESCE(total_xp, 0) + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Create(&domain.XPLog{
			ID:          uuid.NewString(),
			UserID:      userID,
			Amount:      amount,
			Reason:      reason,
			ReferenceID: referenceID,
			CreatedAt:   time.Now().UTC(),
		}).Error
	})
}

// ListXPLogs returns the user's ledger entries, newest first.
func ListXPLogs(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.XPLog, error) {
	var out []domain.XPLog
	q := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}
