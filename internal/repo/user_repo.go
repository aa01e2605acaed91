// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file covers user registration and the read paths the
// store contract exposes to the pipeline (packages per user, all users).
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-line-agent/internal/domain"
)

// EnsureUser registers a user on first contact and refreshes the display
// name on subsequent contacts when a non-empty name is provided.
func EnsureUser(ctx context.Context, db *gorm.DB, id, displayName string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		u = domain.User{ID: id, DisplayName: displayName}
		if cerr := db.WithContext(ctx).Create(&u).Error; cerr != nil {
			return nil, cerr
		}
		return &u, nil
	case err != nil:
		return nil, err
	}
	if displayName != "" && displayName != u.DisplayName {
		u.DisplayName = displayName
		if uerr := db.WithContext(ctx).Model(&u).Update("display_name", displayName).Error; uerr != nil {
			return nil, uerr
		}
	}
	return &u, nil
}

// ListUsers returns every registered user, ordered by registration time.
func ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	var users []domain.User
	err := db.WithContext(ctx).Order("created_at ASC").Find(&users).Error
	return users, err
}

// deliveredRetention is how long a delivered package keeps appearing in the
// status report after delivery.
const deliveredRetention = 7 * 24 * time.Hour

// ListOpenPackages returns the user's packages that are still in flight,
// plus those delivered within the retention window, newest first. Delivery
// recency uses the actual delivery date when recorded, otherwise the row's
// last update.
func ListOpenPackages(ctx context.Context, db *gorm.DB, userID string) ([]domain.Package, error) {
	var pkgs []domain.Package
	cutoff := time.Now().UTC().Add(-deliveredRetention)
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("status <> ? OR COALESCE(actual_delivery_date, updated_at) >= ?", domain.PackageStatusDelivered, cutoff).
		Order("created_at DESC").
		Find(&pkgs).Error
	return pkgs, err
}

// CreatePackage inserts a shipment row. Used by seeding and tests; the
// pipeline itself never writes packages.
func CreatePackage(ctx context.Context, db *gorm.DB, p *domain.Package) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(p).Error
}
