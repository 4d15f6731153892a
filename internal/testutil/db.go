package testutil

import (
	"path/filepath"
	"testing"

	"guardianangel/config"
	"guardianangel/internal/database"
	"guardianangel/internal/domain"
	"guardianangel/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// NewDB opens a migrated SQLite database under t.TempDir().
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000"
	db, err := database.NewDB(&config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// CreateCustomer inserts a customer user.
func CreateCustomer(t testing.TB, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", Role: domain.RoleCustomer}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create customer: %v", err)
	}
	return u
}

// CreateLawyer inserts a lawyer user with an approved, subscribed profile charging fee per chat.
func CreateLawyer(t testing.TB, db *gorm.DB, name, fee string) (*models.User, *models.LawyerProfile) {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", Role: domain.RoleLawyer}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create lawyer user: %v", err)
	}
	p := &models.LawyerProfile{
		UserID:             u.ID,
		FullName:           name,
		IsApproved:         true,
		SubscriptionActive: true,
		FeePerChat:         decimal.RequireFromString(fee),
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create lawyer profile: %v", err)
	}
	return u, p
}

// CustomerPrincipal and LawyerPrincipal build the caller identity the auth middleware would resolve.
func CustomerPrincipal(u *models.User) domain.Principal {
	return domain.Principal{UserID: u.ID, Email: u.Email, Role: domain.RoleCustomer}
}

func LawyerPrincipal(u *models.User, p *models.LawyerProfile) domain.Principal {
	return domain.Principal{UserID: u.ID, Email: u.Email, Role: domain.RoleLawyer, LawyerID: p.ID, Approved: p.IsApproved}
}
