// Package testutil provides shared fixtures backed by a real SQLite database.
package testutil

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"pet-feeding/internal/model"
	"pet-feeding/internal/repository"
)

// Logger returns a logger that discards output.
func Logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// TestStore opens a migrated SQLite database in a temp dir.
func TestStore(t *testing.T) *repository.Store {
	t.Helper()
	return TestStoreWithChunk(t, repository.DefaultChunkSize)
}

// TestStoreWithChunk is TestStore with a custom batch chunk size.
func TestStoreWithChunk(t *testing.T, chunkSize int) *repository.Store {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "test.db"), Logger())
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return repository.NewStore(db, chunkSize)
}

// Household creates a household whose members are fresh users with the given names.
func Household(t *testing.T, store *repository.Store, names ...string) (model.Household, []model.User) {
	t.Helper()
	ctx := context.Background()

	household := model.Household{Name: "home"}
	if err := store.Households.Create(ctx, &household); err != nil {
		t.Fatal(err)
	}
	users := make([]model.User, 0, len(names))
	for _, name := range names {
		user := model.User{Name: name}
		if err := store.Users.Create(ctx, &user); err != nil {
			t.Fatal(err)
		}
		if err := store.Households.AddMember(ctx, household.ID, user.ID, "member"); err != nil {
			t.Fatal(err)
		}
		users = append(users, user)
	}
	return household, users
}

// Cat creates a cat in householdID. interval 0 leaves it unset.
func Cat(t *testing.T, store *repository.Store, householdID uint, name string, interval int) model.Cat {
	t.Helper()
	cat := model.Cat{HouseholdID: householdID, Name: name}
	if interval > 0 {
		cat.FeedingInterval = &interval
	}
	if err := store.Cats.Create(context.Background(), &cat); err != nil {
		t.Fatal(err)
	}
	return cat
}

// Feed stores a feeding log as if user fed cat at the given time.
func Feed(t *testing.T, store *repository.Store, cat model.Cat, user model.User, at time.Time) model.FeedingLog {
	t.Helper()
	log := model.FeedingLog{CatID: cat.ID, HouseholdID: cat.HouseholdID, FedBy: user.ID, FedAt: at.UTC()}
	if err := store.Feedings.Create(context.Background(), &log); err != nil {
		t.Fatal(err)
	}
	return log
}
