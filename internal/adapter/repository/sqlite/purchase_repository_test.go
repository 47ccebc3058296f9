package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/WorstGen/land-marketplace/internal/adapter/repository/repotest"
	"github.com/WorstGen/land-marketplace/internal/platform/database"
)

func TestPurchaseRepository(t *testing.T) {
	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "land.sqlite"))
	if err != nil {
		t.Fatalf("NewSQLiteDB: %v", err)
	}
	defer db.Close()

	repo, err := NewPurchaseRepository(context.Background(), db)
	if err != nil {
		t.Fatalf("NewPurchaseRepository: %v", err)
	}

	repotest.Run(t, repo)
}

func TestNewPurchaseRepository_Idempotent(t *testing.T) {
	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "land.sqlite"))
	if err != nil {
		t.Fatalf("NewSQLiteDB: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := NewPurchaseRepository(ctx, db); err != nil {
			t.Fatalf("NewPurchaseRepository #%d: %v", i+1, err)
		}
	}
}
