package record

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/getiva/trackd/logger"
)

func TestMigrate_CopiesUsersAndApplications(t *testing.T) {
	dataDir := t.TempDir()
	dsn := filepath.Join(t.TempDir(), "trackd.db")
	ctx := context.Background()

	src, err := OpenCSV(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	if err := src.CreateUser(ctx, &User{Username: "alice", Password: "hash", Role: "user"}); err != nil {
		t.Fatal(err)
	}
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := src.CreateApplication(ctx, &Application{
			Username:  "alice",
			Company:   "Acme",
			Filename:  "alice_cv.pdf",
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	report, err := Migrate(ctx, dataDir, dsn, logger.Nop())
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	// Both stores seed an admin account, so only alice is actually copied.
	if report.Users != 1 || report.Applications != 3 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Skipped == 0 {
		t.Error("the pre-seeded admin should be counted as skipped")
	}

	dst, err := OpenSQLite(dsn, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer dst.Close()

	apps, total, err := dst.ListApplications(ctx, "alice", 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(apps) != 3 {
		t.Fatalf("expected 3 migrated applications, got %d", total)
	}
	for _, a := range apps {
		if a.ID == "" || a.ID == "1" {
			t.Errorf("migrated rows must get fresh ids, got %q", a.ID)
		}
	}
}

func TestMigrate_IsIdempotent(t *testing.T) {
	dataDir := t.TempDir()
	dsn := filepath.Join(t.TempDir(), "trackd.db")
	ctx := context.Background()

	src, err := OpenCSV(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := src.CreateApplication(ctx, &Application{
		Username: "bob", Company: "Globex", Filename: "bob_cv.pdf",
		Timestamp: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := Migrate(ctx, dataDir, dsn, logger.Nop()); err != nil {
		t.Fatal(err)
	}
	second, err := Migrate(ctx, dataDir, dsn, logger.Nop())
	if err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	if second.Users != 0 || second.Applications != 0 {
		t.Fatalf("second run must copy nothing, got %+v", second)
	}

	dst, err := OpenSQLite(dsn, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer dst.Close()

	_, total, err := dst.ListApplications(ctx, "bob", 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 {
		t.Fatalf("expected exactly one application after two runs, got %d", total)
	}
}
