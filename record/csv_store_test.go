package record

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestCSVStore(t *testing.T) *CSVStore {
	t.Helper()
	s, err := OpenCSV(t.TempDir())
	if err != nil {
		t.Fatalf("OpenCSV: %v", err)
	}
	return s
}

func TestOpenCSV_SeedsAdmin(t *testing.T) {
	s := newTestCSVStore(t)

	admin, err := s.GetUser(context.Background(), "admin")
	if err != nil {
		t.Fatalf("expected seeded admin account: %v", err)
	}
	if admin.Role != "admin" {
		t.Errorf("unexpected role %q", admin.Role)
	}
	if !VerifyPassword(admin.Password, "admin") {
		t.Error("seeded admin password should be 'admin'")
	}

	// Reopening must not reseed or overwrite.
	s2, err := OpenCSV(s.dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	users, err := s2.ListUsers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 {
		t.Fatalf("expected one user after reopen, got %d", len(users))
	}
}

func TestApplications_CRUDAndSequentialIDs(t *testing.T) {
	s := newTestCSVStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	id1, err := s.CreateApplication(ctx, &Application{
		Username: "alice", Company: "Acme", Timestamp: base,
	})
	if err != nil {
		t.Fatalf("CreateApplication: %v", err)
	}
	id2, err := s.CreateApplication(ctx, &Application{
		Username: "alice", Company: "Globex", Timestamp: base.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateApplication: %v", err)
	}
	if id1 != "1" || id2 != "2" {
		t.Fatalf("expected sequential ids 1, 2; got %s, %s", id1, id2)
	}

	got, err := s.GetApplication(ctx, "alice", id1)
	if err != nil {
		t.Fatalf("GetApplication: %v", err)
	}
	if got.Company != "Acme" || got.Status != DefaultStatus {
		t.Errorf("unexpected application %+v", got)
	}

	status := "Interviewing"
	updated, err := s.UpdateApplication(ctx, "alice", id1, ApplicationUpdate{Status: &status})
	if err != nil {
		t.Fatalf("UpdateApplication: %v", err)
	}
	if updated.Status != "Interviewing" || updated.Company != "Acme" {
		t.Errorf("partial update went wrong: %+v", updated)
	}

	deleted, err := s.DeleteApplication(ctx, "alice", id2)
	if err != nil || !deleted {
		t.Fatalf("DeleteApplication: %v %v", deleted, err)
	}
	deleted, err = s.DeleteApplication(ctx, "alice", id2)
	if err != nil || deleted {
		t.Fatalf("deleting a missing application must report false, got %v %v", deleted, err)
	}
}

func TestListApplications_NewestFirstAndPaginated(t *testing.T) {
	s := newTestCSVStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := s.CreateApplication(ctx, &Application{
			Username:  "bob",
			Company:   string(rune('A' + i)),
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	apps, total, err := s.ListApplications(ctx, "bob", 1, 2)
	if err != nil {
		t.Fatalf("ListApplications: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected total 5, got %d", total)
	}
	if len(apps) != 2 || apps[0].Company != "E" || apps[1].Company != "D" {
		t.Fatalf("expected newest first [E D], got %+v", apps)
	}

	apps, _, err = s.ListApplications(ctx, "bob", 3, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(apps) != 1 || apps[0].Company != "A" {
		t.Fatalf("expected last page [A], got %+v", apps)
	}

	apps, _, err = s.ListApplications(ctx, "bob", 9, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(apps) != 0 {
		t.Fatalf("page past the end must be empty, got %+v", apps)
	}
}

func TestApplications_PerUserIsolation(t *testing.T) {
	s := newTestCSVStore(t)
	ctx := context.Background()

	if _, err := s.CreateApplication(ctx, &Application{Username: "alice", Company: "Acme"}); err != nil {
		t.Fatal(err)
	}

	apps, total, err := s.ListApplications(ctx, "mallory", 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 || len(apps) != 0 {
		t.Fatalf("users must not see each other's applications: %+v", apps)
	}

	if _, err := s.GetApplication(ctx, "mallory", "1"); err == nil {
		t.Fatal("fetching another user's application by id must fail")
	}
}

func TestUsers_CRUD(t *testing.T) {
	s := newTestCSVStore(t)
	ctx := context.Background()

	u := &User{Username: "carol", Password: "hash", Role: "user"}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := s.CreateUser(ctx, u); err == nil {
		t.Fatal("duplicate username must be rejected")
	}

	role := "admin"
	updated, err := s.UpdateUser(ctx, "carol", UserUpdate{Role: &role})
	if err != nil || updated.Role != "admin" {
		t.Fatalf("UpdateUser: %+v %v", updated, err)
	}

	deleted, err := s.DeleteUser(ctx, "carol")
	if err != nil || !deleted {
		t.Fatalf("DeleteUser: %v %v", deleted, err)
	}
	if _, err := s.GetUser(ctx, "carol"); err == nil {
		t.Fatal("deleted user must not be found")
	}
}

func TestCSVStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenCSV(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := s.CreateApplication(ctx, &Application{
		Username: "dave", Company: "Initech",
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}); err != nil {
		t.Fatal(err)
	}

	s2, err := OpenCSV(dir)
	if err != nil {
		t.Fatal(err)
	}
	got, err := s2.GetApplication(ctx, "dave", "1")
	if err != nil {
		t.Fatalf("GetApplication after reopen: %v", err)
	}
	if got.Company != "Initech" {
		t.Errorf("unexpected company %q", got.Company)
	}
	if got.Timestamp.Format(TimestampLayout) != "2026-01-02 03:04:05" {
		t.Errorf("timestamp did not round-trip: %v", got.Timestamp)
	}

	if _, err := os.Stat(filepath.Join(dir, "applications_dave.csv")); err != nil {
		t.Errorf("expected per-user applications file: %v", err)
	}
}

func TestUsernames(t *testing.T) {
	s := newTestCSVStore(t)
	ctx := context.Background()

	for _, name := range []string{"zed", "amy"} {
		if _, err := s.CreateApplication(ctx, &Application{Username: name, Company: "X"}); err != nil {
			t.Fatal(err)
		}
	}

	names, err := s.Usernames()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "amy" || names[1] != "zed" {
		t.Fatalf("expected sorted [amy zed], got %v", names)
	}
}
