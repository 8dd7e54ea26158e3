package record

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	apperrors "github.com/getiva/trackd/errors"
)

var applicationHeader = []string{
	"id", "company", "jobdescription", "filename",
	"timestamp", "download_link", "view_link", "status",
}

var userHeader = []string{"username", "password", "role"}

// CSVStore keeps one applications_<username>.csv per user plus a shared
// users.csv under DataDir. All access is serialized by a single mutex; the
// files are small and rewritten whole on every mutation.
type CSVStore struct {
	dir string
	mu  sync.Mutex
}

// OpenCSV opens (creating if needed) a CSV record store rooted at dir. A
// fresh store is seeded with a default admin account so the service is
// reachable on first boot.
func OpenCSV(dir string) (*CSVStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("record: resolve data dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("record: create data dir: %w", err)
	}

	s := &CSVStore{dir: abs}
	if _, err := os.Stat(s.usersPath()); os.IsNotExist(err) {
		hashed, hashErr := HashPassword("admin")
		if hashErr != nil {
			return nil, fmt.Errorf("record: seed admin: %w", hashErr)
		}
		seed := []User{{Username: "admin", Password: hashed, Role: "admin"}}
		if err := s.writeUsers(seed); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *CSVStore) usersPath() string {
	return filepath.Join(s.dir, "users.csv")
}

func (s *CSVStore) applicationsPath(username string) string {
	return filepath.Join(s.dir, "applications_"+username+".csv")
}

// CreateApplication appends a new row and returns its assigned id. Ids are
// small sequential integers scoped to the owning user's file.
func (s *CSVStore) CreateApplication(_ context.Context, app *Application) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	apps, err := s.readApplications(app.Username)
	if err != nil {
		return "", err
	}

	maxID := 0
	for _, a := range apps {
		if n, convErr := strconv.Atoi(a.ID); convErr == nil && n > maxID {
			maxID = n
		}
	}
	app.ID = strconv.Itoa(maxID + 1)
	if app.Status == "" {
		app.Status = DefaultStatus
	}
	if app.Timestamp.IsZero() {
		app.Timestamp = time.Now()
	}

	apps = append(apps, *app)
	if err := s.writeApplications(app.Username, apps); err != nil {
		return "", err
	}
	return app.ID, nil
}

func (s *CSVStore) GetApplication(_ context.Context, username, id string) (*Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	apps, err := s.readApplications(username)
	if err != nil {
		return nil, err
	}
	for i := range apps {
		if apps[i].ID == id {
			return &apps[i], nil
		}
	}
	return nil, apperrors.NotFound("application", id)
}

// ListApplications returns a page of the user's applications, newest first,
// along with the unpaginated total.
func (s *CSVStore) ListApplications(_ context.Context, username string, page, limit int) ([]Application, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	apps, err := s.readApplications(username)
	if err != nil {
		return nil, 0, err
	}
	sort.SliceStable(apps, func(i, j int) bool {
		return apps[i].Timestamp.After(apps[j].Timestamp)
	})
	total := len(apps)
	return paginate(apps, page, limit), total, nil
}

func (s *CSVStore) UpdateApplication(_ context.Context, username, id string, upd ApplicationUpdate) (*Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	apps, err := s.readApplications(username)
	if err != nil {
		return nil, err
	}
	for i := range apps {
		if apps[i].ID != id {
			continue
		}
		applyApplicationUpdate(&apps[i], upd)
		if err := s.writeApplications(username, apps); err != nil {
			return nil, err
		}
		return &apps[i], nil
	}
	return nil, apperrors.NotFound("application", id)
}

func (s *CSVStore) DeleteApplication(_ context.Context, username, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	apps, err := s.readApplications(username)
	if err != nil {
		return false, err
	}
	for i := range apps {
		if apps[i].ID != id {
			continue
		}
		apps = append(apps[:i], apps[i+1:]...)
		if err := s.writeApplications(username, apps); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func (s *CSVStore) CreateUser(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readUsers()
	if err != nil {
		return err
	}
	for _, existing := range users {
		if existing.Username == u.Username {
			return apperrors.AlreadyExists("user", u.Username)
		}
	}
	users = append(users, *u)
	return s.writeUsers(users)
}

func (s *CSVStore) GetUser(_ context.Context, username string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readUsers()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Username == username {
			return &users[i], nil
		}
	}
	return nil, apperrors.NotFound("user", username)
}

func (s *CSVStore) ListUsers(_ context.Context) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readUsers()
}

func (s *CSVStore) UpdateUser(_ context.Context, username string, upd UserUpdate) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readUsers()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Username != username {
			continue
		}
		applyUserUpdate(&users[i], upd)
		if err := s.writeUsers(users); err != nil {
			return nil, err
		}
		return &users[i], nil
	}
	return nil, apperrors.NotFound("user", username)
}

func (s *CSVStore) DeleteUser(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readUsers()
	if err != nil {
		return false, err
	}
	for i := range users {
		if users[i].Username != username {
			continue
		}
		users = append(users[:i], users[i+1:]...)
		if err := s.writeUsers(users); err != nil {
			return false, err
		}
		// The user's applications file goes with the account.
		if err := os.Remove(s.applicationsPath(username)); err != nil && !os.IsNotExist(err) {
			return true, fmt.Errorf("record: remove applications file: %w", err)
		}
		return true, nil
	}
	return false, nil
}

// Close is a no-op; every operation opens and closes its own files.
func (s *CSVStore) Close() error { return nil }

// Usernames lists every user that has an applications file, for migration.
func (s *CSVStore) Usernames() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches, err := filepath.Glob(filepath.Join(s.dir, "applications_*.csv"))
	if err != nil {
		return nil, fmt.Errorf("record: list application files: %w", err)
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		base := filepath.Base(m)
		name := base[len("applications_") : len(base)-len(".csv")]
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *CSVStore) readApplications(username string) ([]Application, error) {
	f, err := os.Open(s.applicationsPath(username))
	if err != nil {
		if os.IsNotExist(err) {
			return []Application{}, nil
		}
		return nil, fmt.Errorf("record: open applications file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("record: read applications file: %w", err)
	}
	if len(rows) <= 1 {
		return []Application{}, nil
	}

	apps := make([]Application, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < len(applicationHeader) {
			continue
		}
		ts, parseErr := time.Parse(TimestampLayout, row[4])
		if parseErr != nil {
			ts = time.Time{}
		}
		apps = append(apps, Application{
			ID:             row[0],
			Username:       username,
			Company:        row[1],
			JobDescription: row[2],
			Filename:       row[3],
			Timestamp:      ts,
			DownloadLink:   row[5],
			ViewLink:       row[6],
			Status:         row[7],
		})
	}
	return apps, nil
}

func (s *CSVStore) writeApplications(username string, apps []Application) error {
	rows := make([][]string, 0, len(apps)+1)
	rows = append(rows, applicationHeader)
	for _, a := range apps {
		rows = append(rows, []string{
			a.ID, a.Company, a.JobDescription, a.Filename,
			a.Timestamp.Format(TimestampLayout), a.DownloadLink, a.ViewLink, a.Status,
		})
	}
	return s.writeFile(s.applicationsPath(username), rows)
}

func (s *CSVStore) readUsers() ([]User, error) {
	f, err := os.Open(s.usersPath())
	if err != nil {
		if os.IsNotExist(err) {
			return []User{}, nil
		}
		return nil, fmt.Errorf("record: open users file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("record: read users file: %w", err)
	}
	if len(rows) <= 1 {
		return []User{}, nil
	}

	users := make([]User, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < len(userHeader) {
			continue
		}
		users = append(users, User{Username: row[0], Password: row[1], Role: row[2]})
	}
	return users, nil
}

func (s *CSVStore) writeUsers(users []User) error {
	rows := make([][]string, 0, len(users)+1)
	rows = append(rows, userHeader)
	for _, u := range users {
		rows = append(rows, []string{u.Username, u.Password, u.Role})
	}
	return s.writeFile(s.usersPath(), rows)
}

// writeFile rewrites the whole CSV via a temp file and rename so readers
// never observe a half-written file.
func (s *CSVStore) writeFile(path string, rows [][]string) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("record: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	w := csv.NewWriter(tmp)
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("record: write csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("record: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("record: replace csv: %w", err)
	}
	return nil
}

func applyApplicationUpdate(app *Application, upd ApplicationUpdate) {
	if upd.Company != nil {
		app.Company = *upd.Company
	}
	if upd.JobDescription != nil {
		app.JobDescription = *upd.JobDescription
	}
	if upd.Status != nil {
		app.Status = *upd.Status
	}
	if upd.Filename != nil {
		app.Filename = *upd.Filename
	}
	if upd.DownloadLink != nil {
		app.DownloadLink = *upd.DownloadLink
	}
	if upd.ViewLink != nil {
		app.ViewLink = *upd.ViewLink
	}
}

func applyUserUpdate(u *User, upd UserUpdate) {
	if upd.Password != nil {
		u.Password = *upd.Password
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
}
