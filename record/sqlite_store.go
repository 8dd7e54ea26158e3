package record

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	apperrors "github.com/getiva/trackd/errors"
	"github.com/getiva/trackd/logger"
)

// applicationRow is the sqlite schema for applications. Ids are uuids here
// rather than the per-file counters the CSV store uses.
type applicationRow struct {
	ID             string    `gorm:"primaryKey;size:36"`
	Username       string    `gorm:"index;size:128;not null"`
	Company        string    `gorm:"size:256"`
	JobDescription string    `gorm:"type:text"`
	Filename       string    `gorm:"size:512"`
	Timestamp      time.Time `gorm:"index"`
	DownloadLink   string    `gorm:"type:text"`
	ViewLink       string    `gorm:"type:text"`
	Status         string    `gorm:"size:64"`
}

func (applicationRow) TableName() string { return "applications" }

type userRow struct {
	Username string `gorm:"primaryKey;size:128"`
	Password string `gorm:"size:256;not null"`
	Role     string `gorm:"size:64;not null"`
}

func (userRow) TableName() string { return "users" }

// SQLiteStore persists records in a sqlite database through GORM.
type SQLiteStore struct {
	db  *gorm.DB
	log *logger.Logger
}

// OpenSQLite opens (creating if needed) the sqlite database at dsn, runs
// schema migration, and seeds a default admin account when the users table
// is empty.
func OpenSQLite(dsn string, log *logger.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(dsn); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("record: create database dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("open sqlite: %w", err))
	}

	if err := db.AutoMigrate(&applicationRow{}, &userRow{}); err != nil {
		return nil, apperrors.Database(fmt.Errorf("migrate schema: %w", err))
	}

	s := &SQLiteStore{db: db, log: log}
	if err := s.seedAdmin(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) seedAdmin() error {
	var count int64
	if err := s.db.Model(&userRow{}).Count(&count).Error; err != nil {
		return apperrors.Database(fmt.Errorf("count users: %w", err))
	}
	if count > 0 {
		return nil
	}
	hashed, err := HashPassword("admin")
	if err != nil {
		return fmt.Errorf("record: seed admin: %w", err)
	}
	row := userRow{Username: "admin", Password: hashed, Role: "admin"}
	if err := s.db.Create(&row).Error; err != nil {
		return apperrors.Database(fmt.Errorf("seed admin: %w", err))
	}
	s.log.Info("seeded default admin account")
	return nil
}

func (s *SQLiteStore) CreateApplication(ctx context.Context, app *Application) (string, error) {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	if app.Status == "" {
		app.Status = DefaultStatus
	}
	if app.Timestamp.IsZero() {
		app.Timestamp = time.Now()
	}

	row := toApplicationRow(*app)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", apperrors.Database(fmt.Errorf("create application: %w", err))
	}
	return app.ID, nil
}

func (s *SQLiteStore) GetApplication(ctx context.Context, username, id string) (*Application, error) {
	var row applicationRow
	err := s.db.WithContext(ctx).
		Where("username = ? AND id = ?", username, id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("application", id)
		}
		return nil, apperrors.Database(fmt.Errorf("get application: %w", err))
	}
	app := fromApplicationRow(row)
	return &app, nil
}

func (s *SQLiteStore) ListApplications(ctx context.Context, username string, page, limit int) ([]Application, int, error) {
	q := s.db.WithContext(ctx).Model(&applicationRow{}).Where("username = ?", username)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Database(fmt.Errorf("count applications: %w", err))
	}

	offset, capped := normalizePage(page, limit)
	q = q.Order("timestamp DESC")
	if capped > 0 {
		q = q.Offset(offset).Limit(capped)
	}

	var rows []applicationRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, apperrors.Database(fmt.Errorf("list applications: %w", err))
	}

	apps := make([]Application, 0, len(rows))
	for _, row := range rows {
		apps = append(apps, fromApplicationRow(row))
	}
	return apps, int(total), nil
}

func (s *SQLiteStore) UpdateApplication(ctx context.Context, username, id string, upd ApplicationUpdate) (*Application, error) {
	app, err := s.GetApplication(ctx, username, id)
	if err != nil {
		return nil, err
	}
	applyApplicationUpdate(app, upd)

	row := toApplicationRow(*app)
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return nil, apperrors.Database(fmt.Errorf("update application: %w", err))
	}
	return app, nil
}

func (s *SQLiteStore) DeleteApplication(ctx context.Context, username, id string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("username = ? AND id = ?", username, id).
		Delete(&applicationRow{})
	if res.Error != nil {
		return false, apperrors.Database(fmt.Errorf("delete application: %w", res.Error))
	}
	return res.RowsAffected > 0, nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, u *User) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&userRow{}).
		Where("username = ?", u.Username).Count(&count).Error
	if err != nil {
		return apperrors.Database(fmt.Errorf("check user: %w", err))
	}
	if count > 0 {
		return apperrors.AlreadyExists("user", u.Username)
	}

	row := userRow{Username: u.Username, Password: u.Password, Role: u.Role}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return apperrors.Database(fmt.Errorf("create user: %w", err))
	}
	return nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, username string) (*User, error) {
	var row userRow
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user", username)
		}
		return nil, apperrors.Database(fmt.Errorf("get user: %w", err))
	}
	return &User{Username: row.Username, Password: row.Password, Role: row.Role}, nil
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]User, error) {
	var rows []userRow
	if err := s.db.WithContext(ctx).Order("username").Find(&rows).Error; err != nil {
		return nil, apperrors.Database(fmt.Errorf("list users: %w", err))
	}
	users := make([]User, 0, len(rows))
	for _, row := range rows {
		users = append(users, User{Username: row.Username, Password: row.Password, Role: row.Role})
	}
	return users, nil
}

func (s *SQLiteStore) UpdateUser(ctx context.Context, username string, upd UserUpdate) (*User, error) {
	u, err := s.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}
	applyUserUpdate(u, upd)

	row := userRow{Username: u.Username, Password: u.Password, Role: u.Role}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return nil, apperrors.Database(fmt.Errorf("update user: %w", err))
	}
	return u, nil
}

func (s *SQLiteStore) DeleteUser(ctx context.Context, username string) (bool, error) {
	res := s.db.WithContext(ctx).Where("username = ?", username).Delete(&userRow{})
	if res.Error != nil {
		return false, apperrors.Database(fmt.Errorf("delete user: %w", res.Error))
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	// The user's applications go with the account.
	err := s.db.WithContext(ctx).Where("username = ?", username).Delete(&applicationRow{}).Error
	if err != nil {
		return true, apperrors.Database(fmt.Errorf("delete user applications: %w", err))
	}
	return true, nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toApplicationRow(a Application) applicationRow {
	return applicationRow{
		ID:             a.ID,
		Username:       a.Username,
		Company:        a.Company,
		JobDescription: a.JobDescription,
		Filename:       a.Filename,
		Timestamp:      a.Timestamp,
		DownloadLink:   a.DownloadLink,
		ViewLink:       a.ViewLink,
		Status:         a.Status,
	}
}

func fromApplicationRow(row applicationRow) Application {
	return Application{
		ID:             row.ID,
		Username:       row.Username,
		Company:        row.Company,
		JobDescription: row.JobDescription,
		Filename:       row.Filename,
		Timestamp:      row.Timestamp,
		DownloadLink:   row.DownloadLink,
		ViewLink:       row.ViewLink,
		Status:         row.Status,
	}
}
