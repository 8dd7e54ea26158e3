package record

import (
	"context"
	"fmt"

	apperrors "github.com/getiva/trackd/errors"
	"github.com/getiva/trackd/logger"
)

// MigrationReport summarizes one CSV-to-sqlite migration run.
type MigrationReport struct {
	Users        int
	Applications int
	Skipped      int
}

// Migrate copies every user and application from the CSV files under
// dataDir into the sqlite database at dsn. It is idempotent: rows that
// already exist in the target are counted as skipped and left untouched.
func Migrate(ctx context.Context, dataDir, dsn string, log *logger.Logger) (*MigrationReport, error) {
	l := log.WithComponent("migrate")

	src, err := OpenCSV(dataDir)
	if err != nil {
		return nil, fmt.Errorf("record: open source: %w", err)
	}

	dst, err := OpenSQLite(dsn, l)
	if err != nil {
		return nil, fmt.Errorf("record: open target: %w", err)
	}
	defer dst.Close()

	report := &MigrationReport{}

	users, err := src.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if err := dst.CreateUser(ctx, &users[i]); err != nil {
			if isAlreadyExists(err) {
				report.Skipped++
				continue
			}
			return report, err
		}
		report.Users++
	}

	usernames, err := src.Usernames()
	if err != nil {
		return nil, err
	}
	for _, username := range usernames {
		apps, _, err := src.ListApplications(ctx, username, 1, 0)
		if err != nil {
			return report, err
		}
		existing, _, err := dst.ListApplications(ctx, username, 1, 0)
		if err != nil {
			return report, err
		}
		seen := make(map[string]bool, len(existing))
		for _, a := range existing {
			seen[migrationKey(a)] = true
		}

		for i := range apps {
			if seen[migrationKey(apps[i])] {
				report.Skipped++
				continue
			}
			// New uuid in the target; the CSV counters only make sense
			// inside their own file.
			apps[i].ID = ""
			if _, err := dst.CreateApplication(ctx, &apps[i]); err != nil {
				return report, err
			}
			report.Applications++
		}
	}

	l.Info("migration complete", logger.Fields(
		"users", report.Users,
		"applications", report.Applications,
		"skipped", report.Skipped,
	))
	return report, nil
}

// migrationKey identifies an application across the two stores, where ids
// differ. Filename plus timestamp is unique in practice since stored names
// embed the upload time.
func migrationKey(a Application) string {
	return a.Filename + "|" + a.Timestamp.Format(TimestampLayout)
}

func isAlreadyExists(err error) bool {
	return apperrors.CodeOf(err) == apperrors.ErrCodeAlreadyExists
}
