package record

import (
	"context"
	"fmt"

	"github.com/getiva/trackd/logger"
)

// Store is the persistence contract for applications and users. Listing is
// offset/limit paginated and returns the unpaginated total.
type Store interface {
	CreateApplication(ctx context.Context, app *Application) (string, error)
	GetApplication(ctx context.Context, username, id string) (*Application, error)
	ListApplications(ctx context.Context, username string, page, limit int) ([]Application, int, error)
	UpdateApplication(ctx context.Context, username, id string, upd ApplicationUpdate) (*Application, error)
	DeleteApplication(ctx context.Context, username, id string) (bool, error)

	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdateUser(ctx context.Context, username string, upd UserUpdate) (*User, error)
	DeleteUser(ctx context.Context, username string) (bool, error)

	Close() error
}

// Open creates the record store selected by cfg.Backend.
func Open(cfg Config, log *logger.Logger) (Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := log.WithComponent("record")
	l.Info("opening record store", map[string]interface{}{"backend": cfg.Backend})

	switch cfg.Backend {
	case BackendCSV:
		return OpenCSV(cfg.DataDir)
	case BackendSQLite:
		return OpenSQLite(cfg.DSN, l)
	default:
		return nil, fmt.Errorf("record: unsupported backend %q", cfg.Backend)
	}
}

// normalizePage clamps pagination inputs; limit <= 0 means "everything".
func normalizePage(page, limit int) (offset, capped int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		return 0, 0
	}
	return (page - 1) * limit, limit
}

// paginate slices a full result set per the normalized page/limit.
func paginate(apps []Application, page, limit int) []Application {
	offset, capped := normalizePage(page, limit)
	if capped == 0 {
		return apps
	}
	if offset >= len(apps) {
		return []Application{}
	}
	end := offset + capped
	if end > len(apps) {
		end = len(apps)
	}
	return apps[offset:end]
}
