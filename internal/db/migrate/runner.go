// Package migrate applies the embedded users, organizations, memberships, sessions, api_tokens and
// audit_logs schema with golang-migrate.
package migrate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	"capturehub/backend/internal/db"
)

// Direction selects which way migrations run.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ErrMissingDSN is returned when no database URL is configured.
var ErrMissingDSN = errors.New("DATABASE_URL is not set")

// ParseDirection accepts "up" or "down".
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Up, Down:
		return d, nil
	}
	return "", fmt.Errorf("direction must be up or down, got %q", s)
}

// zapLogger adapts zap to migrate.Logger.
type zapLogger struct {
	log *zap.SugaredLogger
}

func (l zapLogger) Printf(format string, v ...interface{}) {
	l.log.Infof(strings.TrimSuffix(format, "\n"), v...)
}

func (l zapLogger) Verbose() bool { return false }

func open(dsn string, logger *zap.Logger) (*migrate.Migrate, error) {
	if dsn == "" {
		return nil, ErrMissingDSN
	}
	src, err := iofs.New(db.MigrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migrate source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if logger != nil {
		m.Log = zapLogger{log: logger.Sugar()}
	}
	return m, nil
}

// Run applies every pending migration in the given direction. Already being at the target is not an error.
func Run(dsn string, dir Direction, logger *zap.Logger) error {
	if _, err := ParseDirection(string(dir)); err != nil {
		return err
	}
	m, err := open(dsn, logger)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if dir == Up {
		err = m.Up()
	} else {
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Version reports the applied schema version. ok is false when no migration has run yet.
func Version(dsn string, logger *zap.Logger) (version uint, dirty, ok bool, err error) {
	m, err := open(dsn, logger)
	if err != nil {
		return 0, false, false, err
	}
	defer func() { _, _ = m.Close() }()

	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, false, nil
	}
	if err != nil {
		return 0, false, false, err
	}
	return version, dirty, true, nil
}
