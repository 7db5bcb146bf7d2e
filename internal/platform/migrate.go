package platform

import (
	"net/url"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/pkg/errors"
)

// ErrNoChange is returned when the schema is already at the requested version.
var ErrNoChange = errors.New("no migration to apply")

// Migrator applies the SQL files in a migrations directory.
type Migrator struct {
	dsn string
	dir string
}

func NewMigrator(dsn, dir string) (*Migrator, error) {
	if dsn == "" {
		return nil, errors.New("missing DSN")
	}
	if dir == "" {
		dir = "db/migrations"
	}
	return &Migrator{dsn: dsn, dir: dir}, nil
}

func (m *Migrator) sourceURL() (string, error) {
	abs, err := filepath.Abs(m.dir)
	if err != nil {
		return "", errors.Wrap(err, "resolve migrations dir")
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String(), nil
}

func (m *Migrator) Up() error {
	return m.run(func(mig *migrate.Migrate) error { return mig.Up() })
}

// Down reverts the given number of migrations.
func (m *Migrator) Down(steps int) error {
	if steps <= 0 {
		steps = 1
	}
	return m.run(func(mig *migrate.Migrate) error { return mig.Steps(-steps) })
}

// Version returns the current schema version and whether it is dirty.
func (m *Migrator) Version() (uint, bool, error) {
	var (
		version uint
		dirty   bool
	)
	err := m.run(func(mig *migrate.Migrate) error {
		var err error
		version, dirty, err = mig.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		return err
	})
	return version, dirty, err
}

func (m *Migrator) run(fn func(*migrate.Migrate) error) error {
	src, err := m.sourceURL()
	if err != nil {
		return err
	}
	mig, err := migrate.New(src, m.dsn)
	if err != nil {
		return errors.Wrap(err, "init migrate")
	}
	defer mig.Close()

	if err := fn(mig); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return ErrNoChange
		}
		return err
	}
	return nil
}
