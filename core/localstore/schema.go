package localstore

import (
	"fmt"

	"github.com/coreos/go-semver/semver"
)

// DBSchemaCurrent is the schema version of the current code base.
const DBSchemaCurrent = "1.0.0"

// migration runs an in-place transformation of the store when opening
// a database written by an older schema.
type migration struct {
	version *semver.Version
	fn      func(db *DB) error
}

// schemaMigrations lists all migrations in ascending version order.
// The initial schema has no predecessors to migrate from.
var schemaMigrations = []migration{}

// migrate checks the persisted schema version and applies all pending
// migrations in order.
func (db *DB) migrate() error {
	stored, err := db.schemaName.Get()
	if err != nil {
		return err
	}
	if stored == "" {
		// fresh database
		return db.schemaName.Put(DBSchemaCurrent)
	}
	if stored == DBSchemaCurrent {
		return nil
	}

	from, err := semver.NewVersion(stored)
	if err != nil {
		return fmt.Errorf("localstore: corrupt schema version %q: %w", stored, err)
	}
	current := semver.New(DBSchemaCurrent)
	if current.LessThan(*from) {
		return fmt.Errorf("localstore: database schema %q is newer than this binary supports (%q)", stored, DBSchemaCurrent)
	}

	for _, m := range schemaMigrations {
		if !from.LessThan(*m.version) {
			continue
		}
		db.logger.Infof("localstore: migrating schema %s -> %s", stored, m.version)
		if err := m.fn(db); err != nil {
			return fmt.Errorf("localstore: migration to %s: %w", m.version, err)
		}
		if err := db.schemaName.Put(m.version.String()); err != nil {
			return err
		}
	}
	return db.schemaName.Put(DBSchemaCurrent)
}

// SchemaVersion returns the persisted schema version of the open store.
func (db *DB) SchemaVersion() (string, error) {
	return db.schemaName.Get()
}
