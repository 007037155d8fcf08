// Package schema owns the database DDL — tables, FTS5 virtual tables, and
// the presence-propagation/nb_tracks/nb_albums triggers — and the migration
// that brings a database file up to CurrentVersion.
package schema

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/ashgrove/medialib/internal/dbengine"
	"github.com/ashgrove/medialib/internal/logger"
	"github.com/ashgrove/medialib/internal/model"
)

//go:embed schema.sql
var ddl string

// CurrentVersion is the schema version this binary expects. Settings holds
// the version a given database file was last migrated to.
const CurrentVersion = 1

// Migrate brings the database at engine up to CurrentVersion. A fresh
// database (no settings row) is created outright. A stored version below
// CurrentVersion is re-stamped to CurrentVersion after the idempotent DDL
// (CREATE ... IF NOT EXISTS) has been applied; existing tables and rows are
// not dropped or wiped.
func Migrate(ctx context.Context, engine *dbengine.Engine) error {
	if _, err := engine.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	version, err := readVersion(ctx, engine)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if version == 0 {
		logger.Info("initializing fresh database schema")
		if err := seed(ctx, engine); err != nil {
			return fmt.Errorf("seed database: %w", err)
		}
		return setVersion(ctx, engine, CurrentVersion)
	}

	if version < CurrentVersion {
		logger.Warn("schema version behind current, reapplying baseline", logger.Int("stored_version", version), logger.Int("current_version", CurrentVersion))
		return setVersion(ctx, engine, CurrentVersion)
	}

	return nil
}

func readVersion(ctx context.Context, engine *dbengine.Engine) (int, error) {
	var version int
	err := engine.QueryRow(ctx, `SELECT db_model_version FROM settings LIMIT 1`).Scan(&version)
	if err != nil {
		// No row yet: fresh database.
		return 0, nil
	}
	return version, nil
}

func setVersion(ctx context.Context, engine *dbengine.Engine, version int) error {
	return engine.WithTx(ctx, func(tx *dbengine.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM settings`); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO settings (db_model_version) VALUES (?)`, version)
		return err
	})
}

// seed creates the two sentinel artist rows mandated by the data model:
// UnknownArtist (id 1) and VariousArtists (id 2), both with a NULL name.
func seed(ctx context.Context, engine *dbengine.Engine) error {
	return engine.WithTx(ctx, func(tx *dbengine.Tx) error {
		for _, id := range []int64{model.UnknownArtistID, model.VariousArtistsID} {
			if _, err := tx.Exec(ctx, `INSERT INTO artists (id, name, nb_albums, is_present) VALUES (?, NULL, 0, 0)`, id); err != nil {
				return err
			}
		}
		return nil
	})
}
