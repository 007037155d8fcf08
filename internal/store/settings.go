package store

import (
	"context"

	"github.com/ashgrove/medialib/internal/dbengine"
)

// SettingsRepo reads and writes the single-row settings table. Schema
// migration owns writing db_model_version; callers should treat this repo
// as read-mostly.
type SettingsRepo struct {
	engine *dbengine.Engine
}

// DBModelVersion returns the schema version currently recorded.
func (r *SettingsRepo) DBModelVersion(ctx context.Context) (int, error) {
	row := r.engine.QueryRow(ctx, `SELECT db_model_version FROM settings LIMIT 1`)
	var version int
	if err := row.Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}
