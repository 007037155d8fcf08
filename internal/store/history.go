package store

import (
	"context"
	"time"

	"github.com/ashgrove/medialib/internal/dbengine"
	"github.com/ashgrove/medialib/internal/model"
)

// HistoryRepo persists play history of externally-streamed MRLs with no
// backing Media row. Playback of a known Media is recorded through
// MediaRepo.RecordPlay instead.
type HistoryRepo struct {
	engine *dbengine.Engine
}

// Add records a play of mrl at the given time.
func (r *HistoryRepo) Add(ctx context.Context, mrl string, at time.Time) error {
	_, err := r.engine.Exec(ctx, `INSERT INTO history (mrl, played_at) VALUES (?, ?)`, mrl, at.Unix())
	return err
}

// List returns the most recent entries first, capped at limit.
func (r *HistoryRepo) List(ctx context.Context, limit int) ([]*model.HistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.engine.Query(ctx, `SELECT id, mrl, played_at FROM history ORDER BY played_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.HistoryEntry
	for rows.Next() {
		h := &model.HistoryEntry{}
		var playedAt int64
		if err := rows.Scan(&h.ID, &h.MRL, &playedAt); err != nil {
			return nil, err
		}
		h.PlayedAt = time.Unix(playedAt, 0).UTC()
		out = append(out, h)
	}
	return out, rows.Err()
}

// Clear removes every history entry.
func (r *HistoryRepo) Clear(ctx context.Context) error {
	_, err := r.engine.Exec(ctx, `DELETE FROM history`)
	return err
}
