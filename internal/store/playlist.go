package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/ashgrove/medialib/internal/dbengine"
	"github.com/ashgrove/medialib/internal/entitycache"
	"github.com/ashgrove/medialib/internal/model"
)

// PlaylistRepo persists model.Playlist rows and their ordered membership.
type PlaylistRepo struct {
	engine *dbengine.Engine
	cache  *entitycache.Cache[model.Playlist]
}

func scanPlaylist(row interface{ Scan(...interface{}) error }) (*model.Playlist, error) {
	p := &model.Playlist{}
	var creationDate int64
	if err := row.Scan(&p.ID, &p.Name, &creationDate); err != nil {
		return nil, err
	}
	p.CreationDate = time.Unix(creationDate, 0).UTC()
	return p, nil
}

// Create inserts a new, empty playlist.
func (r *PlaylistRepo) Create(ctx context.Context, name string) (*model.Playlist, error) {
	now := time.Now().UTC()
	result, err := r.engine.Exec(ctx, `INSERT INTO playlists (name, creation_date) VALUES (?, ?)`, name, now.Unix())
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	p := &model.Playlist{ID: id, Name: name, CreationDate: now}
	r.cache.Put(id, p)
	return p, nil
}

// GetByID returns the playlist with the given id, or nil if none exists.
func (r *PlaylistRepo) GetByID(ctx context.Context, id int64) (*model.Playlist, error) {
	return r.cache.GetOrLoad(id, func() (*model.Playlist, error) {
		row := r.engine.QueryRow(ctx, `SELECT id, name, creation_date FROM playlists WHERE id = ?`, id)
		p, err := scanPlaylist(row)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return p, err
	})
}

// List returns every playlist.
func (r *PlaylistRepo) List(ctx context.Context) ([]*model.Playlist, error) {
	rows, err := r.engine.Query(ctx, `SELECT id, name, creation_date FROM playlists ORDER BY creation_date ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Playlist
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Delete removes a playlist and, via cascade, its items.
func (r *PlaylistRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.engine.Exec(ctx, `DELETE FROM playlists WHERE id = ?`, id)
	if err == nil {
		r.cache.Evict(id)
	}
	return err
}

// Append adds mediaID to the end of playlistID's ordering.
func (r *PlaylistRepo) Append(ctx context.Context, playlistID, mediaID int64) error {
	row := r.engine.QueryRow(ctx, `SELECT COALESCE(MAX(position), -1) + 1 FROM playlist_items WHERE playlist_id = ?`, playlistID)
	var position int
	if err := row.Scan(&position); err != nil {
		return err
	}
	_, err := r.engine.Exec(ctx, `INSERT INTO playlist_items (playlist_id, media_id, position) VALUES (?, ?, ?)`,
		playlistID, mediaID, position)
	return err
}

// Remove deletes mediaID from playlistID and compacts the remaining
// positions.
func (r *PlaylistRepo) Remove(ctx context.Context, playlistID, mediaID int64) error {
	return r.engine.WithTx(ctx, func(tx *dbengine.Tx) error {
		row := tx.QueryRow(ctx, `SELECT position FROM playlist_items WHERE playlist_id = ? AND media_id = ?`, playlistID, mediaID)
		var removed int
		if err := row.Scan(&removed); err == sql.ErrNoRows {
			return nil
		} else if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM playlist_items WHERE playlist_id = ? AND media_id = ?`, playlistID, mediaID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`UPDATE playlist_items SET position = position - 1 WHERE playlist_id = ? AND position > ?`,
			playlistID, removed)
		return err
	})
}

// Move relocates mediaID within playlistID to newPosition (0-based),
// shifting the intervening items up or down to close the gap.
func (r *PlaylistRepo) Move(ctx context.Context, playlistID, mediaID int64, newPosition int) error {
	return r.engine.WithTx(ctx, func(tx *dbengine.Tx) error {
		row := tx.QueryRow(ctx, `SELECT position FROM playlist_items WHERE playlist_id = ? AND media_id = ?`, playlistID, mediaID)
		var oldPosition int
		if err := row.Scan(&oldPosition); err != nil {
			return err
		}

		countRow := tx.QueryRow(ctx, `SELECT COUNT(*) FROM playlist_items WHERE playlist_id = ?`, playlistID)
		var count int
		if err := countRow.Scan(&count); err != nil {
			return err
		}
		if newPosition < 0 {
			newPosition = 0
		}
		if newPosition > count-1 {
			newPosition = count - 1
		}
		if newPosition == oldPosition {
			return nil
		}

		// Use a placeholder position outside the active range while the
		// gap is closed, so the shift below never touches the moved row.
		// position carries no unique constraint; the placeholder is defensive.
		if _, err := tx.Exec(ctx, `UPDATE playlist_items SET position = -1 WHERE playlist_id = ? AND media_id = ?`, playlistID, mediaID); err != nil {
			return err
		}

		if newPosition < oldPosition {
			if _, err := tx.Exec(ctx,
				`UPDATE playlist_items SET position = position + 1 WHERE playlist_id = ? AND position >= ? AND position < ?`,
				playlistID, newPosition, oldPosition); err != nil {
				return err
			}
		} else {
			if _, err := tx.Exec(ctx,
				`UPDATE playlist_items SET position = position - 1 WHERE playlist_id = ? AND position > ? AND position <= ?`,
				playlistID, oldPosition, newPosition); err != nil {
				return err
			}
		}

		_, err := tx.Exec(ctx, `UPDATE playlist_items SET position = ? WHERE playlist_id = ? AND media_id = ?`, newPosition, playlistID, mediaID)
		return err
	})
}

// Items returns the playlist's membership, ordered by position.
func (r *PlaylistRepo) Items(ctx context.Context, playlistID int64) ([]*model.PlaylistItem, error) {
	rows, err := r.engine.Query(ctx,
		`SELECT playlist_id, media_id, position FROM playlist_items WHERE playlist_id = ? ORDER BY position ASC`, playlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.PlaylistItem
	for rows.Next() {
		it := &model.PlaylistItem{}
		if err := rows.Scan(&it.PlaylistID, &it.MediaID, &it.Position); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
