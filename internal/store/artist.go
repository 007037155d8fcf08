package store

import (
	"context"
	"database/sql"

	"github.com/ashgrove/medialib/internal/dbengine"
	"github.com/ashgrove/medialib/internal/entitycache"
	"github.com/ashgrove/medialib/internal/model"
)

// ArtistRepo persists model.Artist rows, including the UnknownArtist and
// VariousArtists sentinels seeded by internal/schema.
type ArtistRepo struct {
	engine *dbengine.Engine
	cache  *entitycache.Cache[model.Artist]
}

const artistColumns = `id, name, short_bio, artwork_url, nb_albums, is_present`

func scanArtist(row interface{ Scan(...interface{}) error }) (*model.Artist, error) {
	a := &model.Artist{}
	var isPresent int
	if err := row.Scan(&a.ID, &a.Name, &a.ShortBio, &a.ArtworkURL, &a.NbAlbums, &isPresent); err != nil {
		return nil, err
	}
	a.IsPresent = isPresent != 0
	return a, nil
}

// GetByID returns the artist with the given id, or nil if none exists.
func (r *ArtistRepo) GetByID(ctx context.Context, id int64) (*model.Artist, error) {
	return r.cache.GetOrLoad(id, func() (*model.Artist, error) {
		row := r.engine.QueryRow(ctx, `SELECT `+artistColumns+` FROM artists WHERE id = ?`, id)
		a, err := scanArtist(row)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return a, err
	})
}

// GetByIDTx is GetByID routed through an already-open transaction's querier.
// internal/derive resolves sentinel artists (UnknownArtist, VariousArtists)
// while holding the derivation tx; the engine pool has a single connection
// (dbengine.Engine.Open), so a cache miss calling r.engine through GetByID
// would block forever on the connection the caller's own tx holds. Callers
// inside a transaction must use this instead of GetByID.
func (r *ArtistRepo) GetByIDTx(ctx context.Context, q querier, id int64) (*model.Artist, error) {
	if a, ok := r.cache.Get(id); ok {
		return a, nil
	}
	row := q.QueryRow(ctx, `SELECT `+artistColumns+` FROM artists WHERE id = ?`, id)
	a, err := scanArtist(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.cache.Put(a.ID, a)
	return a, nil
}

// GetByName looks up an artist by case-insensitive exact name match.
func (r *ArtistRepo) GetByName(ctx context.Context, q querier, name string) (*model.Artist, error) {
	row := q.QueryRow(ctx, `SELECT `+artistColumns+` FROM artists WHERE name = ? COLLATE NOCASE`, name)
	a, err := scanArtist(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.cache.Put(a.ID, a)
	return a, nil
}

// FindOrCreateByName resolves an artist by case-insensitive name, creating
// one with is_present left false (the album/album_track presence chain sets
// it) if none exists. It is the entity-derivation path; q must be a
// transaction so the unique-index race with a concurrent insert surfaces as
// a retryable constraint error rather than a duplicate row.
func (r *ArtistRepo) FindOrCreateByName(ctx context.Context, q querier, name string) (*model.Artist, error) {
	if existing, err := r.GetByName(ctx, q, name); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	result, err := q.Exec(ctx, `INSERT INTO artists (name, nb_albums, is_present) VALUES (?, 0, 0)`, name)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	a := &model.Artist{ID: id, Name: &name}
	r.cache.Put(id, a)
	return a, nil
}

// ListAlbumArtists returns every artist with at least one present album.
func (r *ArtistRepo) ListAlbumArtists(ctx context.Context, limit, offset int) ([]*model.Artist, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.engine.Query(ctx,
		`SELECT `+artistColumns+` FROM artists WHERE nb_albums > 0 AND is_present = 1 ORDER BY name COLLATE NOCASE ASC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Artist
	for rows.Next() {
		a, err := scanArtist(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateBio sets short bio/artwork metadata, e.g. after a metadata service
// enriches an artist.
func (r *ArtistRepo) UpdateBio(ctx context.Context, id int64, shortBio, artworkURL *string) error {
	_, err := r.engine.Exec(ctx, `UPDATE artists SET short_bio = ?, artwork_url = ? WHERE id = ?`, shortBio, artworkURL, id)
	if err == nil {
		r.cache.Evict(id)
	}
	return err
}
