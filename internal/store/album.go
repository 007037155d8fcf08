package store

import (
	"context"
	"database/sql"

	"github.com/ashgrove/medialib/internal/dbengine"
	"github.com/ashgrove/medialib/internal/entitycache"
	"github.com/ashgrove/medialib/internal/model"
)

// AlbumRepo persists model.Album rows.
type AlbumRepo struct {
	engine *dbengine.Engine
	cache  *entitycache.Cache[model.Album]
}

const albumColumns = `id, title, artist_id, release_year, short_summary, artwork_mrl, nb_tracks, is_present`

func scanAlbum(row interface{ Scan(...interface{}) error }) (*model.Album, error) {
	a := &model.Album{}
	var isPresent int
	if err := row.Scan(&a.ID, &a.Title, &a.ArtistID, &a.ReleaseYear, &a.ShortSummary, &a.ArtworkMRL, &a.NbTracks, &isPresent); err != nil {
		return nil, err
	}
	a.IsPresent = isPresent != 0
	return a, nil
}

// GetByID returns the album with the given id, or nil if none exists.
func (r *AlbumRepo) GetByID(ctx context.Context, id int64) (*model.Album, error) {
	return r.cache.GetOrLoad(id, func() (*model.Album, error) {
		row := r.engine.QueryRow(ctx, `SELECT `+albumColumns+` FROM albums WHERE id = ?`, id)
		a, err := scanAlbum(row)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return a, err
	})
}

// GetByTitleAndArtist looks up an album by case-insensitive title matched
// against a specific artist id. title == nil looks up the per-artist
// "unknown album" singleton (title IS NULL) per spec.md §4.H step 2;
// artistID == nil matches albums with no album-artist credit.
func (r *AlbumRepo) GetByTitleAndArtist(ctx context.Context, q querier, title *string, artistID *int64) (*model.Album, error) {
	var row *sql.Row
	switch {
	case title == nil && artistID == nil:
		row = q.QueryRow(ctx, `SELECT `+albumColumns+` FROM albums WHERE title IS NULL AND artist_id IS NULL`)
	case title == nil:
		row = q.QueryRow(ctx, `SELECT `+albumColumns+` FROM albums WHERE title IS NULL AND artist_id = ?`, *artistID)
	case artistID == nil:
		row = q.QueryRow(ctx, `SELECT `+albumColumns+` FROM albums WHERE title = ? COLLATE NOCASE AND artist_id IS NULL`, *title)
	default:
		row = q.QueryRow(ctx, `SELECT `+albumColumns+` FROM albums WHERE title = ? COLLATE NOCASE AND artist_id = ?`, *title, *artistID)
	}
	a, err := scanAlbum(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.cache.Put(a.ID, a)
	return a, nil
}

// FindOrCreate resolves an album by (title, artistID), creating one if none
// exists. A nil title resolves/creates the per-artist unknown-album
// singleton. q must be the derivation transaction so this and the track
// insert it precedes commit atomically.
func (r *AlbumRepo) FindOrCreate(ctx context.Context, q querier, title *string, artistID *int64, releaseYear int) (*model.Album, error) {
	if existing, err := r.GetByTitleAndArtist(ctx, q, title, artistID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	result, err := q.Exec(ctx,
		`INSERT INTO albums (title, artist_id, release_year, nb_tracks, is_present) VALUES (?, ?, ?, 0, 0)`,
		title, artistID, releaseYear)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	a := &model.Album{ID: id, Title: title, ArtistID: artistID, ReleaseYear: releaseYear}
	r.cache.Put(id, a)
	return a, nil
}

// ListByArtist returns every present album credited to artistID.
func (r *AlbumRepo) ListByArtist(ctx context.Context, artistID int64) ([]*model.Album, error) {
	rows, err := r.engine.Query(ctx,
		`SELECT `+albumColumns+` FROM albums WHERE artist_id = ? AND is_present = 1 ORDER BY release_year ASC`, artistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Album
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// List returns present albums, ordered by title, paginated.
func (r *AlbumRepo) List(ctx context.Context, limit, offset int) ([]*model.Album, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.engine.Query(ctx,
		`SELECT `+albumColumns+` FROM albums WHERE is_present = 1 ORDER BY title COLLATE NOCASE ASC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Album
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SetArtwork sets an album's cover artwork MRL.
func (r *AlbumRepo) SetArtwork(ctx context.Context, id int64, artworkMRL *string) error {
	_, err := r.engine.Exec(ctx, `UPDATE albums SET artwork_mrl = ? WHERE id = ?`, artworkMRL, id)
	if err == nil {
		r.cache.Evict(id)
	}
	return err
}

// ListTracks returns the AlbumTrack rows belonging to albumID, ordered by
// disc then track number.
func (r *AlbumRepo) ListTracks(ctx context.Context, albumID int64) ([]*model.AlbumTrack, error) {
	rows, err := r.engine.Query(ctx,
		`SELECT id, media_id, album_id, artist_id, genre_id, track_number, disc_number, is_present
		 FROM album_tracks WHERE album_id = ? ORDER BY disc_number ASC, track_number ASC`, albumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.AlbumTrack
	for rows.Next() {
		t := &model.AlbumTrack{}
		var isPresent int
		if err := rows.Scan(&t.ID, &t.MediaID, &t.AlbumID, &t.ArtistID, &t.GenreID, &t.TrackNumber, &t.DiscNumber, &isPresent); err != nil {
			return nil, err
		}
		t.IsPresent = isPresent != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateTrack inserts the AlbumTrack row binding a Media to its Album; the
// nb_tracks and presence trigger chain reacts to the insert.
func (r *AlbumRepo) CreateTrack(ctx context.Context, q querier, t *model.AlbumTrack) error {
	result, err := q.Exec(ctx,
		`INSERT INTO album_tracks (media_id, album_id, artist_id, genre_id, track_number, disc_number, is_present)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.MediaID, t.AlbumID, t.ArtistID, t.GenreID, t.TrackNumber, t.DiscNumber, boolToInt(t.IsPresent))
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = id
	return nil
}

// DeleteTrack removes an AlbumTrack, e.g. when its backing media is
// removed and re-derivation is needed.
func (r *AlbumRepo) DeleteTrack(ctx context.Context, q querier, mediaID int64) error {
	_, err := q.Exec(ctx, `DELETE FROM album_tracks WHERE media_id = ?`, mediaID)
	return err
}
