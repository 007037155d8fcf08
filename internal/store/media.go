package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ashgrove/medialib/internal/dbengine"
	"github.com/ashgrove/medialib/internal/entitycache"
	"github.com/ashgrove/medialib/internal/model"
)

// MediaRepo persists model.Media rows.
type MediaRepo struct {
	engine *dbengine.Engine
	cache  *entitycache.Cache[model.Media]
}

const mediaColumns = `id, type, subtype, title, filename, duration_ms, play_count, last_played, rating, progress, insertion_date, release_date, thumbnail_path, is_parsed, is_present`

func scanMedia(row interface{ Scan(...interface{}) error }) (*model.Media, error) {
	m := &model.Media{}
	var mediaType, subtype string
	var lastPlayed, releaseDate sql.NullInt64
	var insertionDate int64
	var isParsed, isPresent int
	if err := row.Scan(&m.ID, &mediaType, &subtype, &m.Title, &m.Filename, &m.DurationMs, &m.PlayCount,
		&lastPlayed, &m.Rating, &m.Progress, &insertionDate, &releaseDate, &m.ThumbnailPath, &isParsed, &isPresent); err != nil {
		return nil, err
	}
	m.Type = model.MediaType(mediaType)
	m.Subtype = model.MediaSubtype(subtype)
	m.InsertionDate = time.Unix(insertionDate, 0).UTC()
	if lastPlayed.Valid {
		t := time.Unix(lastPlayed.Int64, 0).UTC()
		m.LastPlayed = &t
	}
	if releaseDate.Valid {
		t := time.Unix(releaseDate.Int64, 0).UTC()
		m.ReleaseDate = &t
	}
	m.IsParsed = isParsed != 0
	m.IsPresent = isPresent != 0
	return m, nil
}

// Create inserts a media row bound to q.
func (r *MediaRepo) Create(ctx context.Context, q querier, m *model.Media) error {
	var releaseDate interface{}
	if m.ReleaseDate != nil {
		releaseDate = m.ReleaseDate.Unix()
	}
	result, err := q.Exec(ctx,
		`INSERT INTO media (type, subtype, title, filename, duration_ms, play_count, rating, progress, insertion_date, release_date, thumbnail_path, is_parsed, is_present)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(m.Type), string(m.Subtype), m.Title, m.Filename, m.DurationMs, m.PlayCount, m.Rating, m.Progress,
		m.InsertionDate.Unix(), releaseDate, m.ThumbnailPath, boolToInt(m.IsParsed), boolToInt(m.IsPresent))
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = id
	r.cache.Put(id, m)
	return nil
}

// GetByID returns the media with the given id, or nil if none exists.
func (r *MediaRepo) GetByID(ctx context.Context, id int64) (*model.Media, error) {
	return r.cache.GetOrLoad(id, func() (*model.Media, error) {
		row := r.engine.QueryRow(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = ?`, id)
		m, err := scanMedia(row)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return m, err
	})
}

// UpdateDerived writes back the fields entity derivation fills in once a
// file has been parsed: title, duration, subtype, thumbnail.
func (r *MediaRepo) UpdateDerived(ctx context.Context, q querier, m *model.Media) error {
	var releaseDate interface{}
	if m.ReleaseDate != nil {
		releaseDate = m.ReleaseDate.Unix()
	}
	_, err := q.Exec(ctx,
		`UPDATE media SET type = ?, subtype = ?, title = ?, duration_ms = ?, release_date = ?, thumbnail_path = ?, is_parsed = ? WHERE id = ?`,
		string(m.Type), string(m.Subtype), m.Title, m.DurationMs, releaseDate, m.ThumbnailPath, boolToInt(m.IsParsed), m.ID)
	if err == nil {
		r.cache.Evict(m.ID)
	}
	return err
}

// RecordPlay increments play_count and stamps last_played.
func (r *MediaRepo) RecordPlay(ctx context.Context, id int64, progress float64, at time.Time) error {
	_, err := r.engine.Exec(ctx,
		`UPDATE media SET play_count = play_count + 1, last_played = ?, progress = ? WHERE id = ?`,
		at.Unix(), progress, id)
	if err == nil {
		r.cache.Evict(id)
	}
	return err
}

// SetRating sets or clears (nil) a media's rating.
func (r *MediaRepo) SetRating(ctx context.Context, id int64, rating *int) error {
	_, err := r.engine.Exec(ctx, `UPDATE media SET rating = ? WHERE id = ?`, rating, id)
	if err == nil {
		r.cache.Evict(id)
	}
	return err
}

// ListOptions controls MediaRepo.List pagination and ordering.
type ListOptions struct {
	Sort       model.SortCriteria
	Descending bool
	Limit      int
	Offset     int
}

var sortColumns = map[model.SortCriteria]string{
	model.SortDefault:              "media.id",
	model.SortAlpha:                "media.title COLLATE NOCASE",
	model.SortDuration:              "media.duration_ms",
	model.SortInsertionDate:        "media.insertion_date",
	model.SortLastModificationDate: "media.insertion_date",
	model.SortReleaseDate:          "media.release_date",
	model.SortPlayCount:            "media.play_count",
	model.SortFilename:             "media.filename COLLATE NOCASE",
}

// List returns present media ordered and paginated per opts.
func (r *MediaRepo) List(ctx context.Context, opts ListOptions) ([]*model.Media, error) {
	col, ok := sortColumns[opts.Sort]
	if !ok {
		col = sortColumns[model.SortDefault]
	}
	dir := "ASC"
	if opts.Descending {
		dir = "DESC"
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT %s FROM media WHERE is_present = 1 ORDER BY %s %s LIMIT ? OFFSET ?`,
		mediaColumns, col, dir)
	rows, err := r.engine.Query(ctx, query, limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Media
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete removes a media row.
func (r *MediaRepo) Delete(ctx context.Context, q querier, id int64) error {
	_, err := q.Exec(ctx, `DELETE FROM media WHERE id = ?`, id)
	if err == nil {
		r.cache.Evict(id)
	}
	return err
}

// AttachLabel/DetachLabel maintain the media_labels many-to-many join.
func (r *MediaRepo) AttachLabel(ctx context.Context, mediaID, labelID int64) error {
	_, err := r.engine.Exec(ctx, `INSERT OR IGNORE INTO media_labels (media_id, label_id) VALUES (?, ?)`, mediaID, labelID)
	return err
}

func (r *MediaRepo) DetachLabel(ctx context.Context, mediaID, labelID int64) error {
	_, err := r.engine.Exec(ctx, `DELETE FROM media_labels WHERE media_id = ? AND label_id = ?`, mediaID, labelID)
	return err
}

// ListLabels returns the names attached to mediaID.
func (r *MediaRepo) ListLabels(ctx context.Context, mediaID int64) ([]string, error) {
	rows, err := r.engine.Query(ctx,
		`SELECT labels.name FROM labels JOIN media_labels ON media_labels.label_id = labels.id WHERE media_labels.media_id = ?`,
		mediaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
