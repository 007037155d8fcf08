package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/ashgrove/medialib/internal/dbengine"
	"github.com/ashgrove/medialib/internal/entitycache"
	"github.com/ashgrove/medialib/internal/model"
)

// FileRepo persists model.File rows.
type FileRepo struct {
	engine *dbengine.Engine
	cache  *entitycache.Cache[model.File]
}

const fileColumns = `id, mrl, folder_id, type, last_modification_date, is_parsed, parser_retries, media_id, is_removable, is_external, is_present, checksum`

func scanFile(row interface{ Scan(...interface{}) error }) (*model.File, error) {
	f := &model.File{}
	var fileType string
	var lastMod int64
	var isParsed, isRemovable, isExternal, isPresent int
	if err := row.Scan(&f.ID, &f.MRL, &f.FolderID, &fileType, &lastMod, &isParsed, &f.ParserRetries,
		&f.MediaID, &isRemovable, &isExternal, &isPresent, &f.Checksum); err != nil {
		return nil, err
	}
	f.Type = model.FileType(fileType)
	f.LastModificationDate = time.Unix(lastMod, 0).UTC()
	f.IsParsed = isParsed != 0
	f.IsRemovable = isRemovable != 0
	f.IsExternal = isExternal != 0
	f.IsPresent = isPresent != 0
	return f, nil
}

// Create inserts a file row, bound to q so it can participate in a
// discoverer or derivation transaction.
func (r *FileRepo) Create(ctx context.Context, q querier, f *model.File) error {
	result, err := q.Exec(ctx,
		`INSERT INTO files (mrl, folder_id, type, last_modification_date, is_parsed, parser_retries, media_id, is_removable, is_external, is_present, checksum)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.MRL, f.FolderID, string(f.Type), f.LastModificationDate.Unix(), boolToInt(f.IsParsed), f.ParserRetries,
		f.MediaID, boolToInt(f.IsRemovable), boolToInt(f.IsExternal), boolToInt(f.IsPresent), f.Checksum)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	f.ID = id
	r.cache.Put(id, f)
	return nil
}

// GetByID returns the file with the given id, or nil if none exists.
func (r *FileRepo) GetByID(ctx context.Context, id int64) (*model.File, error) {
	return r.cache.GetOrLoad(id, func() (*model.File, error) {
		row := r.engine.QueryRow(ctx, `SELECT `+fileColumns+` FROM files WHERE id = ?`, id)
		f, err := scanFile(row)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return f, err
	})
}

// GetByMRL returns the file at mrl within folderID, or nil if none exists.
func (r *FileRepo) GetByMRL(ctx context.Context, folderID int64, mrl string) (*model.File, error) {
	row := r.engine.QueryRow(ctx, `SELECT `+fileColumns+` FROM files WHERE folder_id = ? AND mrl = ?`, folderID, mrl)
	f, err := scanFile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.cache.Put(f.ID, f)
	return f, nil
}

// ListByFolder returns every file in folderID.
func (r *FileRepo) ListByFolder(ctx context.Context, folderID int64) ([]*model.File, error) {
	rows, err := r.engine.Query(ctx, `SELECT `+fileColumns+` FROM files WHERE folder_id = ?`, folderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ListUnparsed returns files awaiting (re)parsing, oldest retry count
// first, capped at limit.
func (r *FileRepo) ListUnparsed(ctx context.Context, maxRetries, limit int) ([]*model.File, error) {
	rows, err := r.engine.Query(ctx,
		`SELECT `+fileColumns+` FROM files WHERE is_parsed = 0 AND parser_retries < ? ORDER BY parser_retries ASC LIMIT ?`,
		maxRetries, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// MarkParsed flips is_parsed, optionally attaching checksum, and binds the
// file to mediaID.
func (r *FileRepo) MarkParsed(ctx context.Context, q querier, id, mediaID int64, checksum *string) error {
	_, err := q.Exec(ctx, `UPDATE files SET is_parsed = 1, media_id = ?, checksum = ? WHERE id = ?`, mediaID, checksum, id)
	if err == nil {
		r.cache.Evict(id)
	}
	return err
}

// SetChecksum attaches a checksum without touching is_parsed, for the probe
// service's pre-derivation pass.
func (r *FileRepo) SetChecksum(ctx context.Context, id int64, checksum string) error {
	_, err := r.engine.Exec(ctx, `UPDATE files SET checksum = ? WHERE id = ?`, checksum, id)
	if err == nil {
		r.cache.Evict(id)
	}
	return err
}

// IncrementRetries bumps a file's parser_retries after a temporary parser
// failure.
func (r *FileRepo) IncrementRetries(ctx context.Context, id int64) error {
	_, err := r.engine.Exec(ctx, `UPDATE files SET parser_retries = parser_retries + 1 WHERE id = ?`, id)
	if err == nil {
		r.cache.Evict(id)
	}
	return err
}

// TouchModification updates last_modification_date, e.g. after a reload
// notices the file changed on disk.
func (r *FileRepo) TouchModification(ctx context.Context, id int64, t time.Time) error {
	_, err := r.engine.Exec(ctx, `UPDATE files SET last_modification_date = ?, is_parsed = 0 WHERE id = ?`, t.Unix(), id)
	if err == nil {
		r.cache.Evict(id)
	}
	return err
}

// Delete removes a file row; the file/media presence trigger chain
// recomputes media presence.
func (r *FileRepo) Delete(ctx context.Context, q querier, id int64) error {
	_, err := q.Exec(ctx, `DELETE FROM files WHERE id = ?`, id)
	if err == nil {
		r.cache.Evict(id)
	}
	return err
}
