package store

import (
	"context"
	"database/sql"

	"github.com/ashgrove/medialib/internal/dbengine"
	"github.com/ashgrove/medialib/internal/entitycache"
	"github.com/ashgrove/medialib/internal/model"
)

// FolderRepo persists model.Folder rows.
type FolderRepo struct {
	engine *dbengine.Engine
	cache  *entitycache.Cache[model.Folder]
}

func scanFolder(row interface{ Scan(...interface{}) error }) (*model.Folder, error) {
	f := &model.Folder{}
	var isBlacklisted, isRemovable, isPresent int
	if err := row.Scan(&f.ID, &f.Path, &f.ParentID, &f.DeviceID, &isBlacklisted, &isRemovable, &isPresent); err != nil {
		return nil, err
	}
	f.IsBlacklisted = isBlacklisted != 0
	f.IsRemovable = isRemovable != 0
	f.IsPresent = isPresent != 0
	return f, nil
}

const folderColumns = `id, path, parent_id, device_id, is_blacklisted, is_removable, is_present`

// Create inserts a folder row using q, so it can run standalone or as part
// of a discoverer-owned transaction.
func (r *FolderRepo) Create(ctx context.Context, q querier, f *model.Folder) error {
	result, err := q.Exec(ctx,
		`INSERT INTO folders (path, parent_id, device_id, is_blacklisted, is_removable, is_present) VALUES (?, ?, ?, ?, ?, ?)`,
		f.Path, f.ParentID, f.DeviceID, boolToInt(f.IsBlacklisted), boolToInt(f.IsRemovable), boolToInt(f.IsPresent))
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

// GetByID returns the folder with the given id, or nil if none exists.
func (r *FolderRepo) GetByID(ctx context.Context, id int64) (*model.Folder, error) {
	return r.cache.GetOrLoad(id, func() (*model.Folder, error) {
		row := r.engine.QueryRow(ctx, `SELECT `+folderColumns+` FROM folders WHERE id = ?`, id)
		f, err := scanFolder(row)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return f, err
	})
}

// GetByPath returns the folder at path under deviceID, or nil if none
// exists.
func (r *FolderRepo) GetByPath(ctx context.Context, deviceID int64, path string) (*model.Folder, error) {
	row := r.engine.QueryRow(ctx, `SELECT `+folderColumns+` FROM folders WHERE device_id = ? AND path = ?`, deviceID, path)
	f, err := scanFolder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.cache.Put(f.ID, f)
	return f, nil
}

// ListByDevice returns every folder belonging to deviceID.
func (r *FolderRepo) ListByDevice(ctx context.Context, deviceID int64) ([]*model.Folder, error) {
	rows, err := r.engine.Query(ctx, `SELECT `+folderColumns+` FROM folders WHERE device_id = ?`, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Folder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ListChildren returns the direct subfolders of parentID.
func (r *FolderRepo) ListChildren(ctx context.Context, parentID int64) ([]*model.Folder, error) {
	rows, err := r.engine.Query(ctx, `SELECT `+folderColumns+` FROM folders WHERE parent_id = ?`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Folder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// SetBlacklisted toggles a folder's ban state; discoverer refuses to walk
// into blacklisted folders.
func (r *FolderRepo) SetBlacklisted(ctx context.Context, id int64, blacklisted bool) error {
	_, err := r.engine.Exec(ctx, `UPDATE folders SET is_blacklisted = ? WHERE id = ?`, boolToInt(blacklisted), id)
	if err == nil {
		r.cache.Evict(id)
	}
	return err
}

// Delete removes a folder and, via ON DELETE CASCADE, its files.
func (r *FolderRepo) Delete(ctx context.Context, q querier, id int64) error {
	_, err := q.Exec(ctx, `DELETE FROM folders WHERE id = ?`, id)
	if err == nil {
		r.cache.Evict(id)
	}
	return err
}
