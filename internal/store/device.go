package store

import (
	"context"
	"database/sql"

	"github.com/ashgrove/medialib/internal/dbengine"
	"github.com/ashgrove/medialib/internal/entitycache"
	"github.com/ashgrove/medialib/internal/model"
)

// DeviceRepo persists model.Device rows and satisfies devicemgr.Store.
type DeviceRepo struct {
	engine *dbengine.Engine
	cache  *entitycache.Cache[model.Device]
}

func scanDevice(row interface{ Scan(...interface{}) error }) (*model.Device, error) {
	d := &model.Device{}
	var isRemovable, isPresent int
	if err := row.Scan(&d.ID, &d.UUID, &d.Scheme, &isRemovable, &isPresent); err != nil {
		return nil, err
	}
	d.IsRemovable = isRemovable != 0
	d.IsPresent = isPresent != 0
	return d, nil
}

// GetByUUID returns the device with the given uuid, or nil if none exists.
func (r *DeviceRepo) GetByUUID(ctx context.Context, uuid string) (*model.Device, error) {
	row := r.engine.QueryRow(ctx, `SELECT id, uuid, scheme, is_removable, is_present FROM devices WHERE uuid = ?`, uuid)
	d, err := scanDevice(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.cache.Put(d.ID, d)
	return d, nil
}

// GetByID returns the device with the given id, consulting the entity
// cache first.
func (r *DeviceRepo) GetByID(ctx context.Context, id int64) (*model.Device, error) {
	return r.cache.GetOrLoad(id, func() (*model.Device, error) {
		row := r.engine.QueryRow(ctx, `SELECT id, uuid, scheme, is_removable, is_present FROM devices WHERE id = ?`, id)
		d, err := scanDevice(row)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return d, err
	})
}

// Create inserts a new device row, populating d.ID on success.
func (r *DeviceRepo) Create(ctx context.Context, d *model.Device) error {
	result, err := r.engine.Exec(ctx,
		`INSERT INTO devices (uuid, scheme, is_removable, is_present) VALUES (?, ?, ?, ?)`,
		d.UUID, d.Scheme, boolToInt(d.IsRemovable), boolToInt(d.IsPresent))
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = id
	r.cache.Put(id, d)
	return nil
}

// SetPresent updates a device's presence flag; the insert/folder/file/
// media/album_track/album/artist chain reacts via triggers.
func (r *DeviceRepo) SetPresent(ctx context.Context, id int64, present bool) error {
	_, err := r.engine.Exec(ctx, `UPDATE devices SET is_present = ? WHERE id = ?`, boolToInt(present), id)
	return err
}

// ListAll returns every known device.
func (r *DeviceRepo) ListAll(ctx context.Context) ([]*model.Device, error) {
	rows, err := r.engine.Query(ctx, `SELECT id, uuid, scheme, is_removable, is_present FROM devices`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
