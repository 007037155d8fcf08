package store

import (
	"context"
	"database/sql"

	"github.com/ashgrove/medialib/internal/dbengine"
	"github.com/ashgrove/medialib/internal/entitycache"
	"github.com/ashgrove/medialib/internal/model"
)

// LabelRepo persists model.Label rows and their many-to-many attachment to
// media.
type LabelRepo struct {
	engine *dbengine.Engine
	cache  *entitycache.Cache[model.Label]
}

// FindOrCreateByName resolves a label by exact name, creating one if none
// exists.
func (r *LabelRepo) FindOrCreateByName(ctx context.Context, name string) (*model.Label, error) {
	row := r.engine.QueryRow(ctx, `SELECT id, name FROM labels WHERE name = ?`, name)
	l := &model.Label{}
	err := row.Scan(&l.ID, &l.Name)
	if err == nil {
		r.cache.Put(l.ID, l)
		return l, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	result, err := r.engine.Exec(ctx, `INSERT INTO labels (name) VALUES (?)`, name)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	l = &model.Label{ID: id, Name: name}
	r.cache.Put(id, l)
	return l, nil
}

// List returns every label.
func (r *LabelRepo) List(ctx context.Context) ([]*model.Label, error) {
	rows, err := r.engine.Query(ctx, `SELECT id, name FROM labels ORDER BY name COLLATE NOCASE ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Label
	for rows.Next() {
		l := &model.Label{}
		if err := rows.Scan(&l.ID, &l.Name); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
