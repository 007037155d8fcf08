package store

import (
	"context"
	"database/sql"

	"github.com/ashgrove/medialib/internal/dbengine"
	"github.com/ashgrove/medialib/internal/entitycache"
	"github.com/ashgrove/medialib/internal/model"
)

// GenreRepo persists model.Genre rows, matched case-insensitively.
type GenreRepo struct {
	engine *dbengine.Engine
	cache  *entitycache.Cache[model.Genre]
}

const genreColumns = `id, name, short_description`

func scanGenre(row interface{ Scan(...interface{}) error }) (*model.Genre, error) {
	g := &model.Genre{}
	if err := row.Scan(&g.ID, &g.Name, &g.ShortDescription); err != nil {
		return nil, err
	}
	return g, nil
}

// GetByID returns the genre with the given id, or nil if none exists.
func (r *GenreRepo) GetByID(ctx context.Context, id int64) (*model.Genre, error) {
	return r.cache.GetOrLoad(id, func() (*model.Genre, error) {
		row := r.engine.QueryRow(ctx, `SELECT `+genreColumns+` FROM genres WHERE id = ?`, id)
		g, err := scanGenre(row)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return g, err
	})
}

// FindOrCreateByName resolves a genre by case-insensitive name, creating
// one if none exists.
func (r *GenreRepo) FindOrCreateByName(ctx context.Context, q querier, name string) (*model.Genre, error) {
	row := q.QueryRow(ctx, `SELECT `+genreColumns+` FROM genres WHERE name = ? COLLATE NOCASE`, name)
	g, err := scanGenre(row)
	if err == nil {
		r.cache.Put(g.ID, g)
		return g, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	result, err := q.Exec(ctx, `INSERT INTO genres (name) VALUES (?)`, name)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	g = &model.Genre{ID: id, Name: name}
	r.cache.Put(id, g)
	return g, nil
}

// List returns every genre, alphabetically.
func (r *GenreRepo) List(ctx context.Context) ([]*model.Genre, error) {
	rows, err := r.engine.Query(ctx, `SELECT `+genreColumns+` FROM genres ORDER BY name COLLATE NOCASE ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Genre
	for rows.Next() {
		g, err := scanGenre(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
