// Package store hand-scans rows between internal/model structs and the
// database behind internal/dbengine, one repository per entity kind, in the
// structure of the teacher's media_repository.go but re-targeted at this
// schema and fronted by internal/entitycache instead of an ORM identity map.
package store

import (
	"context"
	"database/sql"

	"github.com/ashgrove/medialib/internal/dbengine"
	"github.com/ashgrove/medialib/internal/entitycache"
	"github.com/ashgrove/medialib/internal/model"
)

// Store aggregates one repository per entity kind over a shared Engine and
// wires each repository's row-change hook to evict its entity cache: on
// delete for every kind, and also on update for devices, folders, files,
// media, albums and artists, whose rows the schema's triggers rewrite.
type Store struct {
	Engine *dbengine.Engine

	Devices   *DeviceRepo
	Folders   *FolderRepo
	Files     *FileRepo
	Media     *MediaRepo
	Albums    *AlbumRepo
	Artists   *ArtistRepo
	Genres    *GenreRepo
	Playlists *PlaylistRepo
	Labels    *LabelRepo
	History   *HistoryRepo
	Settings  *SettingsRepo
	Search    *SearchRepo
}

// New builds a Store over engine, registering cache-eviction row-change
// hooks for every entity kind.
func New(engine *dbengine.Engine) *Store {
	s := &Store{Engine: engine}

	s.Devices = &DeviceRepo{engine: engine, cache: entitycache.New[model.Device]()}
	s.Folders = &FolderRepo{engine: engine, cache: entitycache.New[model.Folder]()}
	s.Files = &FileRepo{engine: engine, cache: entitycache.New[model.File]()}
	s.Media = &MediaRepo{engine: engine, cache: entitycache.New[model.Media]()}
	s.Albums = &AlbumRepo{engine: engine, cache: entitycache.New[model.Album]()}
	s.Artists = &ArtistRepo{engine: engine, cache: entitycache.New[model.Artist]()}
	s.Genres = &GenreRepo{engine: engine, cache: entitycache.New[model.Genre]()}
	s.Playlists = &PlaylistRepo{engine: engine, cache: entitycache.New[model.Playlist]()}
	s.Labels = &LabelRepo{engine: engine, cache: entitycache.New[model.Label]()}
	s.History = &HistoryRepo{engine: engine}
	s.Settings = &SettingsRepo{engine: engine}
	s.Search = &SearchRepo{engine: engine}

	engine.OnChange("devices", func(reason dbengine.Reason, rowID int64) {
		if reason != dbengine.ReasonInsert {
			s.Devices.cache.Evict(rowID)
		}
	})
	engine.OnChange("folders", func(reason dbengine.Reason, rowID int64) {
		if reason != dbengine.ReasonInsert {
			s.Folders.cache.Evict(rowID)
		}
	})
	engine.OnChange("files", func(reason dbengine.Reason, rowID int64) {
		if reason != dbengine.ReasonInsert {
			s.Files.cache.Evict(rowID)
		}
	})
	engine.OnChange("media", func(reason dbengine.Reason, rowID int64) {
		if reason != dbengine.ReasonInsert {
			s.Media.cache.Evict(rowID)
		}
	})
	engine.OnChange("albums", func(reason dbengine.Reason, rowID int64) {
		if reason != dbengine.ReasonInsert {
			s.Albums.cache.Evict(rowID)
		}
	})
	engine.OnChange("artists", func(reason dbengine.Reason, rowID int64) {
		if reason != dbengine.ReasonInsert {
			s.Artists.cache.Evict(rowID)
		}
	})
	engine.OnChange("genres", func(reason dbengine.Reason, rowID int64) {
		if reason == dbengine.ReasonDelete {
			s.Genres.cache.Evict(rowID)
		}
	})
	engine.OnChange("playlists", func(reason dbengine.Reason, rowID int64) {
		if reason == dbengine.ReasonDelete {
			s.Playlists.cache.Evict(rowID)
		}
	})
	engine.OnChange("labels", func(reason dbengine.Reason, rowID int64) {
		if reason == dbengine.ReasonDelete {
			s.Labels.cache.Evict(rowID)
		}
	})

	return s
}

// querier is satisfied by both *dbengine.Engine (autocommit reads/writes)
// and *dbengine.Tx (inside a transaction), letting repository methods run
// either standalone or as part of a larger derivation transaction.
type querier interface {
	Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row
	Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}
