// Package medialib is the public, importable surface a host application
// embeds: it wires internal/dbengine, internal/schema, internal/store,
// internal/discoverer, internal/devicemgr, internal/parser, and
// internal/notifier into one Library value and exposes the query, mutation,
// discovery-control, and device-event operations the rest of the internal
// packages only implement piecewise. Grounded in style on the teacher's
// cmd/viewra/main.go wiring sequence and internal/modules/modulemanager's
// phased startup, but collapsed into a single struct's lifecycle methods
// since this library has no plugin system to phase in.
package medialib

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/ashgrove/medialib/internal/config"
	"github.com/ashgrove/medialib/internal/dbengine"
	"github.com/ashgrove/medialib/internal/devicemgr"
	"github.com/ashgrove/medialib/internal/discoverer"
	"github.com/ashgrove/medialib/internal/events"
	internalerrors "github.com/ashgrove/medialib/internal/errors"
	"github.com/ashgrove/medialib/internal/logger"
	"github.com/ashgrove/medialib/internal/model"
	"github.com/ashgrove/medialib/internal/notifier"
	"github.com/ashgrove/medialib/internal/parser"
	"github.com/ashgrove/medialib/internal/schema"
	"github.com/ashgrove/medialib/internal/store"
	"github.com/ashgrove/medialib/internal/throttle"
	"github.com/ashgrove/medialib/internal/vfs"
	"github.com/ashgrove/medialib/internal/vfs/local"
)

// State is the library's lifecycle stage, advancing monotonically.
type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StateStarted
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Callbacks are the host hooks the library invokes for batched entity
// changes and discovery/parser lifecycle events. Every field is optional;
// a nil callback is simply not invoked.
type Callbacks struct {
	OnMediaAdded      func([]*model.Media)
	OnMediaModified   func([]*model.Media)
	OnMediaRemoved    func([]int64)
	OnArtistAdded     func([]*model.Artist)
	OnArtistModified  func([]*model.Artist)
	OnArtistRemoved   func([]int64)
	OnAlbumAdded      func([]*model.Album)
	OnAlbumModified   func([]*model.Album)
	OnAlbumRemoved    func([]int64)
	OnAlbumTrackAdded    func([]*model.AlbumTrack)
	OnAlbumTrackModified func([]*model.AlbumTrack)
	OnAlbumTrackRemoved  func([]int64)
	OnGenreAdded      func([]*model.Genre)
	OnGenreModified   func([]*model.Genre)
	OnGenreRemoved    func([]int64)
	OnPlaylistAdded     func([]*model.Playlist)
	OnPlaylistModified  func([]*model.Playlist)
	OnPlaylistRemoved   func([]int64)

	OnDiscoveryStarted   func(entryPoint string)
	OnDiscoveryCompleted func(entryPoint string)
	OnReloadStarted      func()
	OnReloadCompleted    func()

	OnParsingStatsUpdated       func(percent int)
	OnBackgroundTasksIdleChanged func(idle bool)

	OnEntryPointBanned   func(entryPoint string, success bool)
	OnEntryPointUnbanned func(entryPoint string, success bool)
	OnEntryPointRemoved  func(entryPoint string, success bool)

	OnDevicePlugged   func(uuid string, isNew bool)
	OnDeviceUnplugged func(uuid string)
}

// Library is the embeddable facade. Zero value is not usable; construct
// with New.
type Library struct {
	cfg *config.Config

	mu    sync.RWMutex
	state State
	cb    Callbacks

	engine   *dbengine.Engine
	store    *store.Store
	bus      *events.Bus
	notifier *notifier.Notifier
	disc     *discoverer.Worker
	devices  *devicemgr.Manager
	pipeline *parser.Pipeline
	load     *throttle.Monitor
	factory  vfs.Factory
}

// New creates a Library over cfg. Pass config.DefaultConfig() for a
// reasonable out-of-the-box configuration.
func New(cfg *config.Config) *Library {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Library{cfg: cfg, state: StateUninitialized, factory: local.NewFactory()}
}

// SetFsFactory overrides the filesystem abstraction the discoverer and
// device manager walk through. Must be called before Start; the default is
// a local-filesystem factory.
func (l *Library) SetFsFactory(f vfs.Factory) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.factory = f
}

// SetVerbosity toggles debug-level ambient logging.
func (l *Library) SetVerbosity(debug bool) {
	logger.SetVerbose(debug)
}

// SetLogger redirects every subsystem logger's output through base.
func (l *Library) SetLogger(base hclog.Logger) {
	logger.SetBase(base)
}

// EventBus returns the library's process-wide event bus, for a host
// surface (e.g. internal/server) that wants to relay discoverer and
// notifier events without depending on medialib's internals directly. Nil
// until Initialize has run.
func (l *Library) EventBus() *events.Bus {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.bus
}

// State returns the library's current lifecycle stage.
func (l *Library) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Initialize creates the thumbnail directory, opens (or migrates) the
// database, registers row-change hooks, and starts the notifier, per
// spec.md §4.J. It does not start discovery or the parser — call Start for
// that. Calling Initialize again while already Initialized or Started is a
// no-op.
func (l *Library) Initialize(ctx context.Context, cb Callbacks) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateUninitialized {
		return nil
	}
	l.cb = cb

	if err := os.MkdirAll(l.cfg.Thumbnail.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create thumbnail dir: %w", err)
	}

	engine, err := dbengine.Open(ctx, l.cfg.Database.Path, l.cfg.Database.BusyTimeout,
		dbengine.WithRetries(l.cfg.Database.MaxRetries, l.cfg.Database.RetryBaseDelay))
	if err != nil {
		return internalerrors.NewSchemaMigration(err)
	}

	if err := schema.Migrate(ctx, engine); err != nil {
		engine.Close()
		return internalerrors.NewSchemaMigration(err)
	}

	l.engine = engine
	l.store = store.New(engine)

	l.bus = events.NewBus(256)
	events.SetGlobalBus(l.bus)
	l.bus.Start()
	l.bus.Subscribe(l.relayBusEvent)

	l.notifier = notifier.New(l.cfg.Notifier.DebounceWindow, delivererFunc(l.deliverBatch))
	l.notifier.Start()

	l.devices = devicemgr.New(l.store.Devices)

	l.pipeline = parser.New(l.store, l.cfg.Parser.MaxTemporaryRetries)
	l.pipeline.Register(parser.NewProbeService(l.store, l.devices))
	l.pipeline.Register(parser.NewTagsService(l.store, l.devices))
	l.pipeline.Register(parser.NewThumbnailService(l.store, l.cfg.Thumbnail))
	l.pipeline.OnIdleChanged(func(idle bool) {
		if l.cb.OnBackgroundTasksIdleChanged != nil {
			l.cb.OnBackgroundTasksIdleChanged(idle)
		}
	})
	l.pipeline.OnStatsUpdated(func(percent int) {
		if l.cb.OnParsingStatsUpdated != nil {
			l.cb.OnParsingStatsUpdated(percent)
		}
	})

	l.disc = discoverer.New(l.factory, l.store, l.pipeline)

	l.load = throttle.New(l.pipeline, l.cfg.Performance.CPUThreshold, l.cfg.Performance.SampleInterval)

	l.state = StateInitialized
	logger.Info("library initialized", logger.String("db_path", l.cfg.Database.Path))
	return nil
}

// Start refreshes device presence against the current factory and launches
// the discoverer and parser pipeline threads. Initialize must have already
// succeeded.
func (l *Library) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == StateStarted {
		return nil
	}
	if l.state != StateInitialized {
		return internalerrors.New(internalerrors.KindInvalidArgument, "library must be Initialized before Start")
	}

	if err := l.devices.RefreshDevices(ctx, l.factory); err != nil {
		logger.Warn("device refresh failed at startup", logger.Err("error", err))
	}

	l.pipeline.Start()
	if err := l.pipeline.Restore(ctx); err != nil {
		logger.Warn("failed to restore pending parse tasks", logger.Err("error", err))
	}
	l.disc.Start()
	if l.cfg.Performance.EnableAdaptiveThrottling {
		l.load.Start()
	}

	l.state = StateStarted
	logger.Info("library started")
	return nil
}

// Stop drains the discoverer's command queue, pauses and joins the parser
// pipeline, stops the notifier, and closes the database. Safe to call from
// any state; a no-op once already Stopped.
func (l *Library) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == StateStopped || l.state == StateUninitialized {
		return nil
	}

	if l.disc != nil {
		l.disc.Stop()
	}
	if l.load != nil && l.cfg.Performance.EnableAdaptiveThrottling {
		l.load.Stop()
	}
	if l.pipeline != nil {
		l.pipeline.Stop()
	}
	if l.notifier != nil {
		l.notifier.Stop()
	}
	if l.bus != nil {
		l.bus.Stop()
	}
	var closeErr error
	if l.engine != nil {
		closeErr = l.engine.Close()
	}

	l.state = StateStopped
	logger.Info("library stopped")
	return closeErr
}

func (l *Library) relayBusEvent(events.Event) {
	// Placeholder hook point for host code that subscribes to the global
	// bus directly (internal/server does); the facade itself does not need
	// to react to its own relayed events.
}

type delivererFunc func(kind notifier.Kind, action notifier.Action, ids []int64)

func (f delivererFunc) Deliver(kind notifier.Kind, action notifier.Action, ids []int64) { f(kind, action, ids) }

// deliverBatch fetches full rows for Added/Modified batches (except album
// tracks, see deliverAlbumTrack) before handing them to the matching
// Callbacks field; Removed batches carry bare ids.
func (l *Library) deliverBatch(kind notifier.Kind, action notifier.Action, ids []int64) {
	ctx := context.Background()
	switch kind {
	case notifier.KindMedia:
		l.deliverMedia(ctx, action, ids)
	case notifier.KindArtist:
		l.deliverArtist(ctx, action, ids)
	case notifier.KindAlbum:
		l.deliverAlbum(ctx, action, ids)
	case notifier.KindAlbumTrack:
		l.deliverAlbumTrack(ctx, action, ids)
	case notifier.KindGenre:
		l.deliverGenre(ctx, action, ids)
	case notifier.KindPlaylist:
		l.deliverPlaylist(ctx, action, ids)
	}
}

func (l *Library) deliverMedia(ctx context.Context, action notifier.Action, ids []int64) {
	if action == notifier.ActionRemoved {
		if l.cb.OnMediaRemoved != nil {
			l.cb.OnMediaRemoved(ids)
		}
		return
	}
	rows := make([]*model.Media, 0, len(ids))
	for _, id := range ids {
		if m, err := l.store.Media.GetByID(ctx, id); err == nil && m != nil {
			rows = append(rows, m)
		}
	}
	if action == notifier.ActionAdded && l.cb.OnMediaAdded != nil {
		l.cb.OnMediaAdded(rows)
	} else if action == notifier.ActionModified && l.cb.OnMediaModified != nil {
		l.cb.OnMediaModified(rows)
	}
}

func (l *Library) deliverArtist(ctx context.Context, action notifier.Action, ids []int64) {
	if action == notifier.ActionRemoved {
		if l.cb.OnArtistRemoved != nil {
			l.cb.OnArtistRemoved(ids)
		}
		return
	}
	rows := make([]*model.Artist, 0, len(ids))
	for _, id := range ids {
		if a, err := l.store.Artists.GetByID(ctx, id); err == nil && a != nil {
			rows = append(rows, a)
		}
	}
	if action == notifier.ActionAdded && l.cb.OnArtistAdded != nil {
		l.cb.OnArtistAdded(rows)
	} else if action == notifier.ActionModified && l.cb.OnArtistModified != nil {
		l.cb.OnArtistModified(rows)
	}
}

func (l *Library) deliverAlbum(ctx context.Context, action notifier.Action, ids []int64) {
	if action == notifier.ActionRemoved {
		if l.cb.OnAlbumRemoved != nil {
			l.cb.OnAlbumRemoved(ids)
		}
		return
	}
	rows := make([]*model.Album, 0, len(ids))
	for _, id := range ids {
		if a, err := l.store.Albums.GetByID(ctx, id); err == nil && a != nil {
			rows = append(rows, a)
		}
	}
	if action == notifier.ActionAdded && l.cb.OnAlbumAdded != nil {
		l.cb.OnAlbumAdded(rows)
	} else if action == notifier.ActionModified && l.cb.OnAlbumModified != nil {
		l.cb.OnAlbumModified(rows)
	}
}

func (l *Library) deliverAlbumTrack(ctx context.Context, action notifier.Action, ids []int64) {
	if action == notifier.ActionRemoved {
		if l.cb.OnAlbumTrackRemoved != nil {
			l.cb.OnAlbumTrackRemoved(ids)
		}
		return
	}
	// AlbumTrack rows are not fetched: there is no lookup of an album track
	// by id, so the Added/Modified callbacks receive nil rather than rows.
	if action == notifier.ActionAdded && l.cb.OnAlbumTrackAdded != nil {
		l.cb.OnAlbumTrackAdded(nil)
	} else if action == notifier.ActionModified && l.cb.OnAlbumTrackModified != nil {
		l.cb.OnAlbumTrackModified(nil)
	}
}

func (l *Library) deliverGenre(ctx context.Context, action notifier.Action, ids []int64) {
	if action == notifier.ActionRemoved {
		if l.cb.OnGenreRemoved != nil {
			l.cb.OnGenreRemoved(ids)
		}
		return
	}
	rows := make([]*model.Genre, 0, len(ids))
	for _, id := range ids {
		if g, err := l.store.Genres.GetByID(ctx, id); err == nil && g != nil {
			rows = append(rows, g)
		}
	}
	if action == notifier.ActionAdded && l.cb.OnGenreAdded != nil {
		l.cb.OnGenreAdded(rows)
	} else if action == notifier.ActionModified && l.cb.OnGenreModified != nil {
		l.cb.OnGenreModified(rows)
	}
}

func (l *Library) deliverPlaylist(ctx context.Context, action notifier.Action, ids []int64) {
	if action == notifier.ActionRemoved {
		if l.cb.OnPlaylistRemoved != nil {
			l.cb.OnPlaylistRemoved(ids)
		}
		return
	}
	rows := make([]*model.Playlist, 0, len(ids))
	for _, id := range ids {
		if p, err := l.store.Playlists.GetByID(ctx, id); err == nil && p != nil {
			rows = append(rows, p)
		}
	}
	if action == notifier.ActionAdded && l.cb.OnPlaylistAdded != nil {
		l.cb.OnPlaylistAdded(rows)
	} else if action == notifier.ActionModified && l.cb.OnPlaylistModified != nil {
		l.cb.OnPlaylistModified(rows)
	}
}
