package medialib

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ashgrove/medialib/internal/config"
	"github.com/ashgrove/medialib/internal/model"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "medialib.db")
	cfg.Thumbnail.OutputDir = filepath.Join(t.TempDir(), "thumbs")
	cfg.Notifier.DebounceWindow = 10 * time.Millisecond
	cfg.Performance.EnableAdaptiveThrottling = false
	return cfg
}

func newTestLibrary(t *testing.T, cb Callbacks) *Library {
	t.Helper()
	lib := New(testConfig(t))
	require.NoError(t, lib.Initialize(context.Background(), cb))
	require.NoError(t, lib.Start(context.Background()))
	t.Cleanup(func() { lib.Stop() })
	return lib
}

func TestLifecycleTransitionsThroughStates(t *testing.T) {
	lib := New(testConfig(t))
	require.Equal(t, StateUninitialized, lib.State())

	require.NoError(t, lib.Initialize(context.Background(), Callbacks{}))
	require.Equal(t, StateInitialized, lib.State())

	require.NoError(t, lib.Start(context.Background()))
	require.Equal(t, StateStarted, lib.State())

	require.NoError(t, lib.Stop())
	require.Equal(t, StateStopped, lib.State())
}

func TestInitializeIsIdempotent(t *testing.T) {
	lib := New(testConfig(t))
	require.NoError(t, lib.Initialize(context.Background(), Callbacks{}))
	require.NoError(t, lib.Initialize(context.Background(), Callbacks{}))
	require.Equal(t, StateInitialized, lib.State())
	require.NoError(t, lib.Stop())
}

func TestStartBeforeInitializeFails(t *testing.T) {
	lib := New(testConfig(t))
	require.Error(t, lib.Start(context.Background()))
}

func TestAddMediaFiresOnMediaAdded(t *testing.T) {
	var mu sync.Mutex
	var added []*model.Media
	lib := newTestLibrary(t, Callbacks{
		OnMediaAdded: func(m []*model.Media) {
			mu.Lock()
			added = append(added, m...)
			mu.Unlock()
		},
	})

	m, err := lib.AddMedia(context.Background(), "http://example.com/stream.mp3")
	require.NoError(t, err)
	require.NotZero(t, m.ID)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(added) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestCreateAndDeletePlaylist(t *testing.T) {
	lib := newTestLibrary(t, Callbacks{})
	ctx := context.Background()

	p, err := lib.CreatePlaylist(ctx, "Favorites")
	require.NoError(t, err)
	require.NotZero(t, p.ID)

	got, err := lib.Playlist(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "Favorites", got.Name)

	require.NoError(t, lib.DeletePlaylist(ctx, p.ID))
	got, err = lib.Playlist(ctx, p.ID)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestAppendAndMovePlaylistItem(t *testing.T) {
	lib := newTestLibrary(t, Callbacks{})
	ctx := context.Background()

	p, err := lib.CreatePlaylist(ctx, "Queue")
	require.NoError(t, err)

	m1, err := lib.AddMedia(ctx, "http://example.com/a.mp3")
	require.NoError(t, err)
	m2, err := lib.AddMedia(ctx, "http://example.com/b.mp3")
	require.NoError(t, err)

	require.NoError(t, lib.AppendToPlaylist(ctx, p.ID, m1.ID))
	require.NoError(t, lib.AppendToPlaylist(ctx, p.ID, m2.ID))

	items, err := lib.PlaylistItems(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.NoError(t, lib.MovePlaylistItem(ctx, p.ID, m2.ID, 0))
	items, err = lib.PlaylistItems(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, m2.ID, items[0].MediaID)
}

func TestDiscoverWalksRealEntryPointAndFiresCallbacks(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "track.mp3"), []byte("fake bytes"), 0o644))

	var started, completed []string
	lib := newTestLibrary(t, Callbacks{
		OnDiscoveryStarted:   func(ep string) { started = append(started, ep) },
		OnDiscoveryCompleted: func(ep string) { completed = append(completed, ep) },
	})

	entryPoint := "file://" + root
	require.NoError(t, lib.Discover(entryPoint))

	require.Equal(t, []string{entryPoint}, started)
	require.Equal(t, []string{entryPoint}, completed)

	require.Eventually(t, func() bool {
		media, err := lib.ListMedia(context.Background(), model.SortFilename, false, 10, 0)
		return err == nil && len(media) == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestRecordPlayAndSetRating(t *testing.T) {
	lib := newTestLibrary(t, Callbacks{})
	ctx := context.Background()

	m, err := lib.AddMedia(ctx, "http://example.com/a.mp3")
	require.NoError(t, err)

	require.NoError(t, lib.RecordPlay(ctx, m.ID, 0.5))
	rating := 4
	require.NoError(t, lib.SetRating(ctx, m.ID, &rating))

	got, err := lib.Media(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), got.PlayCount)
	require.NotNil(t, got.Rating)
	require.Equal(t, 4, *got.Rating)
}
