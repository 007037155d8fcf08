package discoverer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ashgrove/medialib/internal/dbengine"
	"github.com/ashgrove/medialib/internal/schema"
	"github.com/ashgrove/medialib/internal/store"
	"github.com/ashgrove/medialib/internal/vfs"
	"github.com/ashgrove/medialib/internal/vfs/local"
)

type fakeParserQueue struct {
	enqueued [][2]int64
}

func (f *fakeParserQueue) Enqueue(mediaID, fileID int64) {
	f.enqueued = append(f.enqueued, [2]int64{mediaID, fileID})
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "medialib.db")
	eng, err := dbengine.Open(context.Background(), path, 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	require.NoError(t, schema.Migrate(context.Background(), eng))
	return store.New(eng)
}

func TestDiscoverCreatesMediaAndFileForSupportedExtensions(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "track.mp3"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("data"), 0o644))

	s := openTestStore(t)
	factory := local.NewFactory()
	queue := &fakeParserQueue{}
	w := New(factory, s, queue)
	w.Start()
	defer w.Stop()

	entryPoint := vfs.FromLocalPath(root)
	require.NoError(t, w.Discover(entryPoint))

	require.Len(t, queue.enqueued, 1)

	folders, err := s.Folders.ListByDevice(context.Background(), deviceIDFor(t, s, factory, entryPoint))
	require.NoError(t, err)
	require.Len(t, folders, 1)

	files, err := s.Files.ListByFolder(context.Background(), folders[0].ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Contains(t, files[0].MRL, "track.mp3")
}

func TestReconcileDeletesMissingFileAndOrphanedMedia(t *testing.T) {
	root := t.TempDir()
	trackPath := filepath.Join(root, "track.mp3")
	require.NoError(t, os.WriteFile(trackPath, []byte("data"), 0o644))

	s := openTestStore(t)
	factory := local.NewFactory()
	queue := &fakeParserQueue{}
	w := New(factory, s, queue)
	w.Start()
	defer w.Stop()

	entryPoint := vfs.FromLocalPath(root)
	require.NoError(t, w.Discover(entryPoint))
	require.Len(t, queue.enqueued, 1)
	mediaID := queue.enqueued[0][0]

	require.NoError(t, os.Remove(trackPath))
	require.NoError(t, w.Discover(entryPoint))

	_, err := s.Media.GetByID(context.Background(), mediaID)
	require.NoError(t, err)
	got, err := s.Media.GetByID(context.Background(), mediaID)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestBanSkipsWalkAndUnbanRestoresIt(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "track.mp3"), []byte("data"), 0o644))

	s := openTestStore(t)
	factory := local.NewFactory()
	queue := &fakeParserQueue{}
	w := New(factory, s, queue)
	w.Start()
	defer w.Stop()

	entryPoint := vfs.FromLocalPath(root)
	require.NoError(t, w.Ban(entryPoint))
	require.NoError(t, w.Discover(entryPoint))
	require.Empty(t, queue.enqueued, "banned folder must not be walked")

	require.NoError(t, w.Unban(entryPoint))
	require.Len(t, queue.enqueued, 1, "unban should have re-walked the folder")
}

func deviceIDFor(t *testing.T, s *store.Store, factory *local.Factory, entryPoint string) int64 {
	t.Helper()
	d, err := factory.NewDevice(entryPoint)
	require.NoError(t, err)
	device, err := s.Devices.GetByUUID(context.Background(), d.UUID())
	require.NoError(t, err)
	require.NotNil(t, device)
	return device.ID
}
