package parser

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ashgrove/medialib/internal/config"
	"github.com/ashgrove/medialib/internal/dbengine"
	"github.com/ashgrove/medialib/internal/model"
	"github.com/ashgrove/medialib/internal/schema"
	"github.com/ashgrove/medialib/internal/store"
	"github.com/ashgrove/medialib/internal/vfs"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "medialib.db")
	eng, err := dbengine.Open(context.Background(), path, 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	require.NoError(t, schema.Migrate(context.Background(), eng))
	return store.New(eng)
}

// seedFile writes content to a real temp file and creates the matching
// Device/Folder/Media/File rows, returning the File row for a parser
// service's Run.
func seedFile(t *testing.T, st *store.Store, filename string, content []byte) *model.File {
	t.Helper()
	ctx := context.Background()

	dir := t.TempDir()
	localPath := filepath.Join(dir, filename)
	require.NoError(t, os.WriteFile(localPath, content, 0o644))

	dev := &model.Device{UUID: "dev-" + filename, Scheme: "file", IsPresent: true}
	require.NoError(t, st.Devices.Create(ctx, dev))

	folder := &model.Folder{Path: dir, DeviceID: dev.ID, IsPresent: true}
	require.NoError(t, st.Folders.Create(ctx, st.Engine, folder))

	media := &model.Media{Type: model.MediaTypeAudio, Filename: filename, InsertionDate: time.Now(), IsPresent: true}
	require.NoError(t, st.Media.Create(ctx, st.Engine, media))

	file := &model.File{
		MRL:                  vfs.FromLocalPath(localPath),
		FolderID:             folder.ID,
		MediaID:              media.ID,
		LastModificationDate: time.Now(),
		IsPresent:            true,
	}
	require.NoError(t, st.Files.Create(ctx, st.Engine, file))
	return file
}

func TestProbeServiceComputesChecksum(t *testing.T) {
	st := openTestStore(t)
	file := seedFile(t, st, "track.mp3", []byte("fake mp3 bytes"))

	svc := NewProbeService(st, nil)
	outcome := svc.Run(context.Background(), Task{MediaID: file.MediaID, FileID: file.ID})
	require.Equal(t, Success, outcome)

	got, err := st.Files.GetByID(context.Background(), file.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Checksum)
	require.NotEmpty(t, *got.Checksum)
}

func TestProbeServiceMissingFileIsError(t *testing.T) {
	st := openTestStore(t)
	file := seedFile(t, st, "track.mp3", []byte("fake mp3 bytes"))
	require.NoError(t, os.Remove(vfs.ToLocalPath(file.MRL)))

	svc := NewProbeService(st, nil)
	outcome := svc.Run(context.Background(), Task{MediaID: file.MediaID, FileID: file.ID})
	require.Equal(t, Error, outcome)
}

func TestProbeServiceDiscardsUnknownFile(t *testing.T) {
	st := openTestStore(t)
	svc := NewProbeService(st, nil)
	outcome := svc.Run(context.Background(), Task{MediaID: 1, FileID: 9999})
	require.Equal(t, Discarded, outcome)
}

func TestTagsServiceFallsBackToFilenameTitleWithoutEmbeddedTags(t *testing.T) {
	st := openTestStore(t)
	file := seedFile(t, st, "01 Untagged Track.mp3", []byte("not a real mp3, no id3 frame"))

	svc := NewTagsService(st, nil)
	outcome := svc.Run(context.Background(), Task{MediaID: file.MediaID, FileID: file.ID})
	require.Equal(t, Success, outcome)

	media, err := st.Media.GetByID(context.Background(), file.MediaID)
	require.NoError(t, err)
	require.Equal(t, "01 Untagged Track", media.Title)
	require.Equal(t, model.MediaSubtypeAlbumTrack, media.Subtype)
	require.True(t, media.IsParsed)
}

func TestTagsServiceVideoTitlesFromFilenameWithoutDerivation(t *testing.T) {
	st := openTestStore(t)
	file := seedFile(t, st, "movie.mp4", []byte("not a real mp4"))

	svc := NewTagsService(st, nil)
	outcome := svc.Run(context.Background(), Task{MediaID: file.MediaID, FileID: file.ID})
	require.Equal(t, Discarded, outcome)

	media, err := st.Media.GetByID(context.Background(), file.MediaID)
	require.NoError(t, err)
	require.Equal(t, "movie", media.Title)
	require.True(t, media.IsParsed)
}

func TestThumbnailServiceWritesPlaceholderForVideo(t *testing.T) {
	st := openTestStore(t)
	file := seedFile(t, st, "clip.mp4", []byte("not a real mp4"))

	outDir := t.TempDir()
	svc := NewThumbnailService(st, config.ThumbnailConfig{OutputDir: outDir, MaxWidth: 32, MaxHeight: 18})
	outcome := svc.Run(context.Background(), Task{MediaID: file.MediaID, FileID: file.ID})
	require.Equal(t, Success, outcome)

	media, err := st.Media.GetByID(context.Background(), file.MediaID)
	require.NoError(t, err)
	require.NotNil(t, media.ThumbnailPath)
	info, err := os.Stat(*media.ThumbnailPath)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestThumbnailServiceDiscardsAudio(t *testing.T) {
	st := openTestStore(t)
	file := seedFile(t, st, "song.mp3", []byte("fake"))

	svc := NewThumbnailService(st, config.ThumbnailConfig{OutputDir: t.TempDir()})
	outcome := svc.Run(context.Background(), Task{MediaID: file.MediaID, FileID: file.ID})
	require.Equal(t, Discarded, outcome)
}
