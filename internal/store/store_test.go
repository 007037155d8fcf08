package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ashgrove/medialib/internal/dbengine"
	"github.com/ashgrove/medialib/internal/model"
	"github.com/ashgrove/medialib/internal/schema"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "medialib.db")
	eng, err := dbengine.Open(context.Background(), path, 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	require.NoError(t, schema.Migrate(context.Background(), eng))
	return New(eng)
}

func TestDeviceCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	d := &model.Device{UUID: "dev-1", Scheme: "file", IsRemovable: true, IsPresent: true}
	require.NoError(t, s.Devices.Create(ctx, d))
	require.NotZero(t, d.ID)

	got, err := s.Devices.GetByUUID(ctx, "dev-1")
	require.NoError(t, err)
	require.Equal(t, d.ID, got.ID)
}

func TestFolderAndFilePresenceCascadesFromDevice(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	d := &model.Device{UUID: "dev-1", Scheme: "file", IsPresent: true}
	require.NoError(t, s.Devices.Create(ctx, d))

	f := &model.Folder{Path: "/music", DeviceID: d.ID, IsPresent: true}
	require.NoError(t, s.Folders.Create(ctx, s.Engine, f))

	media := &model.Media{Type: model.MediaTypeAudio, Filename: "track.mp3", InsertionDate: time.Now(), IsPresent: true}
	require.NoError(t, s.Media.Create(ctx, s.Engine, media))

	file := &model.File{MRL: "file:///music/track.mp3", FolderID: f.ID, MediaID: media.ID,
		LastModificationDate: time.Now(), IsPresent: true}
	require.NoError(t, s.Files.Create(ctx, s.Engine, file))

	require.NoError(t, s.Devices.SetPresent(ctx, d.ID, false))

	gotMedia, err := s.Media.GetByID(ctx, media.ID)
	require.NoError(t, err)
	require.False(t, gotMedia.IsPresent)
}

func TestArtistAlbumTrackDerivationChain(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	media := &model.Media{Type: model.MediaTypeAudio, Filename: "01 song.flac", InsertionDate: time.Now(), IsPresent: true}
	require.NoError(t, s.Media.Create(ctx, s.Engine, media))

	title := "Geogaddi"
	err := s.Engine.WithTx(ctx, func(tx *dbengine.Tx) error {
		artist, err := s.Artists.FindOrCreateByName(ctx, tx, "Boards of Canada")
		if err != nil {
			return err
		}
		album, err := s.Albums.FindOrCreate(ctx, tx, &title, &artist.ID, 2002)
		if err != nil {
			return err
		}
		return s.Albums.CreateTrack(ctx, tx, &model.AlbumTrack{
			MediaID: media.ID, AlbumID: album.ID, ArtistID: &artist.ID, TrackNumber: 1, IsPresent: true,
		})
	})
	require.NoError(t, err)

	artist, err := s.Artists.GetByName(ctx, s.Engine, "boards of canada")
	require.NoError(t, err)
	require.NotNil(t, artist)
	require.Equal(t, 1, artist.NbAlbums)

	albumByArtist, err := s.Albums.GetByTitleAndArtist(ctx, s.Engine, &title, &artist.ID)
	require.NoError(t, err)
	require.NotNil(t, albumByArtist)
	require.Equal(t, 1, albumByArtist.NbTracks)
}

func TestSearchShortQueryReturnsEmpty(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	results, err := s.Search.Search(ctx, "ab", "", 10)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestSearchFindsMediaByTitle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	media := &model.Media{Type: model.MediaTypeAudio, Title: "Windowlicker", Filename: "w.mp3",
		InsertionDate: time.Now(), IsPresent: true}
	require.NoError(t, s.Media.Create(ctx, s.Engine, media))

	results, err := s.Search.Search(ctx, "windowlicker", "media", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, media.ID, results[0].ID)
}

func strPtr(s string) *string { return &s }
