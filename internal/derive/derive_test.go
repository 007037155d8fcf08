package derive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ashgrove/medialib/internal/dbengine"
	"github.com/ashgrove/medialib/internal/model"
	"github.com/ashgrove/medialib/internal/schema"
	"github.com/ashgrove/medialib/internal/store"
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

func seedMedia(t *testing.T, st *store.Store) int64 {
	t.Helper()
	m := &model.Media{Type: model.MediaTypeAudio, Filename: "track.mp3", InsertionDate: time.Now(), IsPresent: true}
	require.NoError(t, st.Media.Create(context.Background(), st.Engine, m))
	return m.ID
}

func TestTrackUntaggedFallsBackToUnknownArtist(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	d := New(st)
	mediaID := seedMedia(t, st)

	var track *model.AlbumTrack
	require.NoError(t, st.Engine.WithTx(ctx, func(tx *dbengine.Tx) error {
		var err error
		track, err = d.Track(ctx, tx, mediaID, Tags{Title: "track"})
		return err
	}))

	album, err := st.Albums.GetByID(ctx, track.AlbumID)
	require.NoError(t, err)
	require.Nil(t, album.Title)
	require.NotNil(t, album.ArtistID)
	require.Equal(t, model.UnknownArtistID, *album.ArtistID)
}

func TestTrackWithMatchingArtistAndAlbumArtistCreditsOneArtist(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	d := New(st)
	mediaID := seedMedia(t, st)

	var track *model.AlbumTrack
	require.NoError(t, st.Engine.WithTx(ctx, func(tx *dbengine.Tx) error {
		var err error
		track, err = d.Track(ctx, tx, mediaID, Tags{
			Title: "Sunn", Album: "Geogaddi", Artist: "Boards of Canada", AlbumArtist: "Boards of Canada", Year: 2002,
		})
		return err
	}))

	require.NotNil(t, track.ArtistID)
	album, err := st.Albums.GetByID(ctx, track.AlbumID)
	require.NoError(t, err)
	require.Equal(t, "Geogaddi", *album.Title)
	require.Equal(t, *track.ArtistID, *album.ArtistID)
	require.Equal(t, 2002, album.ReleaseYear)
}

func TestTrackWithDivergentArtistPromotesAlbumToVariousArtists(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	d := New(st)

	mediaID1 := seedMedia(t, st)
	mediaID2 := seedMedia(t, st)

	var track1, track2 *model.AlbumTrack
	require.NoError(t, st.Engine.WithTx(ctx, func(tx *dbengine.Tx) error {
		var err error
		track1, err = d.Track(ctx, tx, mediaID1, Tags{
			Title: "Intro", Album: "Compilation", Artist: "Artist A", AlbumArtist: "Compilation Crew",
		})
		return err
	}))
	require.NoError(t, st.Engine.WithTx(ctx, func(tx *dbengine.Tx) error {
		var err error
		track2, err = d.Track(ctx, tx, mediaID2, Tags{
			Title: "Outro", Album: "Compilation", Artist: "Artist B", AlbumArtist: "Compilation Crew",
		})
		return err
	}))

	album, err := st.Albums.GetByID(ctx, track1.AlbumID)
	require.NoError(t, err)
	require.Equal(t, model.VariousArtistsID, *album.ArtistID)
	require.Equal(t, track1.AlbumID, track2.AlbumID)
	require.NotEqual(t, *track1.ArtistID, *track2.ArtistID)
}

func TestTrackFirstMatchingThenDivergentArtistCollapsesOntoOneAlbum(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	d := New(st)

	mediaID1 := seedMedia(t, st)
	mediaID2 := seedMedia(t, st)

	var track1, track2 *model.AlbumTrack
	require.NoError(t, st.Engine.WithTx(ctx, func(tx *dbengine.Tx) error {
		var err error
		track1, err = d.Track(ctx, tx, mediaID1, Tags{
			Title: "Intro", Album: "Compilation", Artist: "Artist A", AlbumArtist: "Artist A",
		})
		return err
	}))
	require.NoError(t, st.Engine.WithTx(ctx, func(tx *dbengine.Tx) error {
		var err error
		track2, err = d.Track(ctx, tx, mediaID2, Tags{
			Title: "Outro", Album: "Compilation", Artist: "Artist B", AlbumArtist: "Artist A",
		})
		return err
	}))

	require.Equal(t, track1.AlbumID, track2.AlbumID, "both tracks must resolve to the same album row")

	album, err := st.Albums.GetByID(ctx, track1.AlbumID)
	require.NoError(t, err)
	require.Equal(t, model.VariousArtistsID, *album.ArtistID, "album must be promoted once a later track diverges")

	artistA, err := st.Artists.GetByName(ctx, st.Engine, "Artist A")
	require.NoError(t, err)
	require.NotNil(t, artistA)
	require.Equal(t, 0, artistA.NbAlbums, "demoted artist must lose credit for the album")
}

func TestTrackConflictingYearResetsToZero(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	d := New(st)

	mediaID1 := seedMedia(t, st)
	mediaID2 := seedMedia(t, st)

	require.NoError(t, st.Engine.WithTx(ctx, func(tx *dbengine.Tx) error {
		_, err := d.Track(ctx, tx, mediaID1, Tags{Title: "a", Album: "Reissue", Artist: "Band", Year: 1999})
		return err
	}))
	var track2 *model.AlbumTrack
	require.NoError(t, st.Engine.WithTx(ctx, func(tx *dbengine.Tx) error {
		var err error
		track2, err = d.Track(ctx, tx, mediaID2, Tags{Title: "b", Album: "Reissue", Artist: "Band", Year: 2015})
		return err
	}))

	album, err := st.Albums.GetByID(ctx, track2.AlbumID)
	require.NoError(t, err)
	require.Equal(t, 0, album.ReleaseYear)
}

func TestTrackEmptyGenreLeavesGenreIDNil(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	d := New(st)
	mediaID := seedMedia(t, st)

	var track *model.AlbumTrack
	require.NoError(t, st.Engine.WithTx(ctx, func(tx *dbengine.Tx) error {
		var err error
		track, err = d.Track(ctx, tx, mediaID, Tags{Title: "track"})
		return err
	}))
	require.Nil(t, track.GenreID)
}
