package schema

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ashgrove/medialib/internal/dbengine"
	"github.com/ashgrove/medialib/internal/model"
)

func openMigrated(t *testing.T) *dbengine.Engine {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	eng, err := dbengine.Open(context.Background(), path, 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	require.NoError(t, Migrate(context.Background(), eng))
	return eng
}

func TestMigrateCreatesSentinelArtists(t *testing.T) {
	eng := openMigrated(t)

	var name *string
	err := eng.QueryRow(context.Background(), `SELECT name FROM artists WHERE id = ?`, model.UnknownArtistID).Scan(&name)
	require.NoError(t, err)
	require.Nil(t, name)

	err = eng.QueryRow(context.Background(), `SELECT name FROM artists WHERE id = ?`, model.VariousArtistsID).Scan(&name)
	require.NoError(t, err)
	require.Nil(t, name)
}

func TestMigrateSetsVersion(t *testing.T) {
	eng := openMigrated(t)
	var version int
	require.NoError(t, eng.QueryRow(context.Background(), `SELECT db_model_version FROM settings`).Scan(&version))
	require.Equal(t, CurrentVersion, version)
}

func TestMigrateIsIdempotent(t *testing.T) {
	eng := openMigrated(t)
	require.NoError(t, Migrate(context.Background(), eng))

	var count int
	require.NoError(t, eng.QueryRow(context.Background(), `SELECT COUNT(*) FROM artists`).Scan(&count))
	require.Equal(t, 2, count)
}

func TestPresencePropagatesDeviceToFolderToFileToMedia(t *testing.T) {
	eng := openMigrated(t)
	ctx := context.Background()

	_, err := eng.Exec(ctx, `INSERT INTO devices (id, uuid, scheme, is_removable, is_present) VALUES (1, 'dev-1', 'file', 1, 1)`)
	require.NoError(t, err)
	_, err = eng.Exec(ctx, `INSERT INTO folders (id, path, device_id, is_removable, is_present) VALUES (1, 'a', 1, 1, 1)`)
	require.NoError(t, err)
	_, err = eng.Exec(ctx, `INSERT INTO media (id, filename, insertion_date, is_present) VALUES (1, 'x.mp3', 0, 1)`)
	require.NoError(t, err)
	_, err = eng.Exec(ctx, `INSERT INTO files (id, mrl, folder_id, last_modification_date, media_id, is_removable, is_present) VALUES (1, 'file://a/x.mp3', 1, 0, 1, 1, 1)`)
	require.NoError(t, err)

	_, err = eng.Exec(ctx, `UPDATE devices SET is_present = 0 WHERE id = 1`)
	require.NoError(t, err)

	var filePresent, mediaPresent, folderPresent bool
	require.NoError(t, eng.QueryRow(ctx, `SELECT is_present FROM folders WHERE id = 1`).Scan(&folderPresent))
	require.NoError(t, eng.QueryRow(ctx, `SELECT is_present FROM files WHERE id = 1`).Scan(&filePresent))
	require.NoError(t, eng.QueryRow(ctx, `SELECT is_present FROM media WHERE id = 1`).Scan(&mediaPresent))

	require.False(t, folderPresent)
	require.False(t, filePresent)
	require.False(t, mediaPresent)
}

func TestAlbumNbTracksAndPresenceViaAlbumTrack(t *testing.T) {
	eng := openMigrated(t)
	ctx := context.Background()

	_, err := eng.Exec(ctx, `INSERT INTO artists (name, nb_albums, is_present) VALUES ('Artist X', 0, 0)`)
	require.NoError(t, err)
	var artistID int64
	require.NoError(t, eng.QueryRow(ctx, `SELECT last_insert_rowid()`).Scan(&artistID))

	_, err = eng.Exec(ctx, `INSERT INTO albums (title, artist_id, is_present) VALUES ('Album X', ?, 0)`, artistID)
	require.NoError(t, err)
	var albumID int64
	require.NoError(t, eng.QueryRow(ctx, `SELECT last_insert_rowid()`).Scan(&albumID))

	_, err = eng.Exec(ctx, `INSERT INTO media (filename, insertion_date, is_present) VALUES ('t.mp3', 0, 1)`)
	require.NoError(t, err)
	var mediaID int64
	require.NoError(t, eng.QueryRow(ctx, `SELECT last_insert_rowid()`).Scan(&mediaID))

	_, err = eng.Exec(ctx, `INSERT INTO album_tracks (media_id, album_id, is_present) VALUES (?, ?, 1)`, mediaID, albumID)
	require.NoError(t, err)

	var nbTracks int
	require.NoError(t, eng.QueryRow(ctx, `SELECT nb_tracks FROM albums WHERE id = ?`, albumID).Scan(&nbTracks))
	require.Equal(t, 1, nbTracks)

	var nbAlbums int
	require.NoError(t, eng.QueryRow(ctx, `SELECT nb_albums FROM artists WHERE id = ?`, artistID).Scan(&nbAlbums))
	require.Equal(t, 1, nbAlbums)

	// Re-asserting media presence fires the presence trigger, propagating through album_tracks to the album and artist.
	_, err = eng.Exec(ctx, `UPDATE media SET is_present = 1 WHERE id = ?`, mediaID)
	require.NoError(t, err)

	var albumPresent, artistPresent bool
	require.NoError(t, eng.QueryRow(ctx, `SELECT is_present FROM albums WHERE id = ?`, albumID).Scan(&albumPresent))
	require.NoError(t, eng.QueryRow(ctx, `SELECT is_present FROM artists WHERE id = ?`, artistID).Scan(&artistPresent))
	require.True(t, albumPresent)
	require.True(t, artistPresent)
}
