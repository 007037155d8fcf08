// Package derive maps parsed tags onto album/artist/genre/track entities,
// per spec.md §4.H. It has no teacher analogue — the teacher defers this
// assignment to an external MusicBrainz enrichment plugin — so the
// resolution algorithm below is written directly from spec.md's steps 1–5,
// exercising internal/store and internal/entitycache the way the rest of
// this codebase's domain logic does.
package derive

import (
	"context"
	"strings"

	"github.com/ashgrove/medialib/internal/dbengine"
	"github.com/ashgrove/medialib/internal/logger"
	"github.com/ashgrove/medialib/internal/model"
	"github.com/ashgrove/medialib/internal/store"
)

// Tags is the set of fields a parser service extracts from a file's
// embedded metadata and hands to Track for album/artist/genre resolution.
type Tags struct {
	Title       string
	Album       string
	AlbumArtist string
	Artist      string
	Genre       string
	TrackNumber int
	DiscNumber  int
	Year        int
}

// Deriver resolves Tags into Album/Artist/Genre/AlbumTrack rows, run inside
// the same transaction that marks the backing File parsed — spec.md §9's
// "exactly one media's derivation step is one transaction".
type Deriver struct {
	store *store.Store
}

// New creates a Deriver over st.
func New(st *store.Store) *Deriver {
	return &Deriver{store: st}
}

// Track resolves tags for media, creating or reusing an Album, Artist(s),
// and Genre as needed, and attaches an AlbumTrack to media. It must run
// inside tx; the caller commits once Track and the rest of the derivation
// step (MediaRepo.UpdateDerived, FileRepo.MarkParsed) have all succeeded.
func (d *Deriver) Track(ctx context.Context, tx *dbengine.Tx, mediaID int64, tags Tags) (*model.AlbumTrack, error) {
	trackArtist, albumArtistKey, diverges, err := d.resolveArtists(ctx, tx, tags)
	if err != nil {
		return nil, err
	}

	album, err := d.resolveAlbum(ctx, tx, tags, albumArtistKey)
	if err != nil {
		return nil, err
	}

	if diverges {
		if err := d.promoteToVariousArtists(ctx, tx, album); err != nil {
			return nil, err
		}
	}

	if err := d.reconcileYear(ctx, tx, album, tags.Year); err != nil {
		return nil, err
	}

	var genreID *int64
	if name := strings.TrimSpace(tags.Genre); name != "" {
		genre, err := d.store.Genres.FindOrCreateByName(ctx, tx, name)
		if err != nil {
			return nil, err
		}
		genreID = &genre.ID
	}

	var trackArtistID *int64
	if trackArtist != nil {
		trackArtistID = &trackArtist.ID
	}

	track := &model.AlbumTrack{
		MediaID:     mediaID,
		AlbumID:     album.ID,
		ArtistID:    trackArtistID,
		GenreID:     genreID,
		TrackNumber: tags.TrackNumber,
		DiscNumber:  tags.DiscNumber,
		IsPresent:   false, // trg_album_track_presence_ai overwrites this from media on insert
	}
	if err := d.store.Albums.CreateTrack(ctx, tx, track); err != nil {
		return nil, err
	}
	return track, nil
}

// resolveArtists implements spec.md §4.H step 1: the per-track artist and
// the album's credited artist can diverge. Returns (trackArtist,
// albumArtistKey, diverges); when the track itself carries no artist tag,
// trackArtist is the album's artist (matching the teacher's "fall back to
// album artist" convention for untagged tracks), so it is never nil on
// success. albumArtistKey is always the artist resolved from
// the album_artist tag (or its stand-ins), never VariousArtists — it is the
// lookup key resolveAlbum matches an existing album row on, so the same
// album_artist tag always resolves to the same album row regardless of how
// any one track's own artist diverges. diverges reports whether this
// track's own artist differs from albumArtistKey, in which case the caller
// must promote the already-resolved album to VariousArtists rather than
// create (or match) a second row keyed on the sentinel.
func (d *Deriver) resolveArtists(ctx context.Context, tx *dbengine.Tx, tags Tags) (trackArtist, albumArtistKey *model.Artist, diverges bool, err error) {
	artistName := strings.TrimSpace(tags.Artist)
	albumArtistName := strings.TrimSpace(tags.AlbumArtist)

	if artistName == "" && albumArtistName == "" {
		unknown, err := d.store.Artists.GetByIDTx(ctx, tx, model.UnknownArtistID)
		if err != nil {
			return nil, nil, false, err
		}
		return unknown, unknown, false, nil
	}

	if albumArtistName == "" {
		a, err := d.store.Artists.FindOrCreateByName(ctx, tx, artistName)
		if err != nil {
			return nil, nil, false, err
		}
		return a, a, false, nil
	}

	albumArtistKey, err = d.store.Artists.FindOrCreateByName(ctx, tx, albumArtistName)
	if err != nil {
		return nil, nil, false, err
	}

	if artistName == "" || strings.EqualFold(artistName, albumArtistName) {
		return albumArtistKey, albumArtistKey, false, nil
	}

	// The track's own artist differs from album_artist: the album this
	// track belongs to (keyed on album_artist, looked up by resolveAlbum)
	// gets promoted to VariousArtists by the caller; the track itself keeps
	// its own credit.
	trackArtist, err = d.store.Artists.FindOrCreateByName(ctx, tx, artistName)
	if err != nil {
		return nil, nil, false, err
	}
	return trackArtist, albumArtistKey, true, nil
}

// resolveAlbum implements spec.md §4.H step 2. Album matching is exact on
// the normalized (case-insensitive, trimmed) title and the album_artist-
// derived key, so a track whose own artist diverges from album_artist still
// lands on the same album row as its album-mates; an empty title maps to
// the per-artist "unknown album" singleton fetched by (artist_id, title IS
// NULL) rather than creating a new row per untitled track.
func (d *Deriver) resolveAlbum(ctx context.Context, tx *dbengine.Tx, tags Tags, albumArtistKey *model.Artist) (*model.Album, error) {
	title := strings.TrimSpace(tags.Album)
	var albumArtistID *int64
	if albumArtistKey != nil {
		albumArtistID = &albumArtistKey.ID
	}

	if title == "" {
		return d.store.Albums.FindOrCreate(ctx, tx, nil, albumArtistID, 0)
	}
	return d.store.Albums.FindOrCreate(ctx, tx, &title, albumArtistID, tags.Year)
}

// promoteToVariousArtists re-credits album to the VariousArtists sentinel,
// once a track is found whose own artist diverges from the album_artist
// tag album was resolved against. A no-op once album is already credited
// to VariousArtists, so later divergent tracks on the same album don't
// re-issue the update.
func (d *Deriver) promoteToVariousArtists(ctx context.Context, tx *dbengine.Tx, album *model.Album) error {
	if album.ArtistID != nil && *album.ArtistID == model.VariousArtistsID {
		return nil
	}
	various, err := d.store.Artists.GetByIDTx(ctx, tx, model.VariousArtistsID)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE albums SET artist_id = ? WHERE id = ?`, various.ID, album.ID); err != nil {
		return err
	}
	album.ArtistID = &various.ID
	return nil
}

// reconcileYear implements spec.md §4.H's tie-break: the first write to an
// album's release_year wins; a later differing write resets it to 0 rather
// than overwriting silently. There is no force option: every later
// differing non-zero year resets the stored year to 0.
func (d *Deriver) reconcileYear(ctx context.Context, tx *dbengine.Tx, album *model.Album, year int) error {
	if year == 0 || album.ReleaseYear == year {
		return nil
	}
	if album.ReleaseYear == 0 {
		album.ReleaseYear = year
		_, err := tx.Exec(ctx, `UPDATE albums SET release_year = ? WHERE id = ?`, year, album.ID)
		return err
	}
	logger.Warn("conflicting album year, resetting to 0", logger.Int64("album_id", album.ID),
		logger.Int("existing_year", album.ReleaseYear), logger.Int("new_year", year))
	album.ReleaseYear = 0
	_, err := tx.Exec(ctx, `UPDATE albums SET release_year = 0 WHERE id = ?`, album.ID)
	return err
}
