package medialib

import (
	"context"
	"time"

	"github.com/ashgrove/medialib/internal/model"
	"github.com/ashgrove/medialib/internal/notifier"
	"github.com/ashgrove/medialib/internal/store"
)

// --- Queries -----------------------------------------------------------

// Media returns the media with the given id, or nil if none exists.
func (l *Library) Media(ctx context.Context, id int64) (*model.Media, error) {
	return l.store.Media.GetByID(ctx, id)
}

// ListMedia returns present media ordered and paginated per sort/descending.
func (l *Library) ListMedia(ctx context.Context, sort model.SortCriteria, descending bool, limit, offset int) ([]*model.Media, error) {
	return l.store.Media.List(ctx, store.ListOptions{Sort: sort, Descending: descending, Limit: limit, Offset: offset})
}

// Artist returns the artist with the given id, or nil if none exists.
func (l *Library) Artist(ctx context.Context, id int64) (*model.Artist, error) {
	return l.store.Artists.GetByID(ctx, id)
}

// ListArtists returns every artist credited on at least one present album.
func (l *Library) ListArtists(ctx context.Context, limit, offset int) ([]*model.Artist, error) {
	return l.store.Artists.ListAlbumArtists(ctx, limit, offset)
}

// Album returns the album with the given id, or nil if none exists.
func (l *Library) Album(ctx context.Context, id int64) (*model.Album, error) {
	return l.store.Albums.GetByID(ctx, id)
}

// ListAlbums returns present albums, paginated.
func (l *Library) ListAlbums(ctx context.Context, limit, offset int) ([]*model.Album, error) {
	return l.store.Albums.List(ctx, limit, offset)
}

// AlbumsByArtist returns an artist's present albums, ordered by release year.
func (l *Library) AlbumsByArtist(ctx context.Context, artistID int64) ([]*model.Album, error) {
	return l.store.Albums.ListByArtist(ctx, artistID)
}

// AlbumTracks returns an album's tracks, ordered by disc then track number.
func (l *Library) AlbumTracks(ctx context.Context, albumID int64) ([]*model.AlbumTrack, error) {
	return l.store.Albums.ListTracks(ctx, albumID)
}

// Genre returns the genre with the given id, or nil if none exists.
func (l *Library) Genre(ctx context.Context, id int64) (*model.Genre, error) {
	return l.store.Genres.GetByID(ctx, id)
}

// ListGenres returns every genre.
func (l *Library) ListGenres(ctx context.Context) ([]*model.Genre, error) {
	return l.store.Genres.List(ctx)
}

// Playlist returns the playlist with the given id, or nil if none exists.
func (l *Library) Playlist(ctx context.Context, id int64) (*model.Playlist, error) {
	return l.store.Playlists.GetByID(ctx, id)
}

// ListPlaylists returns every playlist.
func (l *Library) ListPlaylists(ctx context.Context) ([]*model.Playlist, error) {
	return l.store.Playlists.List(ctx)
}

// PlaylistItems returns a playlist's membership, ordered by position.
func (l *Library) PlaylistItems(ctx context.Context, playlistID int64) ([]*model.PlaylistItem, error) {
	return l.store.Playlists.Items(ctx, playlistID)
}

// Search runs a full-text search across media/album/artist/genre/playlist
// names, or just kind if non-empty. A pattern shorter than 3 characters
// returns an empty result set rather than an error.
func (l *Library) Search(ctx context.Context, pattern, kind string, limit int) ([]store.SearchResult, error) {
	return l.store.Search.Search(ctx, pattern, kind, limit)
}

// History returns the most recent external-stream plays, newest first.
func (l *Library) History(ctx context.Context, limit int) ([]*model.HistoryEntry, error) {
	return l.store.History.List(ctx, limit)
}

// --- Mutations -----------------------------------------------------------

// CreateLabel creates (or returns the existing) label named name.
func (l *Library) CreateLabel(ctx context.Context, name string) (*model.Label, error) {
	return l.store.Labels.FindOrCreateByName(ctx, name)
}

// AttachLabel tags mediaID with labelID.
func (l *Library) AttachLabel(ctx context.Context, mediaID, labelID int64) error {
	return l.store.Media.AttachLabel(ctx, mediaID, labelID)
}

// DetachLabel untags mediaID from labelID.
func (l *Library) DetachLabel(ctx context.Context, mediaID, labelID int64) error {
	return l.store.Media.DetachLabel(ctx, mediaID, labelID)
}

// CreatePlaylist creates a new, empty playlist.
func (l *Library) CreatePlaylist(ctx context.Context, name string) (*model.Playlist, error) {
	p, err := l.store.Playlists.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	l.notifier.Enqueue(notifier.KindPlaylist, notifier.ActionAdded, p.ID)
	return p, nil
}

// DeletePlaylist removes a playlist and its membership rows.
func (l *Library) DeletePlaylist(ctx context.Context, id int64) error {
	if err := l.store.Playlists.Delete(ctx, id); err != nil {
		return err
	}
	l.notifier.Enqueue(notifier.KindPlaylist, notifier.ActionRemoved, id)
	return nil
}

// AppendToPlaylist adds mediaID to the end of playlistID's ordering.
func (l *Library) AppendToPlaylist(ctx context.Context, playlistID, mediaID int64) error {
	if err := l.store.Playlists.Append(ctx, playlistID, mediaID); err != nil {
		return err
	}
	l.notifier.Enqueue(notifier.KindPlaylist, notifier.ActionModified, playlistID)
	return nil
}

// RemoveFromPlaylist removes mediaID from playlistID.
func (l *Library) RemoveFromPlaylist(ctx context.Context, playlistID, mediaID int64) error {
	if err := l.store.Playlists.Remove(ctx, playlistID, mediaID); err != nil {
		return err
	}
	l.notifier.Enqueue(notifier.KindPlaylist, notifier.ActionModified, playlistID)
	return nil
}

// MovePlaylistItem relocates mediaID within playlistID to newPosition.
func (l *Library) MovePlaylistItem(ctx context.Context, playlistID, mediaID int64, newPosition int) error {
	if err := l.store.Playlists.Move(ctx, playlistID, mediaID, newPosition); err != nil {
		return err
	}
	l.notifier.Enqueue(notifier.KindPlaylist, notifier.ActionModified, playlistID)
	return nil
}

// AddMedia registers an external MRL (e.g. a network stream) as a playable
// Media row with no backing File, bypassing discovery and the parser chain
// entirely since there is nothing on a local filesystem to walk to.
func (l *Library) AddMedia(ctx context.Context, mrl string) (*model.Media, error) {
	m := &model.Media{
		Type:          model.MediaTypeExternal,
		Subtype:       model.MediaSubtypeUnknown,
		Title:         mrl,
		Filename:      mrl,
		InsertionDate: time.Now(),
		IsParsed:      true,
		IsPresent:     true,
	}
	if err := l.store.Media.Create(ctx, l.store.Engine, m); err != nil {
		return nil, err
	}
	l.notifier.Enqueue(notifier.KindMedia, notifier.ActionAdded, m.ID)
	return m, nil
}

// AddToStreamHistory records a play of an externally-streamed MRL.
func (l *Library) AddToStreamHistory(ctx context.Context, mrl string) error {
	return l.store.History.Add(ctx, mrl, time.Now())
}

// ClearHistory removes every stream-history entry.
func (l *Library) ClearHistory(ctx context.Context) error {
	return l.store.History.Clear(ctx)
}

// RecordPlay updates a media's play count, last-played time, and progress.
func (l *Library) RecordPlay(ctx context.Context, mediaID int64, progress float64) error {
	if err := l.store.Media.RecordPlay(ctx, mediaID, progress, time.Now()); err != nil {
		return err
	}
	l.notifier.Enqueue(notifier.KindMedia, notifier.ActionModified, mediaID)
	return nil
}

// SetRating sets (or clears, with rating nil) a media's rating.
func (l *Library) SetRating(ctx context.Context, mediaID int64, rating *int) error {
	if err := l.store.Media.SetRating(ctx, mediaID, rating); err != nil {
		return err
	}
	l.notifier.Enqueue(notifier.KindMedia, notifier.ActionModified, mediaID)
	return nil
}

// --- Discovery control ---------------------------------------------------

// Discover registers entryPoint and walks it for the first time.
func (l *Library) Discover(entryPoint string) error {
	if l.cb.OnDiscoveryStarted != nil {
		l.cb.OnDiscoveryStarted(entryPoint)
	}
	err := l.disc.Discover(entryPoint)
	if l.cb.OnDiscoveryCompleted != nil {
		l.cb.OnDiscoveryCompleted(entryPoint)
	}
	return err
}

// Reload re-walks every registered entry point asynchronously.
func (l *Library) Reload() {
	if l.cb.OnReloadStarted != nil {
		l.cb.OnReloadStarted()
	}
	l.disc.Reload()
	if l.cb.OnReloadCompleted != nil {
		l.cb.OnReloadCompleted()
	}
}

// ReloadEntryPoint re-walks a single entry point asynchronously.
func (l *Library) ReloadEntryPoint(entryPoint string) {
	l.disc.ReloadEntryPoint(entryPoint)
}

// BanFolder blacklists folderMRL and cascades deletion of its descendants.
func (l *Library) BanFolder(folderMRL string) error {
	err := l.disc.Ban(folderMRL)
	if l.cb.OnEntryPointBanned != nil {
		l.cb.OnEntryPointBanned(folderMRL, err == nil)
	}
	return err
}

// UnbanFolder clears folderMRL's blacklist flag and re-walks it.
func (l *Library) UnbanFolder(folderMRL string) error {
	err := l.disc.Unban(folderMRL)
	if l.cb.OnEntryPointUnbanned != nil {
		l.cb.OnEntryPointUnbanned(folderMRL, err == nil)
	}
	return err
}

// RemoveEntryPoint deregisters entryPoint and deletes everything rooted
// under it.
func (l *Library) RemoveEntryPoint(entryPoint string) error {
	err := l.disc.Remove(entryPoint)
	if l.cb.OnEntryPointRemoved != nil {
		l.cb.OnEntryPointRemoved(entryPoint, err == nil)
	}
	return err
}

// PauseBackgroundOperations cooperatively suspends every parser worker once
// its in-flight task completes.
func (l *Library) PauseBackgroundOperations() {
	l.pipeline.Pause()
}

// ResumeBackgroundOperations releases every parser worker parked on Pause.
func (l *Library) ResumeBackgroundOperations() {
	l.pipeline.Resume()
}

// ForceParserRetry re-enqueues fileID at the first parser service
// regardless of its current retry count.
func (l *Library) ForceParserRetry(ctx context.Context, fileID int64) error {
	return l.pipeline.ForceRetry(ctx, fileID)
}

// --- Device events ---------------------------------------------------------

// OnDevicePlugged records mountpoint as the current location of the device
// identified by uuid, and kicks off discovery under it if it is new.
func (l *Library) OnDevicePlugged(ctx context.Context, uuid, mountpoint string) (bool, error) {
	isNew, err := l.devices.OnDevicePlugged(ctx, uuid, mountpoint)
	if err != nil {
		return false, err
	}
	if l.cb.OnDevicePlugged != nil {
		l.cb.OnDevicePlugged(uuid, isNew)
	}
	if isNew {
		return true, l.Discover("file://" + mountpoint)
	}
	return isNew, nil
}

// OnDeviceUnplugged marks the device identified by uuid not present.
func (l *Library) OnDeviceUnplugged(ctx context.Context, uuid string) error {
	if err := l.devices.OnDeviceUnplugged(ctx, uuid); err != nil {
		return err
	}
	if l.cb.OnDeviceUnplugged != nil {
		l.cb.OnDeviceUnplugged(uuid)
	}
	return nil
}

// IsDeviceKnown reports whether a device with the given uuid has ever been
// observed.
func (l *Library) IsDeviceKnown(ctx context.Context, uuid string) (bool, error) {
	return l.devices.IsDeviceKnown(ctx, uuid)
}
