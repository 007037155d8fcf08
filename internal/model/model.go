// Package model defines the plain Go structs backing every table the
// library owns. Rows are hand-scanned by internal/store; there is no ORM
// between these types and the database — the shape here is the schema.
package model

import "time"

// FileType enumerates the kinds of file a Folder entry can be.
type FileType string

const (
	FileTypeMain       FileType = "main"
	FileTypePart       FileType = "part"
	FileTypeSoundtrack FileType = "soundtrack"
	FileTypeSubtitles  FileType = "subtitles"
	FileTypePlaylist   FileType = "playlist"
)

// MediaType enumerates the top-level classification of a Media row.
type MediaType string

const (
	MediaTypeUnknown MediaType = "unknown"
	MediaTypeAudio   MediaType = "audio"
	MediaTypeVideo   MediaType = "video"
	MediaTypeExternal MediaType = "external"
	MediaTypeStream  MediaType = "stream"
)

// MediaSubtype enumerates the derived classification of a Media row, set
// once entity derivation has attached it to an AlbumTrack, Movie, or
// ShowEpisode.
type MediaSubtype string

const (
	MediaSubtypeUnknown     MediaSubtype = "unknown"
	MediaSubtypeAlbumTrack  MediaSubtype = "album_track"
	MediaSubtypeMovie       MediaSubtype = "movie"
	MediaSubtypeShowEpisode MediaSubtype = "show_episode"
)

// SortCriteria enumerates the supported listing sort orders.
type SortCriteria string

const (
	SortDefault              SortCriteria = "default"
	SortAlpha                SortCriteria = "alpha"
	SortDuration             SortCriteria = "duration"
	SortInsertionDate        SortCriteria = "insertion_date"
	SortLastModificationDate SortCriteria = "last_modification_date"
	SortReleaseDate          SortCriteria = "release_date"
	SortFileSize             SortCriteria = "file_size"
	SortArtist               SortCriteria = "artist"
	SortPlayCount            SortCriteria = "play_count"
	SortAlbum                SortCriteria = "album"
	SortFilename             SortCriteria = "filename"
)

// Sentinel artist ids, created during schema initialization and never
// removed.
const (
	UnknownArtistID   = int64(1)
	VariousArtistsID  = int64(2)
)

// Device is a filesystem device identified by a stable UUID, independent of
// its current mountpoint.
type Device struct {
	ID           int64
	UUID         string
	Scheme       string
	IsRemovable  bool
	IsPresent    bool
}

// Folder is a directory under a Device. Path is relative to the device
// mountpoint when the device is removable, otherwise absolute.
type Folder struct {
	ID            int64
	Path          string
	ParentID      *int64
	DeviceID      int64
	IsBlacklisted bool
	IsRemovable   bool
	IsPresent     bool
}

// File is a filesystem entry that belongs to exactly one Folder and, once
// parsed, to exactly one Media.
type File struct {
	ID                    int64
	MRL                   string
	FolderID              int64
	Type                  FileType
	LastModificationDate  time.Time
	IsParsed              bool
	ParserRetries         int
	MediaID               int64
	IsRemovable           bool
	IsExternal            bool
	IsPresent             bool
	Checksum              *string
}

// Media is the central playable entity. Subtype is set by entity derivation
// once a concrete kind (album track, movie, show episode) is known.
type Media struct {
	ID             int64
	Type           MediaType
	Subtype        MediaSubtype
	Title          string
	Filename       string
	DurationMs     int64
	PlayCount      int64
	LastPlayed     *time.Time
	Rating         *int
	Progress       float64
	InsertionDate  time.Time
	ReleaseDate    *time.Time
	ThumbnailPath  *string
	IsParsed       bool
	IsPresent      bool
}

// Album groups tracks under an optional artist.
type Album struct {
	ID            int64
	Title         *string
	ArtistID      *int64
	ReleaseYear   int
	ShortSummary  *string
	ArtworkMRL    *string
	NbTracks      int
	IsPresent     bool
}

// AlbumTrack attaches a Media to an Album as a numbered track. Each Media
// has at most one AlbumTrack.
type AlbumTrack struct {
	ID          int64
	MediaID     int64
	AlbumID     int64
	ArtistID    *int64
	GenreID     *int64
	TrackNumber int
	DiscNumber  int
	IsPresent   bool
}

// Artist is a performer or album-artist credit. Two sentinel rows always
// exist: UnknownArtistID and VariousArtistsID, both with a NULL Name.
type Artist struct {
	ID         int64
	Name       *string
	ShortBio   *string
	ArtworkURL *string
	NbAlbums   int
	IsPresent  bool
}

// Genre is a free-text classification attached to tracks, matched
// case-insensitively.
type Genre struct {
	ID               int64
	Name             string
	ShortDescription *string
}

// Show is a TV series, attached to Media rows of subtype ShowEpisode
// through ShowEpisode.ShowID.
type Show struct {
	ID          int64
	Title       string
	ReleaseYear int
}

// ShowEpisode attaches a Media to a Show at a season/episode coordinate.
type ShowEpisode struct {
	ID            int64
	MediaID       int64
	ShowID        int64
	SeasonNumber  int
	EpisodeNumber int
}

// Movie attaches a Media to feature-film metadata.
type Movie struct {
	ID          int64
	MediaID     int64
	ReleaseYear int
	Summary     *string
}

// Playlist is a named, ordered list of media.
type Playlist struct {
	ID           int64
	Name         string
	CreationDate time.Time
}

// PlaylistItem is one membership row in a Playlist's ordering.
type PlaylistItem struct {
	PlaylistID int64
	MediaID    int64
	Position   int
}

// Label is a free-text tag attachable to media, many-to-many.
type Label struct {
	ID   int64
	Name string
}

// HistoryEntry records a play of an externally-streamed MRL that has no
// backing Media row.
type HistoryEntry struct {
	ID        int64
	MRL       string
	PlayedAt  time.Time
}

// Settings is the single-row table tracking schema version.
type Settings struct {
	DBModelVersion int
}
