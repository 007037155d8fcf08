package parser

import (
	"context"
	"os"
	"strings"

	"github.com/dhowden/tag"

	"github.com/ashgrove/medialib/internal/dbengine"
	"github.com/ashgrove/medialib/internal/derive"
	"github.com/ashgrove/medialib/internal/logger"
	"github.com/ashgrove/medialib/internal/model"
	"github.com/ashgrove/medialib/internal/store"
	"github.com/ashgrove/medialib/internal/vfs"
)

// TagsService runs after ProbeService. For audio files it reads embedded
// tags with dhowden/tag and hands them to internal/derive to resolve the
// Album/Artist/Genre/AlbumTrack chain; for video files it has nothing to
// extract (real container/stream inspection is an out-of-scope external
// collaborator) and simply titles the Media from its filename.
type TagsService struct {
	store    *store.Store
	derive   *derive.Deriver
	resolver MountpointResolver
}

// NewTagsService creates the tags stage over st, resolving removable
// files' on-disk path through resolver.
func NewTagsService(st *store.Store, resolver MountpointResolver) *TagsService {
	return &TagsService{store: st, derive: derive.New(st), resolver: resolver}
}

func (s *TagsService) Name() string    { return "tags" }
func (s *TagsService) Priority() uint8 { return 50 }
func (s *TagsService) Threads() uint16 { return 2 }

func (s *TagsService) Run(ctx context.Context, task Task) Outcome {
	file, err := s.store.Files.GetByID(ctx, task.FileID)
	if err != nil {
		logger.Warn("tags: failed to load file", logger.Int64("file_id", task.FileID), logger.Err("error", err))
		return Error
	}
	if file == nil {
		return Discarded
	}
	media, err := s.store.Media.GetByID(ctx, file.MediaID)
	if err != nil {
		logger.Warn("tags: failed to load media", logger.Int64("media_id", file.MediaID), logger.Err("error", err))
		return Error
	}
	if media == nil {
		return Discarded
	}

	ext := vfs.Extension(file.MRL)
	if vfs.IsVideoExtension(ext) {
		return s.finishVideo(ctx, file, media)
	}
	return s.finishAudio(ctx, file, media)
}

func (s *TagsService) finishVideo(ctx context.Context, file *model.File, media *model.Media) Outcome {
	media.Subtype = model.MediaSubtypeUnknown
	if media.Title == "" {
		media.Title = titleFromFilename(media.Filename)
	}
	media.IsParsed = true
	if err := s.store.Media.UpdateDerived(ctx, s.store.Engine, media); err != nil {
		logger.Warn("tags: failed to update video media", logger.Int64("media_id", media.ID), logger.Err("error", err))
		return Error
	}
	if err := s.store.Files.MarkParsed(ctx, s.store.Engine, file.ID, media.ID, file.Checksum); err != nil {
		logger.Warn("tags: failed to mark video file parsed", logger.Int64("file_id", file.ID), logger.Err("error", err))
		return Error
	}
	return Discarded
}

func (s *TagsService) finishAudio(ctx context.Context, file *model.File, media *model.Media) Outcome {
	mrl, err := resolveMRL(ctx, s.store, s.resolver, file)
	if err != nil {
		logger.Warn("tags: failed to resolve file location", logger.Int64("file_id", file.ID), logger.Err("error", err))
		return TemporaryUnavailable
	}

	localPath := vfs.ToLocalPath(mrl)
	if localPath == "" {
		return Success
	}

	f, err := os.Open(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Error
		}
		return TemporaryUnavailable
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		// No embedded tags is not fatal: derive against an empty Tags
		// value, which resolves to UnknownArtist/the per-artist unknown
		// album, per spec.md §4.H.
		meta = nil
	}

	tags := derive.Tags{Title: titleFromFilename(media.Filename)}
	if meta != nil {
		if t := strings.TrimSpace(meta.Title()); t != "" {
			tags.Title = t
		}
		tags.Album = meta.Album()
		tags.AlbumArtist = meta.AlbumArtist()
		tags.Artist = meta.Artist()
		tags.Genre = meta.Genre()
		tags.Year = meta.Year()
		trackNum, _ := meta.Track()
		tags.TrackNumber = trackNum
		discNum, _ := meta.Disc()
		tags.DiscNumber = discNum
	}

	err = s.store.Engine.WithTx(ctx, func(tx *dbengine.Tx) error {
		if _, err := s.derive.Track(ctx, tx, media.ID, tags); err != nil {
			return err
		}
		media.Subtype = model.MediaSubtypeAlbumTrack
		media.Title = tags.Title
		media.IsParsed = true
		if err := s.store.Media.UpdateDerived(ctx, tx, media); err != nil {
			return err
		}
		return s.store.Files.MarkParsed(ctx, tx, file.ID, media.ID, file.Checksum)
	})
	if err != nil {
		logger.Warn("tags: derivation failed", logger.Int64("file_id", file.ID), logger.Err("error", err))
		return Error
	}
	return Success
}

func titleFromFilename(filename string) string {
	if idx := strings.LastIndex(filename, "."); idx > 0 {
		return filename[:idx]
	}
	return filename
}
