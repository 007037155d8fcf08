package parser

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/chai2010/webp"

	"github.com/ashgrove/medialib/internal/config"
	"github.com/ashgrove/medialib/internal/logger"
	"github.com/ashgrove/medialib/internal/store"
	"github.com/ashgrove/medialib/internal/vfs"
)

// ThumbnailService runs last. For video media it writes a placeholder
// WebP-encoded frame to Thumbnail.OutputDir and records the path — real
// frame decoding is an out-of-scope external collaborator per spec.md §1,
// so the generated image is a flat color swatch rather than a decoded
// frame, deterministic so repeated parses of the same file produce the
// same bytes.
type ThumbnailService struct {
	store *store.Store
	cfg   config.ThumbnailConfig
}

// NewThumbnailService creates the thumbnail stage over st, writing files
// under cfg.OutputDir.
func NewThumbnailService(st *store.Store, cfg config.ThumbnailConfig) *ThumbnailService {
	return &ThumbnailService{store: st, cfg: cfg}
}

func (s *ThumbnailService) Name() string    { return "thumbnail" }
func (s *ThumbnailService) Priority() uint8 { return 10 }
func (s *ThumbnailService) Threads() uint16 { return 2 }

func (s *ThumbnailService) Run(ctx context.Context, task Task) Outcome {
	file, err := s.store.Files.GetByID(ctx, task.FileID)
	if err != nil {
		logger.Warn("thumbnail: failed to load file", logger.Int64("file_id", task.FileID), logger.Err("error", err))
		return Error
	}
	if file == nil {
		return Discarded
	}
	if !vfs.IsVideoExtension(vfs.Extension(file.MRL)) {
		return Discarded
	}

	media, err := s.store.Media.GetByID(ctx, task.MediaID)
	if err != nil {
		logger.Warn("thumbnail: failed to load media", logger.Int64("media_id", task.MediaID), logger.Err("error", err))
		return Error
	}
	if media == nil {
		return Discarded
	}

	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
		return TemporaryUnavailable
	}

	outPath := filepath.Join(s.cfg.OutputDir, fmt.Sprintf("media-%d.webp", media.ID))
	if err := writePlaceholderThumbnail(outPath, s.cfg.MaxWidth, s.cfg.MaxHeight, media.ID); err != nil {
		logger.Warn("thumbnail: failed to encode placeholder", logger.Int64("media_id", media.ID), logger.Err("error", err))
		return Error
	}

	media.ThumbnailPath = &outPath
	if err := s.store.Media.UpdateDerived(ctx, s.store.Engine, media); err != nil {
		logger.Warn("thumbnail: failed to record thumbnail path", logger.Int64("media_id", media.ID), logger.Err("error", err))
		return Error
	}
	return Success
}

// writePlaceholderThumbnail encodes a flat color swatch, derived from
// mediaID so distinct media get visually distinct placeholders.
func writePlaceholderThumbnail(path string, width, height int, mediaID int64) error {
	if width <= 0 {
		width = 320
	}
	if height <= 0 {
		height = 180
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	c := color.RGBA{
		R: uint8(mediaID * 37 % 256),
		G: uint8(mediaID * 59 % 256),
		B: uint8(mediaID * 83 % 256),
		A: 255,
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return webp.Encode(f, img, &webp.Options{Lossless: true})
}
