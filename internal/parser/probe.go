package parser

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/ashgrove/medialib/internal/logger"
	"github.com/ashgrove/medialib/internal/store"
	"github.com/ashgrove/medialib/internal/vfs"
)

// ProbeService computes a file's checksum before handing off to
// TagsService. It is the highest-priority built-in service, so it always
// runs first.
type ProbeService struct {
	store    *store.Store
	resolver MountpointResolver
}

// NewProbeService creates the probe stage over st, resolving removable
// files' on-disk path through resolver.
func NewProbeService(st *store.Store, resolver MountpointResolver) *ProbeService {
	return &ProbeService{store: st, resolver: resolver}
}

func (s *ProbeService) Name() string    { return "probe" }
func (s *ProbeService) Priority() uint8 { return 100 }
func (s *ProbeService) Threads() uint16 { return 4 }

func (s *ProbeService) Run(ctx context.Context, task Task) Outcome {
	file, err := s.store.Files.GetByID(ctx, task.FileID)
	if err != nil {
		logger.Warn("probe: failed to load file", logger.Int64("file_id", task.FileID), logger.Err("error", err))
		return Error
	}
	if file == nil {
		return Discarded
	}

	mrl, err := resolveMRL(ctx, s.store, s.resolver, file)
	if err != nil {
		logger.Warn("probe: failed to resolve file location", logger.Int64("file_id", file.ID), logger.Err("error", err))
		return TemporaryUnavailable
	}

	localPath := vfs.ToLocalPath(mrl)
	if localPath == "" {
		// Non-local MRLs (future network factories) have no bytes to
		// checksum here; probe is a no-op for them.
		return Success
	}

	checksum, err := checksumFile(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Error
		}
		return TemporaryUnavailable
	}

	if err := s.store.Files.SetChecksum(ctx, file.ID, checksum); err != nil {
		logger.Warn("probe: failed to record checksum", logger.Int64("file_id", file.ID), logger.Err("error", err))
		return Error
	}

	return Success
}

func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
