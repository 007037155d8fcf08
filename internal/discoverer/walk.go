package discoverer

import (
	"context"
	"fmt"
	"time"

	"github.com/ashgrove/medialib/internal/dbengine"
	"github.com/ashgrove/medialib/internal/model"
	"github.com/ashgrove/medialib/internal/vfs"
)

// walkEntryPoint resolves entryPoint's device and walks the tree rooted at
// it depth-first, per spec.md §4.F steps 1–5.
func (w *Worker) walkEntryPoint(ctx context.Context, entryPoint string) error {
	fsDevice, err := w.factory.NewDevice(entryPoint)
	if err != nil {
		return fmt.Errorf("resolve device for %s: %w", entryPoint, err)
	}

	device, err := w.store.Devices.GetByUUID(ctx, fsDevice.UUID())
	if err != nil {
		return fmt.Errorf("lookup device %s: %w", fsDevice.UUID(), err)
	}
	if device == nil {
		device = &model.Device{
			UUID:        fsDevice.UUID(),
			Scheme:      fsDevice.Scheme(),
			IsRemovable: fsDevice.IsRemovable(),
			IsPresent:   true,
		}
		if err := w.store.Devices.Create(ctx, device); err != nil {
			return fmt.Errorf("create device %s: %w", fsDevice.UUID(), err)
		}
	}

	mountpointMRL := vfs.FromLocalPath(fsDevice.Mountpoint())

	return w.walkDir(ctx, device, mountpointMRL, entryPoint, nil)
}

// walkDir reconciles one directory's folder/file rows against disk, then
// recurses into its subdirectories. mountpointMRL anchors the relative path
// stored for removable devices; dirMRL is the directory currently walked.
func (w *Worker) walkDir(ctx context.Context, device *model.Device, mountpointMRL, dirMRL string, parentFolderID *int64) error {
	dir, err := w.factory.NewDirectory(dirMRL)
	if err != nil {
		w.log.Warn("failed to open directory, skipping", "mrl", dirMRL, "error", err)
		return nil
	}

	folderPath := folderPath(device, mountpointMRL, dirMRL)

	folder, err := w.store.Folders.GetByPath(ctx, device.ID, folderPath)
	if err != nil {
		return fmt.Errorf("lookup folder %s: %w", folderPath, err)
	}
	if folder == nil {
		folder = &model.Folder{
			Path: folderPath, ParentID: parentFolderID, DeviceID: device.ID,
			IsRemovable: device.IsRemovable, IsPresent: true,
		}
		if err := w.store.Folders.Create(ctx, w.store.Engine, folder); err != nil {
			return fmt.Errorf("create folder %s: %w", folderPath, err)
		}
	}
	if folder.IsBlacklisted {
		return nil
	}

	if err := w.reconcileFiles(ctx, dir, folder, mountpointMRL); err != nil {
		w.log.Warn("failed to reconcile files, continuing", "mrl", dirMRL, "error", err)
	}

	subdirs, err := dir.Dirs()
	if err != nil {
		w.log.Warn("failed to list subdirectories, skipping recursion", "mrl", dirMRL, "error", err)
		return nil
	}
	for _, sub := range subdirs {
		if err := w.walkDir(ctx, device, mountpointMRL, sub.MRL(), &folder.ID); err != nil {
			w.log.Warn("failed to walk subdirectory", "mrl", sub.MRL(), "error", err)
		}
	}
	return nil
}

// folderPath computes the path stored on a Folder row: relative to the
// device mountpoint when removable, the full MRL otherwise.
func folderPath(device *model.Device, mountpointMRL, dirMRL string) string {
	if device.IsRemovable {
		return vfs.RemovePath(dirMRL, mountpointMRL)
	}
	return dirMRL
}

// filePath computes the path stored on a File row: relative to the device
// mountpoint when removable, the full MRL otherwise. Mirrors folderPath,
// keyed off folder.IsRemovable (copied from the owning device at folder
// creation) instead of a separate device lookup.
func filePath(folder *model.Folder, mountpointMRL, fileMRL string) string {
	if folder.IsRemovable {
		return vfs.RemovePath(fileMRL, mountpointMRL)
	}
	return fileMRL
}

// reconcileFiles implements spec.md §4.F steps 3–4 for one directory: add
// rows for new supported files, drop rows for files no longer on disk.
// mountpointMRL lets onDisk's keys be computed in the same relative/full
// form the stored File.MRL is in, so a removable device replugged under a
// different mount path still matches its known files by identity instead
// of every one of them looking new.
func (w *Worker) reconcileFiles(ctx context.Context, dir vfs.Directory, folder *model.Folder, mountpointMRL string) error {
	diskFiles, err := dir.Files()
	if err != nil {
		return fmt.Errorf("list files in %s: %w", dir.MRL(), err)
	}

	onDisk := make(map[string]vfs.File, len(diskFiles))
	for _, f := range diskFiles {
		if vfs.IsSupportedExtension(f.Extension()) {
			onDisk[filePath(folder, mountpointMRL, f.MRL())] = f
		}
	}

	existing, err := w.store.Files.ListByFolder(ctx, folder.ID)
	if err != nil {
		return fmt.Errorf("list known files in folder %d: %w", folder.ID, err)
	}
	knownByMRL := make(map[string]*model.File, len(existing))
	for _, f := range existing {
		knownByMRL[f.MRL] = f
	}

	for path, f := range onDisk {
		if _, known := knownByMRL[path]; known {
			continue
		}
		if err := w.addNewFile(ctx, folder, path, f); err != nil {
			w.log.Warn("failed to register new file, skipping", "mrl", path, "error", err)
		}
	}

	for path, known := range knownByMRL {
		if _, present := onDisk[path]; present {
			continue
		}
		if err := w.removeMissingFile(ctx, known); err != nil {
			w.log.Warn("failed to remove missing file", "mrl", path, "error", err)
		}
	}

	return nil
}

// addNewFile creates the Media and File rows for a freshly-discovered
// supported file and enqueues it on the parser. path is diskFile's MRL in
// the form filePath computed it (relative to the device root on removable
// media, the full MRL otherwise) — the value stored on the File row.
func (w *Worker) addNewFile(ctx context.Context, folder *model.Folder, path string, diskFile vfs.File) error {
	var media *model.Media
	var file *model.File

	err := w.store.Engine.WithTx(ctx, func(tx *dbengine.Tx) error {
		media = &model.Media{
			Type: model.MediaTypeUnknown, Subtype: model.MediaSubtypeUnknown,
			Filename: diskFile.Name(), InsertionDate: time.Now(), IsPresent: folder.IsPresent,
		}
		if err := w.store.Media.Create(ctx, tx, media); err != nil {
			return err
		}
		file = &model.File{
			MRL: path, FolderID: folder.ID, Type: model.FileTypeMain,
			LastModificationDate: diskFile.LastModificationTime(), MediaID: media.ID,
			IsRemovable: folder.IsRemovable, IsPresent: folder.IsPresent,
		}
		return w.store.Files.Create(ctx, tx, file)
	})
	if err != nil {
		return err
	}

	w.parser.Enqueue(media.ID, file.ID)
	return nil
}

// removeMissingFile deletes a File row no longer backed by disk, and its
// Media too if that was the file's last backing row.
func (w *Worker) removeMissingFile(ctx context.Context, file *model.File) error {
	return w.store.Engine.WithTx(ctx, func(tx *dbengine.Tx) error {
		if err := w.store.Files.Delete(ctx, tx, file.ID); err != nil {
			return err
		}
		var siblings int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM files WHERE media_id = ?`, file.MediaID).Scan(&siblings); err != nil {
			return err
		}
		if siblings == 0 {
			return w.store.Media.Delete(ctx, tx, file.MediaID)
		}
		return nil
	})
}
