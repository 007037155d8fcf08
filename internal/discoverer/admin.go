package discoverer

import (
	"context"
	"fmt"

	"github.com/ashgrove/medialib/internal/model"
	"github.com/ashgrove/medialib/internal/vfs"
)

// ban marks folderMRL's folder row blacklisted, creating it first if the
// discoverer has never walked that path, and immediately deletes every
// descendant folder row (their file rows go with them via ON DELETE
// CASCADE). File rows directly inside the banned folder and media rows are
// not deleted by ban.
func (w *Worker) ban(ctx context.Context, folderMRL string) error {
	folder, err := w.resolveOrCreateFolder(ctx, folderMRL)
	if err != nil {
		return err
	}
	if err := w.store.Folders.SetBlacklisted(ctx, folder.ID, true); err != nil {
		return fmt.Errorf("blacklist folder %s: %w", folderMRL, err)
	}
	return w.deleteDescendants(ctx, folder.ID)
}

// unban clears folderMRL's blacklist flag; the caller re-walks afterward.
func (w *Worker) unban(ctx context.Context, folderMRL string) error {
	folder, err := w.resolveOrCreateFolder(ctx, folderMRL)
	if err != nil {
		return err
	}
	return w.store.Folders.SetBlacklisted(ctx, folder.ID, false)
}

// remove deregisters entryPoint and deletes every folder rooted under it
// (files and media cascade via ON DELETE CASCADE / the presence triggers).
func (w *Worker) remove(ctx context.Context, entryPoint string) error {
	w.mu.Lock()
	delete(w.entryPoints, entryPoint)
	w.mu.Unlock()

	fsDevice, err := w.factory.NewDevice(entryPoint)
	if err != nil {
		return fmt.Errorf("resolve device for %s: %w", entryPoint, err)
	}
	device, err := w.store.Devices.GetByUUID(ctx, fsDevice.UUID())
	if err != nil {
		return fmt.Errorf("lookup device %s: %w", fsDevice.UUID(), err)
	}
	if device == nil {
		return nil
	}

	mountpointMRL := vfs.FromLocalPath(fsDevice.Mountpoint())
	path := folderPath(device, mountpointMRL, entryPoint)
	folder, err := w.store.Folders.GetByPath(ctx, device.ID, path)
	if err != nil || folder == nil {
		return err
	}
	return w.store.Folders.Delete(ctx, w.store.Engine, folder.ID)
}

// resolveOrCreateFolder looks up the folder at folderMRL, creating a
// present, non-blacklisted row for it (and its ancestors' device) if the
// discoverer has not walked that far yet. It does not create parent folder
// rows — Ban/Unban target paths the discoverer has already seen.
func (w *Worker) resolveOrCreateFolder(ctx context.Context, folderMRL string) (*model.Folder, error) {
	fsDevice, err := w.factory.NewDevice(folderMRL)
	if err != nil {
		return nil, fmt.Errorf("resolve device for %s: %w", folderMRL, err)
	}
	device, err := w.store.Devices.GetByUUID(ctx, fsDevice.UUID())
	if err != nil {
		return nil, fmt.Errorf("lookup device %s: %w", fsDevice.UUID(), err)
	}
	if device == nil {
		device = &model.Device{UUID: fsDevice.UUID(), Scheme: fsDevice.Scheme(), IsRemovable: fsDevice.IsRemovable(), IsPresent: true}
		if err := w.store.Devices.Create(ctx, device); err != nil {
			return nil, fmt.Errorf("create device %s: %w", fsDevice.UUID(), err)
		}
	}

	mountpointMRL := vfs.FromLocalPath(fsDevice.Mountpoint())
	path := folderPath(device, mountpointMRL, folderMRL)
	folder, err := w.store.Folders.GetByPath(ctx, device.ID, path)
	if err != nil {
		return nil, fmt.Errorf("lookup folder %s: %w", folderMRL, err)
	}
	if folder != nil {
		return folder, nil
	}

	folder = &model.Folder{Path: path, DeviceID: device.ID, IsRemovable: device.IsRemovable, IsPresent: true}
	if err := w.store.Folders.Create(ctx, w.store.Engine, folder); err != nil {
		return nil, fmt.Errorf("create folder %s: %w", folderMRL, err)
	}
	return folder, nil
}

// deleteDescendants removes every folder row whose parent chain leads back
// to folderID, depth-first, so their files cascade.
func (w *Worker) deleteDescendants(ctx context.Context, folderID int64) error {
	children, err := w.store.Folders.ListChildren(ctx, folderID)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := w.deleteDescendants(ctx, child.ID); err != nil {
			return err
		}
		if err := w.store.Folders.Delete(ctx, w.store.Engine, child.ID); err != nil {
			return err
		}
	}
	return nil
}
