package parser

import (
	"context"
	"fmt"

	"github.com/ashgrove/medialib/internal/model"
	"github.com/ashgrove/medialib/internal/store"
	"github.com/ashgrove/medialib/internal/vfs"
)

// MountpointResolver answers a removable device's current mount location by
// uuid, or "" if it is not currently mounted. internal/devicemgr.Manager
// satisfies this.
type MountpointResolver interface {
	Mountpoint(uuid string) string
}

// resolveMRL turns file.MRL back into a full MRL readable with vfs.ToLocalPath.
// Non-removable files store the full MRL already and are returned as-is.
// Removable files store a path relative to their device root (spec.md §3),
// so this walks File -> Folder -> Device to find the device's current
// mountpoint through resolver and reattaches the relative path to it,
// mirroring the way internal/discoverer resolves a folder's live MRL by
// prefixing the mountpoint it is walking under.
func resolveMRL(ctx context.Context, st *store.Store, resolver MountpointResolver, file *model.File) (string, error) {
	if !file.IsRemovable {
		return file.MRL, nil
	}

	folder, err := st.Folders.GetByID(ctx, file.FolderID)
	if err != nil {
		return "", fmt.Errorf("resolve MRL: load folder %d: %w", file.FolderID, err)
	}
	if folder == nil {
		return "", fmt.Errorf("resolve MRL: folder %d not found", file.FolderID)
	}
	device, err := st.Devices.GetByID(ctx, folder.DeviceID)
	if err != nil {
		return "", fmt.Errorf("resolve MRL: load device %d: %w", folder.DeviceID, err)
	}
	if device == nil {
		return "", fmt.Errorf("resolve MRL: device %d not found", folder.DeviceID)
	}

	mountpoint := resolver.Mountpoint(device.UUID)
	if mountpoint == "" {
		return "", fmt.Errorf("resolve MRL: device %s is not currently mounted", device.UUID)
	}
	return vfs.ResolveMRL(vfs.FromLocalPath(mountpoint), file.MRL), nil
}
