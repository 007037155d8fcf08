// Package devicemgr maintains the invariant that a device's database
// identity is its UUID, never its current mountpoint, so that removable
// media can be unplugged and replugged (possibly under a different mount
// path) without losing the folders and files discovered under it.
package devicemgr

import (
	"context"
	"fmt"
	"sync"

	"github.com/ashgrove/medialib/internal/logger"
	"github.com/ashgrove/medialib/internal/model"
	"github.com/ashgrove/medialib/internal/vfs"
)

// Store is the persistence surface devicemgr needs; internal/store's device
// repository implements it.
type Store interface {
	GetByUUID(ctx context.Context, uuid string) (*model.Device, error)
	Create(ctx context.Context, d *model.Device) error
	SetPresent(ctx context.Context, id int64, present bool) error
	ListAll(ctx context.Context) ([]*model.Device, error)
}

// Manager tracks known devices and reconciles their presence.
type Manager struct {
	store Store
	log   interface {
		Info(msg string, args ...interface{})
		Warn(msg string, args ...interface{})
	}

	mu          sync.Mutex
	mountpoints map[string]string // device uuid -> current mountpoint
}

// New creates a Manager backed by store.
func New(store Store) *Manager {
	return &Manager{
		store:       store,
		log:         logger.Scoped("devicemgr"),
		mountpoints: make(map[string]string),
	}
}

// OnDevicePlugged records mountpoint as the current location of the device
// identified by uuid. If the device has never been seen before, it is
// created with scheme "file" and marked removable, and isNew is returned
// true so the caller (the facade) knows to kick off discovery under it.
func (m *Manager) OnDevicePlugged(ctx context.Context, uuid, mountpoint string) (isNew bool, err error) {
	device, err := m.store.GetByUUID(ctx, uuid)
	if err != nil {
		return false, fmt.Errorf("lookup device %s: %w", uuid, err)
	}

	m.mu.Lock()
	m.mountpoints[uuid] = mountpoint
	m.mu.Unlock()

	if device == nil {
		m.log.Info("new removable device plugged", "uuid", uuid, "mountpoint", mountpoint)
		return true, m.store.Create(ctx, &model.Device{
			UUID:        uuid,
			Scheme:      "file",
			IsRemovable: true,
			IsPresent:   true,
		})
	}

	if !device.IsPresent {
		if err := m.store.SetPresent(ctx, device.ID, true); err != nil {
			return false, fmt.Errorf("mark device present: %w", err)
		}
	}
	return false, nil
}

// OnDeviceUnplugged marks the device identified by uuid not present. Its
// folders, files, and the media they back cascade to is_present=false via
// triggers, not application code.
func (m *Manager) OnDeviceUnplugged(ctx context.Context, uuid string) error {
	device, err := m.store.GetByUUID(ctx, uuid)
	if err != nil {
		return fmt.Errorf("lookup device %s: %w", uuid, err)
	}
	if device == nil {
		return nil
	}

	m.mu.Lock()
	delete(m.mountpoints, uuid)
	m.mu.Unlock()

	m.log.Info("device unplugged", "uuid", uuid)
	return m.store.SetPresent(ctx, device.ID, false)
}

// IsDeviceKnown reports whether a device with the given uuid has ever been
// observed.
func (m *Manager) IsDeviceKnown(ctx context.Context, uuid string) (bool, error) {
	d, err := m.store.GetByUUID(ctx, uuid)
	if err != nil {
		return false, err
	}
	return d != nil, nil
}

// Mountpoint returns the last known mountpoint for a device uuid, or "" if
// the device is not currently mounted (including never having been seen).
func (m *Manager) Mountpoint(uuid string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mountpoints[uuid]
}

// RefreshDevices reconciles every known device's presence flag against
// factory's live view of the filesystem: devices factory can still resolve
// at their recorded mountpoint are marked present, the rest absent. A
// device with no mountpoint recorded by this Manager counts as unresolvable.
func (m *Manager) RefreshDevices(ctx context.Context, factory vfs.Factory) error {
	devices, err := m.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}

	for _, d := range devices {
		mountpoint := m.Mountpoint(d.UUID)
		present := false
		if mountpoint != "" {
			if fsDevice, err := factory.NewDevice(vfs.FromLocalPath(mountpoint)); err == nil {
				_ = fsDevice.Refresh()
				present = fsDevice.IsPresent()
			}
		}
		if present != d.IsPresent {
			if err := m.store.SetPresent(ctx, d.ID, present); err != nil {
				return fmt.Errorf("update device %d presence: %w", d.ID, err)
			}
		}
	}
	return nil
}
