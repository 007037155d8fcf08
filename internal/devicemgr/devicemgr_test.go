package devicemgr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashgrove/medialib/internal/model"
)

type fakeStore struct {
	byUUID map[string]*model.Device
	nextID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{byUUID: make(map[string]*model.Device), nextID: 1}
}

func (f *fakeStore) GetByUUID(ctx context.Context, uuid string) (*model.Device, error) {
	return f.byUUID[uuid], nil
}

func (f *fakeStore) Create(ctx context.Context, d *model.Device) error {
	d.ID = f.nextID
	f.nextID++
	f.byUUID[d.UUID] = d
	return nil
}

func (f *fakeStore) SetPresent(ctx context.Context, id int64, present bool) error {
	for _, d := range f.byUUID {
		if d.ID == id {
			d.IsPresent = present
		}
	}
	return nil
}

func (f *fakeStore) ListAll(ctx context.Context) ([]*model.Device, error) {
	var out []*model.Device
	for _, d := range f.byUUID {
		out = append(out, d)
	}
	return out, nil
}

func TestOnDevicePluggedFirstSightingIsNew(t *testing.T) {
	store := newFakeStore()
	m := New(store)

	isNew, err := m.OnDevicePlugged(context.Background(), "uuid-1", "/mnt/usb")
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, "/mnt/usb", m.Mountpoint("uuid-1"))

	known, err := m.IsDeviceKnown(context.Background(), "uuid-1")
	require.NoError(t, err)
	assert.True(t, known)
}

func TestOnDevicePluggedKnownDeviceIsNotNew(t *testing.T) {
	store := newFakeStore()
	m := New(store)

	_, err := m.OnDevicePlugged(context.Background(), "uuid-1", "/mnt/usb")
	require.NoError(t, err)

	_ = m.OnDeviceUnplugged(context.Background(), "uuid-1")

	isNew, err := m.OnDevicePlugged(context.Background(), "uuid-1", "/media/usb2")
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, "/media/usb2", m.Mountpoint("uuid-1"))

	d, _ := store.GetByUUID(context.Background(), "uuid-1")
	assert.True(t, d.IsPresent)
}

func TestOnDeviceUnpluggedMarksAbsent(t *testing.T) {
	store := newFakeStore()
	m := New(store)

	_, err := m.OnDevicePlugged(context.Background(), "uuid-1", "/mnt/usb")
	require.NoError(t, err)

	require.NoError(t, m.OnDeviceUnplugged(context.Background(), "uuid-1"))

	d, _ := store.GetByUUID(context.Background(), "uuid-1")
	assert.False(t, d.IsPresent)
	assert.Equal(t, "", m.Mountpoint("uuid-1"))
}

func TestOnDeviceUnpluggedUnknownDeviceIsNoop(t *testing.T) {
	store := newFakeStore()
	m := New(store)
	assert.NoError(t, m.OnDeviceUnplugged(context.Background(), "never-seen"))
}
