package notifier

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedDelivery struct {
	kind   Kind
	action Action
	ids    []int64
}

type recordingDeliverer struct {
	mu        sync.Mutex
	delivered []recordedDelivery
}

func (r *recordingDeliverer) Deliver(kind Kind, action Action, ids []int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]int64, len(ids))
	copy(cp, ids)
	r.delivered = append(r.delivered, recordedDelivery{kind: kind, action: action, ids: cp})
}

func (r *recordingDeliverer) snapshot() []recordedDelivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedDelivery(nil), r.delivered...)
}

func TestEnqueueBatchesWithinDebounceWindow(t *testing.T) {
	d := &recordingDeliverer{}
	n := New(20*time.Millisecond, d)
	n.Start()
	defer n.Stop()

	n.Enqueue(KindMedia, ActionAdded, 1)
	n.Enqueue(KindMedia, ActionAdded, 2)
	n.Enqueue(KindMedia, ActionModified, 3)

	require.Eventually(t, func() bool { return len(d.snapshot()) > 0 }, time.Second, 5*time.Millisecond)

	got := d.snapshot()
	var added, modified []recordedDelivery
	for _, r := range got {
		if r.action == ActionAdded {
			added = append(added, r)
		}
		if r.action == ActionModified {
			modified = append(modified, r)
		}
	}
	require.Len(t, added, 1)
	assert.ElementsMatch(t, []int64{1, 2}, added[0].ids)
	require.Len(t, modified, 1)
	assert.Equal(t, []int64{3}, modified[0].ids)
}

func TestEnqueueDifferentKindsDeliverSeparately(t *testing.T) {
	d := &recordingDeliverer{}
	n := New(20*time.Millisecond, d)
	n.Start()
	defer n.Stop()

	n.Enqueue(KindMedia, ActionAdded, 1)
	n.Enqueue(KindAlbum, ActionAdded, 2)

	require.Eventually(t, func() bool { return len(d.snapshot()) >= 2 }, time.Second, 5*time.Millisecond)

	kinds := map[Kind]bool{}
	for _, r := range d.snapshot() {
		kinds[r.kind] = true
	}
	assert.True(t, kinds[KindMedia])
	assert.True(t, kinds[KindAlbum])
}

func TestStopFlushesPendingBatch(t *testing.T) {
	d := &recordingDeliverer{}
	n := New(time.Hour, d)
	n.Start()

	n.Enqueue(KindGenre, ActionRemoved, 9)
	n.Stop()

	got := d.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, KindGenre, got[0].kind)
	assert.Equal(t, ActionRemoved, got[0].action)
	assert.Equal(t, []int64{9}, got[0].ids)
}

func TestEmptyBatchesAreNeverDelivered(t *testing.T) {
	d := &recordingDeliverer{}
	n := New(10*time.Millisecond, d)
	n.Start()
	defer n.Stop()

	n.Enqueue(KindMedia, ActionAdded, 1)
	time.Sleep(50 * time.Millisecond)

	for _, r := range d.snapshot() {
		assert.NotEmpty(t, r.ids)
	}
}
