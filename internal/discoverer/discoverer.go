// Package discoverer owns a single dedicated goroutine that walks
// filesystem entry points and reconciles internal/store's folder/file/media
// rows against what is actually on disk, per spec.md §4.F. Every mutating
// operation — Discover, Reload, Ban, Unban, Remove — is a command pushed
// onto one FIFO, so entry points never walk concurrently with each other
// and a Ban can never race a Discover of the same subtree.
package discoverer

import (
	"context"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/ashgrove/medialib/internal/events"
	"github.com/ashgrove/medialib/internal/logger"
	"github.com/ashgrove/medialib/internal/store"
	"github.com/ashgrove/medialib/internal/vfs"
)

// ParserQueue is the surface the discoverer needs from internal/parser:
// enqueue a freshly-discovered (media, file) pair for probing/tagging.
type ParserQueue interface {
	Enqueue(mediaID, fileID int64)
}

// Worker is the discoverer's single command-processing goroutine.
type Worker struct {
	factory vfs.Factory
	store   *store.Store
	parser  ParserQueue
	log     hclog.Logger

	commands chan command

	mu          sync.Mutex
	entryPoints map[string]struct{}

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a Worker. Call Start to begin processing commands.
func New(factory vfs.Factory, st *store.Store, parser ParserQueue) *Worker {
	return &Worker{
		factory:     factory,
		store:       st,
		parser:      parser,
		log:         logger.Scoped("discoverer"),
		commands:    make(chan command, 64),
		entryPoints: make(map[string]struct{}),
	}
}

// Start launches the command-processing goroutine.
func (w *Worker) Start() {
	w.stopCh = make(chan struct{})
	w.wg.Add(1)
	go w.run()
}

// Stop drains in-flight work and halts the goroutine.
func (w *Worker) Stop() {
	close(w.stopCh)
	w.wg.Wait()
}

func (w *Worker) run() {
	defer w.wg.Done()
	for {
		select {
		case cmd := <-w.commands:
			w.dispatchBusy()
			err := w.execute(context.Background(), cmd)
			if cmd.done != nil {
				cmd.done <- err
			}
			w.dispatchIdleIfEmpty()
		case <-w.stopCh:
			return
		}
	}
}

func (w *Worker) dispatchBusy() {
	if bus := events.GlobalBus(); bus != nil {
		bus.Publish(events.NewDiscovererBusyEvent(""))
	}
}

func (w *Worker) dispatchIdleIfEmpty() {
	if len(w.commands) > 0 {
		return
	}
	if bus := events.GlobalBus(); bus != nil {
		bus.Publish(events.NewDiscovererIdleEvent())
	}
}

func (w *Worker) execute(ctx context.Context, cmd command) error {
	switch cmd.kind {
	case cmdDiscover:
		w.mu.Lock()
		w.entryPoints[cmd.entryPoint] = struct{}{}
		w.mu.Unlock()
		return w.walkEntryPoint(ctx, cmd.entryPoint)

	case cmdReloadEntryPoint:
		return w.walkEntryPoint(ctx, cmd.entryPoint)

	case cmdReloadAll:
		w.mu.Lock()
		entryPoints := make([]string, 0, len(w.entryPoints))
		for ep := range w.entryPoints {
			entryPoints = append(entryPoints, ep)
		}
		w.mu.Unlock()
		for _, ep := range entryPoints {
			if err := w.walkEntryPoint(ctx, ep); err != nil {
				w.log.Warn("reload failed for entry point", "entry_point", ep, "error", err)
			}
		}
		return nil

	case cmdBan:
		return w.ban(ctx, cmd.entryPoint)

	case cmdUnban:
		if err := w.unban(ctx, cmd.entryPoint); err != nil {
			return err
		}
		return w.walkEntryPoint(ctx, cmd.entryPoint)

	case cmdRemove:
		return w.remove(ctx, cmd.entryPoint)
	}
	return nil
}

// enqueue pushes cmd onto the FIFO, blocking the caller until completion
// only when cmd.done is non-nil.
func (w *Worker) enqueue(cmd command) error {
	w.commands <- cmd
	if cmd.done != nil {
		return <-cmd.done
	}
	return nil
}

// Discover registers entryPoint (an MRL, e.g. "file:///mnt/music") and
// walks it for the first time. It blocks until the initial walk completes.
func (w *Worker) Discover(entryPoint string) error {
	return w.enqueue(command{kind: cmdDiscover, entryPoint: entryPoint, done: make(chan error, 1)})
}

// Reload re-walks every registered entry point asynchronously.
func (w *Worker) Reload() {
	w.commands <- command{kind: cmdReloadAll}
}

// ReloadEntryPoint re-walks a single entry point asynchronously.
func (w *Worker) ReloadEntryPoint(entryPoint string) {
	w.commands <- command{kind: cmdReloadEntryPoint, entryPoint: entryPoint}
}

// Ban blacklists folderMRL and cascades deletion of its descendants. Blocks
// until complete.
func (w *Worker) Ban(folderMRL string) error {
	return w.enqueue(command{kind: cmdBan, entryPoint: folderMRL, done: make(chan error, 1)})
}

// Unban clears folderMRL's blacklist flag and re-walks it. Blocks until
// complete.
func (w *Worker) Unban(folderMRL string) error {
	return w.enqueue(command{kind: cmdUnban, entryPoint: folderMRL, done: make(chan error, 1)})
}

// Remove deregisters entryPoint and deletes every folder/file/media row
// rooted under it. Blocks until complete.
func (w *Worker) Remove(entryPoint string) error {
	return w.enqueue(command{kind: cmdRemove, entryPoint: entryPoint, done: make(chan error, 1)})
}
