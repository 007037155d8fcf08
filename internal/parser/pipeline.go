package parser

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/ashgrove/medialib/internal/logger"
	"github.com/ashgrove/medialib/internal/store"
)

// maxStageRetries bounds how many times a task may be returned to the tail
// of its current stage's own queue on TemporaryUnavailable, per spec.md
// §4.G "bounded, e.g. 3". This is distinct from File.parser_retries, which
// counts Error outcomes across the whole chain and is persisted.
const maxStageRetries = 3

// Pipeline runs Tasks through an ordered chain of Services, one worker pool
// per service, per spec.md §4.G.
type Pipeline struct {
	store       *store.Store
	maxFileRetries int
	log         hclog.Logger

	stages []*stage

	pauseMu   sync.Mutex
	pauseCond *sync.Cond
	paused    bool

	stopCh chan struct{}
	wg     sync.WaitGroup

	onIdleChanged  func(idle bool)
	onStatsUpdated func(percent int)

	idleMu      sync.Mutex
	wasIdle     bool
	idleCheckCh chan struct{}
}

// New creates a Pipeline over st. maxFileRetries bounds File.parser_retries
// for Pipeline.Restore's startup scan and ForceRetry.
func New(st *store.Store, maxFileRetries int) *Pipeline {
	p := &Pipeline{
		store:          st,
		maxFileRetries: maxFileRetries,
		log:            logger.Scoped("parser"),
		stopCh:         make(chan struct{}),
		idleCheckCh:    make(chan struct{}, 1),
		wasIdle:        true,
	}
	p.pauseCond = sync.NewCond(&p.pauseMu)
	return p
}

// OnIdleChanged registers fn to be called whenever the pipeline transitions
// between busy and idle (all queues empty, all workers blocked).
func (p *Pipeline) OnIdleChanged(fn func(idle bool)) { p.onIdleChanged = fn }

// OnStatsUpdated registers fn to be called with the percentage (0..100) of
// known files that are parsed, each time the pipeline re-checks its idle
// state (on every watcher tick and after each enqueue or stage hand-off).
func (p *Pipeline) OnStatsUpdated(fn func(percent int)) { p.onStatsUpdated = fn }

// Register adds svc to the chain. Services are re-sorted by descending
// priority after every Register call, so call order does not matter.
func (p *Pipeline) Register(svc Service) {
	p.stages = append(p.stages, newStage(svc, p))
	sort.SliceStable(p.stages, func(i, j int) bool {
		return p.stages[i].svc.Priority() > p.stages[j].svc.Priority()
	})
}

// Start launches every stage's worker pool.
func (p *Pipeline) Start() {
	for _, s := range p.stages {
		s.start()
	}
	p.wg.Add(1)
	go p.idleWatcher()
}

// Stop signals every stage to exit after its in-flight task completes, and
// waits for all worker goroutines to exit.
func (p *Pipeline) Stop() {
	close(p.stopCh)
	p.Resume() // unblock any worker parked on the pause condition
	for _, s := range p.stages {
		s.stop()
	}
	p.wg.Wait()
}

// Pause cooperatively suspends every worker at its next wait-head check;
// in-flight tasks complete first, per spec.md §5.
func (p *Pipeline) Pause() {
	p.pauseMu.Lock()
	p.paused = true
	p.pauseMu.Unlock()
}

// Resume releases every worker parked on Pause.
func (p *Pipeline) Resume() {
	p.pauseMu.Lock()
	p.paused = false
	p.pauseMu.Unlock()
	p.pauseCond.Broadcast()
}

// waitIfPaused blocks the calling worker while the pipeline is paused,
// checked at every wait head per spec.md §5.
func (p *Pipeline) waitIfPaused() {
	p.pauseMu.Lock()
	for p.paused {
		p.pauseCond.Wait()
	}
	p.pauseMu.Unlock()
}

// Enqueue pushes a freshly-discovered (media, file) pair onto the first
// (highest-priority) stage. Implements discoverer.ParserQueue.
func (p *Pipeline) Enqueue(mediaID, fileID int64) {
	if len(p.stages) == 0 {
		return
	}
	p.stages[0].push(Task{MediaID: mediaID, FileID: fileID})
	p.nudgeIdleCheck()
}

// ForceRetry re-enqueues fileID at the first stage regardless of its
// current parser_retries count, per spec.md §6's force_parser_retry.
func (p *Pipeline) ForceRetry(ctx context.Context, fileID int64) error {
	file, err := p.store.Files.GetByID(ctx, fileID)
	if err != nil || file == nil {
		return err
	}
	p.Enqueue(file.MediaID, file.ID)
	return nil
}

// Restore implements spec.md §4.G's startup recovery: every File with
// is_parsed=0 and parser_retries below the bound is re-enqueued at the
// first service.
func (p *Pipeline) Restore(ctx context.Context) error {
	files, err := p.store.Files.ListUnparsed(ctx, p.maxFileRetries, 10000)
	if err != nil {
		return err
	}
	for _, f := range files {
		p.Enqueue(f.MediaID, f.ID)
	}
	if len(files) > 0 {
		p.log.Info("restored pending parse tasks", "count", len(files))
	}
	return nil
}

// advance moves task to the stage after from, or finishes it if from was
// the last stage.
func (p *Pipeline) advance(from *stage, task Task) {
	idx := -1
	for i, s := range p.stages {
		if s == from {
			idx = i
			break
		}
	}
	task.retries = 0
	if idx < 0 || idx+1 >= len(p.stages) {
		p.finish(context.Background(), task)
		return
	}
	p.stages[idx+1].push(task)
	p.nudgeIdleCheck()
}

// finish is called when a task clears the last stage successfully.
func (p *Pipeline) finish(ctx context.Context, task Task) {
	if err := p.store.Files.MarkParsed(ctx, p.store.Engine, task.FileID, task.MediaID, nil); err != nil {
		p.log.Warn("failed to mark file parsed", "file_id", task.FileID, "error", err)
	}
}

// onError drops task after an Error outcome, incrementing the file's
// parser_retries.
func (p *Pipeline) onError(task Task) {
	if err := p.store.Files.IncrementRetries(context.Background(), task.FileID); err != nil {
		p.log.Warn("failed to increment parser retries", "file_id", task.FileID, "error", err)
	}
}

// onFatal drops task permanently; the file is left unparsed with retries
// pinned at the bound so Restore never picks it up again.
func (p *Pipeline) onFatal(task Task) {
	ctx := context.Background()
	for i := 0; i < p.maxFileRetries; i++ {
		if err := p.store.Files.IncrementRetries(ctx, task.FileID); err != nil {
			p.log.Warn("failed to flag file unparseable", "file_id", task.FileID, "error", err)
			return
		}
	}
}

func (p *Pipeline) nudgeIdleCheck() {
	select {
	case p.idleCheckCh <- struct{}{}:
	default:
	}
}

// idleWatcher polls the aggregate busy/idle state and fires onIdleChanged
// on transitions. A short poll interval is simpler and just as correct as
// per-stage condition broadcasts here, since idle transitions are not
// latency-sensitive (spec.md §6's on_background_tasks_idle_changed is an
// informational signal, not a synchronization primitive).
func (p *Pipeline) idleWatcher() {
	defer p.wg.Done()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
		case <-p.idleCheckCh:
		}
		p.checkIdle()
	}
}

func (p *Pipeline) checkIdle() {
	idle := p.isIdle()
	p.idleMu.Lock()
	changed := idle != p.wasIdle
	p.wasIdle = idle
	p.idleMu.Unlock()
	if changed && p.onIdleChanged != nil {
		p.onIdleChanged(idle)
	}
	if p.onStatsUpdated != nil {
		if percent, err := p.percentParsed(context.Background()); err == nil {
			p.onStatsUpdated(percent)
		}
	}
}

func (p *Pipeline) isIdle() bool {
	for _, s := range p.stages {
		if !s.idle() {
			return false
		}
	}
	return true
}

func (p *Pipeline) percentParsed(ctx context.Context) (int, error) {
	var total, parsed int
	row := p.store.Engine.QueryRow(ctx, `SELECT COUNT(*) FROM files`)
	if err := row.Scan(&total); err != nil {
		return 0, err
	}
	if total == 0 {
		return 100, nil
	}
	row = p.store.Engine.QueryRow(ctx, `SELECT COUNT(*) FROM files WHERE is_parsed = 1`)
	if err := row.Scan(&parsed); err != nil {
		return 0, err
	}
	return parsed * 100 / total, nil
}
