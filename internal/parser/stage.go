package parser

import (
	"context"
	"sync"
)

// stage owns one Service's task queue and worker pool, adapted from
// internal/utils.WorkerPool's start/stop/buffered-channel shape but with a
// FIFO slice queue instead of a channel, so a TemporaryUnavailable outcome
// can push the task back onto the tail without racing a full channel.
type stage struct {
	svc      Service
	pipeline *Pipeline

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []Task
	inFlight int

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func newStage(svc Service, p *Pipeline) *stage {
	s := &stage{svc: svc, pipeline: p, stopCh: make(chan struct{})}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *stage) start() {
	threads := int(s.svc.Threads())
	if threads <= 0 {
		threads = 1
	}
	for i := 0; i < threads; i++ {
		s.wg.Add(1)
		go s.worker()
	}
}

func (s *stage) stop() {
	close(s.stopCh)
	s.mu.Lock()
	s.cond.Broadcast()
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *stage) push(task Task) {
	s.mu.Lock()
	s.queue = append(s.queue, task)
	s.cond.Signal()
	s.mu.Unlock()
}

// idle reports whether this stage's queue is empty and no worker is
// currently running a task.
func (s *stage) idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue) == 0 && s.inFlight == 0
}

func (s *stage) worker() {
	defer s.wg.Done()
	for {
		s.pipeline.waitIfPaused()

		select {
		case <-s.stopCh:
			return
		default:
		}

		task, ok := s.popAndMarkInFlight()
		if !ok {
			return
		}

		outcome := s.svc.Run(context.Background(), task)

		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()

		s.handle(task, outcome)
	}
}

// popAndMarkInFlight blocks until a task is available or the stage is
// stopped, and reports false in the latter case. The dequeue and the
// inFlight increment happen under the same lock acquisition so idle()
// never observes an empty queue with no worker counted as in-flight for a
// task that has already been popped.
func (s *stage) popAndMarkInFlight() (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) == 0 {
		select {
		case <-s.stopCh:
			return Task{}, false
		default:
		}
		s.cond.Wait()
		select {
		case <-s.stopCh:
			return Task{}, false
		default:
		}
	}
	task := s.queue[0]
	s.queue = s.queue[1:]
	s.inFlight++
	return task, true
}

func (s *stage) handle(task Task, outcome Outcome) {
	switch outcome {
	case Success, Discarded:
		s.pipeline.advance(s, task)
	case TemporaryUnavailable:
		task.retries++
		if task.retries > maxStageRetries {
			s.pipeline.onError(task)
			return
		}
		s.push(task)
	case Error:
		s.pipeline.onError(task)
	case Fatal:
		s.pipeline.onFatal(task)
	}
}
