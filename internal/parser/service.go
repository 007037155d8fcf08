// Package parser implements the prioritized multi-stage service chain of
// spec.md §4.G: a persistent task queue consumed by services registered in
// descending-priority order, each with its own worker pool. Grounded in
// style on the teacher's internal/modules/modulemanager's phased
// registration and ordering pass (modulemanager.ModuleRegistry,
// dependencies.go), simplified from a dependency DAG to a plain priority
// sort since spec.md's services declare only a priority, not inter-service
// dependencies.
package parser

import "context"

// Outcome is the result a Service.Run reports for one task.
type Outcome int

const (
	// Success advances the task to the next service in priority order.
	Success Outcome = iota
	// Discarded advances the task like Success, but the service chose not
	// to act on it (e.g. a thumbnailer skipping an audio-only media).
	Discarded
	// TemporaryUnavailable returns the task to the tail of this service's
	// own queue with an incremented retry counter.
	TemporaryUnavailable
	// Error drops the task and increments the backing file's
	// parser_retries counter.
	Error
	// Fatal drops the task and flags the media permanently unparseable.
	Fatal
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Discarded:
		return "discarded"
	case TemporaryUnavailable:
		return "temporary_unavailable"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Task is one (media, file) pair moving through the service chain.
type Task struct {
	MediaID int64
	FileID  int64

	// retries counts TemporaryUnavailable requeues at the current service,
	// reset whenever the task advances to the next service.
	retries int
}

// Service is one pluggable stage of the pipeline. Implementations are
// registered at startup; priority and concurrency are declared, not
// inherited from a base type, per spec.md §9 "capability set, not an
// inheritance tree".
type Service interface {
	// Name identifies the service in logs and in Pipeline.Restore.
	Name() string
	// Priority orders services at registration time: higher runs first.
	Priority() uint8
	// Threads is the number of worker goroutines this service runs.
	Threads() uint16
	// Run processes one task. It must not block longer than necessary —
	// TemporaryUnavailable exists precisely so a service can decline to
	// block its worker pool on a transient condition.
	Run(ctx context.Context, task Task) Outcome
}
