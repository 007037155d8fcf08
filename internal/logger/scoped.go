package logger

import (
	"os"
	"sync"

	"github.com/hashicorp/go-hclog"
)

var (
	baseMu sync.RWMutex
	base   hclog.Logger
)

// SetBase installs l as the parent of every logger Scoped subsequently
// returns, so a host embedding the library can redirect its output. Passing
// nil reverts to the default hclog.Logger built from the environment.
func SetBase(l hclog.Logger) {
	baseMu.Lock()
	base = l
	baseMu.Unlock()
}

// Scoped returns a named hclog.Logger for a subsystem that needs leveled,
// structured output independent of the package-level Info/Warn/Error/Debug
// helpers above — the discoverer and parser pipeline use these so their log
// lines carry a consistent subsystem prefix.
func Scoped(name string) hclog.Logger {
	baseMu.RLock()
	b := base
	baseMu.RUnlock()
	if b != nil {
		return b.Named(name)
	}

	level := hclog.Info
	if verbose.Load() {
		level = hclog.Debug
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      level,
		JSONFormat: os.Getenv("MEDIALIB_LOG_FORMAT") == "json",
	})
}

// ScopedWith returns a scoped logger pre-seeded with key/value pairs, for
// call sites that want a child logger bound to e.g. a device or library id.
func ScopedWith(name string, args ...interface{}) hclog.Logger {
	return Scoped(name).With(args...)
}
