package logger

import "sync"

// components caches per-component loggers by name. Entries created by Get
// are derived from the global logger, so Init drops them.
var components sync.Map

// Register pins a logger under name, overriding the derived one.
func Register(name string, l *Logger) {
	components.Store(name, l)
}

// Get returns the logger for a component such as "capture" or "relay",
// deriving and caching one from the global logger on first use.
func Get(name string) *Logger {
	if l, ok := components.Load(name); ok {
		return l.(*Logger)
	}
	l, _ := components.LoadOrStore(name, GetGlobalLogger().WithComponent(name))
	return l.(*Logger)
}

// RegisterDefaults derives loggers for the given components up front.
func RegisterDefaults(names ...string) {
	for _, name := range names {
		Register(name, GetGlobalLogger().WithComponent(name))
	}
}

// Reset forgets every cached component logger.
func Reset() {
	components.Clear()
}
