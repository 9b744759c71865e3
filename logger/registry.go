package logger

import "sync"

// named caches component loggers derived from the global logger so that every
// Get("caller") shares one instance. SetGlobalLogger empties it.
var named sync.Map // string -> *Logger

// Register stores l under name, replacing any derived logger.
func Register(name string, l *Logger) {
	named.Store(name, l)
}

// Get returns the logger registered under name. Unknown names get a
// component logger derived from the global logger, which is cached.
func Get(name string) *Logger {
	if l, ok := named.Load(name); ok {
		return l.(*Logger)
	}
	l, _ := named.LoadOrStore(name, GetGlobalLogger().WithComponent(name))
	return l.(*Logger)
}
