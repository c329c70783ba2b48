package storage

import (
	"runtime"
	"sort"
)

// Stats returns the current shape of the world and process memory usage
func (w *World) Stats() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	w.mu.RLock()
	defer w.mu.RUnlock()

	components := make(map[string]int, len(w.tables))
	names := make([]string, 0, len(w.tables))
	for _, t := range w.tables {
		components[t.componentName()] = t.size()
		names = append(names, t.componentName())
	}
	sort.Strings(names)

	return map[string]interface{}{
		"alloc_mb":       m.Alloc / 1024 / 1024,
		"sys_mb":         m.Sys / 1024 / 1024,
		"num_goroutines": runtime.NumGoroutine(),
		"tick":           uint32(w.tick),
		"entities":       len(w.alive),
		"tables":         names,
		"components":     components,
	}
}
