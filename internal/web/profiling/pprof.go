// Package profiling exposes pprof and runtime statistics to administrators.
// The routes reveal goroutine stacks and heap contents; mount them only
// behind authentication.
package profiling

import (
	"net/http"
	"net/http/pprof"
	"runtime"

	"github.com/resumate-app/resumate/internal/web/response"
	"github.com/resumate-app/resumate/internal/web/router"
)

// Profiles are the named runtime profiles served under /pprof/{name}
var Profiles = []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"}

// Config holds the sampling rates applied when the routes are registered
type Config struct {
	// BlockRate sets the block profiling rate (0 = disabled)
	BlockRate int
	// MutexFraction sets the mutex profiling fraction (0 = disabled)
	MutexFraction int
}

// DefaultConfig samples every blocking event and mutex contention
func DefaultConfig() Config {
	return Config{BlockRate: 1, MutexFraction: 1}
}

// Register adds the pprof endpoints and /stats to r
func Register(r *router.Router, cfg Config) {
	runtime.SetBlockProfileRate(cfg.BlockRate)
	runtime.SetMutexProfileFraction(cfg.MutexFraction)

	r.Get("/pprof/cmdline", pprof.Cmdline).Named("debug.pprof.cmdline")
	r.Get("/pprof/profile", pprof.Profile).Named("debug.pprof.profile")
	r.Get("/pprof/symbol", pprof.Symbol).Named("debug.pprof.symbol")
	r.Get("/pprof/trace", pprof.Trace).Named("debug.pprof.trace")
	for _, name := range Profiles {
		r.Get("/pprof/"+name, pprof.Handler(name).ServeHTTP).Named("debug.pprof." + name)
	}
	r.Get("/stats", Stats).Named("debug.stats")
}

// RuntimeStats is a snapshot of the Go runtime
type RuntimeStats struct {
	Goroutines int         `json:"goroutines"`
	NumCPU     int         `json:"numCpu"`
	Memory     MemoryStats `json:"memory"`
}

// MemoryStats holds the heap counters from runtime.MemStats
type MemoryStats struct {
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"totalAlloc"`
	Sys        uint64 `json:"sys"`
	NumGC      uint32 `json:"numGc"`
}

// ReadStats collects the current runtime statistics
func ReadStats() RuntimeStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return RuntimeStats{
		Goroutines: runtime.NumGoroutine(),
		NumCPU:     runtime.NumCPU(),
		Memory: MemoryStats{
			Alloc:      m.Alloc,
			TotalAlloc: m.TotalAlloc,
			Sys:        m.Sys,
			NumGC:      m.NumGC,
		},
	}
}

// Stats serves ReadStats as JSON
func Stats(w http.ResponseWriter, r *http.Request) {
	response.OK(w, ReadStats())
}
