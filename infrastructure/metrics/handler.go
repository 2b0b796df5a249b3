package metrics

import (
	"net/http/pprof"
	"runtime"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var namedProfiles = []string{"goroutine", "heap", "mutex", "block", "allocs", "threadcreate"}

// GetHandler mounts the scrape endpoint on router. Profiling endpoints are
// mounted only when profiling is true.
func GetHandler(router *gin.RouterGroup, m Manager, profiling bool) {
	router.GET("/metrics", sampleRuntime(m), gin.WrapH(promhttp.Handler()))

	if !profiling {
		return
	}

	debug := router.Group("/debug/pprof")
	debug.GET("/", gin.WrapF(pprof.Index))
	debug.GET("/cmdline", gin.WrapF(pprof.Cmdline))
	debug.GET("/profile", gin.WrapF(pprof.Profile))
	debug.GET("/symbol", gin.WrapF(pprof.Symbol))
	debug.GET("/trace", gin.WrapF(pprof.Trace))
	for _, name := range namedProfiles {
		debug.GET("/"+name, gin.WrapH(pprof.Handler(name)))
	}
}

// sampleRuntime refreshes the process gauges right before each scrape.
func sampleRuntime(m Manager) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var stats runtime.MemStats
		runtime.ReadMemStats(&stats)

		m.SetGauge(GoRoutines, float64(runtime.NumGoroutine()))
		m.SetGauge(HeapAlloc, float64(stats.HeapAlloc))
		m.SetGauge(TotalAlloc, float64(stats.TotalAlloc))
		m.SetGauge(GCCycles, float64(stats.NumGC))
		m.SetGauge(SysMemory, float64(stats.Sys))

		ctx.Next()
	}
}
