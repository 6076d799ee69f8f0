package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	checkStartedTotal   atomic.Uint64
	checkCompletedTotal atomic.Uint64
	checkFailedTotal    atomic.Uint64

	analysisStartedTotal   atomic.Uint64
	analysisCompletedTotal atomic.Uint64
	analysisFailedTotal    atomic.Uint64

	checkDuration = newHistogram([]float64{250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})
)

// IncCheckStarted increments the check-task started counter.
func IncCheckStarted() {
	checkStartedTotal.Add(1)
}

// IncCheckCompleted increments the check-task completed counter.
func IncCheckCompleted() {
	checkCompletedTotal.Add(1)
}

// IncCheckFailed increments the check-task failed counter.
func IncCheckFailed() {
	checkFailedTotal.Add(1)
}

// IncAnalysisStarted increments the requirement-analysis started counter.
func IncAnalysisStarted() {
	analysisStartedTotal.Add(1)
}

// IncAnalysisCompleted increments the requirement-analysis completed counter.
func IncAnalysisCompleted() {
	analysisCompletedTotal.Add(1)
}

// IncAnalysisFailed increments the requirement-analysis failed counter.
func IncAnalysisFailed() {
	analysisFailedTotal.Add(1)
}

// ObserveCheckDurationMs records a check-task wall-clock duration.
func ObserveCheckDurationMs(ms float64) {
	checkDuration.observe(ms)
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	total   uint64
}

func newHistogram(buckets []float64) *histogram {
	sorted := make([]float64, len(buckets))
	copy(sorted, buckets)
	sort.Float64s(sorted)
	return &histogram{
		buckets: sorted,
		counts:  make([]uint64, len(sorted)+1),
	}
}

func (h *histogram) observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	idx := len(h.buckets)
	for i, upper := range h.buckets {
		if v <= upper {
			idx = i
			break
		}
	}
	h.counts[idx]++
	h.sum += v
	h.total++
}

func (h *histogram) snapshot() (buckets []float64, counts []uint64, sum float64, total uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	buckets = make([]float64, len(h.buckets))
	copy(buckets, h.buckets)
	counts = make([]uint64, len(h.counts))
	copy(counts, h.counts)
	return buckets, counts, h.sum, h.total
}

// Handler serves a plaintext exposition of all counters and histograms.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var buf bytes.Buffer

		writeCounter(&buf, "check_tasks_started_total", checkStartedTotal.Load())
		writeCounter(&buf, "check_tasks_completed_total", checkCompletedTotal.Load())
		writeCounter(&buf, "check_tasks_failed_total", checkFailedTotal.Load())
		writeCounter(&buf, "requirement_analyses_started_total", analysisStartedTotal.Load())
		writeCounter(&buf, "requirement_analyses_completed_total", analysisCompletedTotal.Load())
		writeCounter(&buf, "requirement_analyses_failed_total", analysisFailedTotal.Load())

		buckets, counts, sum, total := checkDuration.snapshot()
		cumulative := uint64(0)
		for i, upper := range buckets {
			cumulative += counts[i]
			fmt.Fprintf(&buf, "check_task_duration_ms_bucket{le=\"%g\"} %d\n", upper, cumulative)
		}
		cumulative += counts[len(counts)-1]
		fmt.Fprintf(&buf, "check_task_duration_ms_bucket{le=\"+Inf\"} %d\n", cumulative)
		fmt.Fprintf(&buf, "check_task_duration_ms_sum %g\n", sum)
		fmt.Fprintf(&buf, "check_task_duration_ms_count %d\n", total)

		c.Data(http.StatusOK, "text/plain; version=0.0.4", buf.Bytes())
	}
}

func writeCounter(buf *bytes.Buffer, name string, val uint64) {
	fmt.Fprintf(buf, "%s %d\n", name, val)
}
