package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// Instrumented records call counts, failures and latency for a backend.
type Instrumented struct {
	inner   RemoteCollectionClient
	backend string
}

// NewInstrumented wraps inner, labelling its metrics with backend.
func NewInstrumented(inner RemoteCollectionClient, backend string) *Instrumented {
	return &Instrumented{inner: inner, backend: backend}
}

func (i *Instrumented) observe(op string, start time.Time, err error) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`etalase_remote_calls_total{backend=%q,op=%q}`, i.backend, op)).Inc()
	if err != nil {
		metrics.GetOrCreateCounter(fmt.Sprintf(`etalase_remote_errors_total{backend=%q,op=%q}`, i.backend, op)).Inc()
	}
	metrics.GetOrCreateHistogram(fmt.Sprintf(`etalase_remote_duration_seconds{backend=%q,op=%q}`, i.backend, op)).UpdateDuration(start)
}

func (i *Instrumented) Read(ctx context.Context, path string, dst interface{}) (found bool, err error) {
	defer func(start time.Time) { i.observe("read", start, err) }(time.Now())
	return i.inner.Read(ctx, path, dst)
}

func (i *Instrumented) Write(ctx context.Context, path string, value interface{}) (err error) {
	defer func(start time.Time) { i.observe("write", start, err) }(time.Now())
	return i.inner.Write(ctx, path, value)
}

func (i *Instrumented) Merge(ctx context.Context, path string, fields map[string]interface{}) (err error) {
	defer func(start time.Time) { i.observe("merge", start, err) }(time.Now())
	return i.inner.Merge(ctx, path, fields)
}

func (i *Instrumented) Delete(ctx context.Context, path string) (err error) {
	defer func(start time.Time) { i.observe("delete", start, err) }(time.Now())
	return i.inner.Delete(ctx, path)
}

func (i *Instrumented) AppendGenerateID(ctx context.Context, path string, value interface{}) (id string, err error) {
	defer func(start time.Time) { i.observe("append", start, err) }(time.Now())
	return i.inner.AppendGenerateID(ctx, path, value)
}
