//
// Copyright © 2024 jobpool authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package pool

import (
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

const (
	defaultJobCapacity  = 256
	defaultTaskCapacity = 256
)

// Store is the interface an optional durable submission log must
// satisfy. It is defined here, rather than imported from
// internal/store, so that pool has no dependency on bbolt; the CLI and
// daemon wire a concrete *store.Store in where one is needed.
type Store interface {
	RecordBegin(job *Job)
	RecordComplete(job *Job)
}

// Option configures a Pool at construction time. Capacity and worker
// count were compile-time constants (N_THREADS, N_JOBS, N_TASKS) in the
// source this package is modeled on; here they're construction-time
// parameters, per that design's own open question.
type Option func(*config)

type config struct {
	workers      int
	jobCapacity  uint32
	taskCapacity uint32
	clock        clockz.Clock
	logger       *logrus.Logger
	metrics      *metricz.Registry
	tracer       *tracez.Tracer
	hooks        *hookz.Hooks[JobEvent]
	store        Store
}

func defaultConfig() *config {
	return &config{
		workers:      runtime.GOMAXPROCS(0),
		jobCapacity:  defaultJobCapacity,
		taskCapacity: defaultTaskCapacity,
		clock:        clockz.RealClock,
		logger:       logrus.StandardLogger(),
	}
}

// WithWorkers sets the number of goroutines draining the task ring.
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = n }
}

// WithJobCapacity sets the number of job control blocks in the slab.
func WithJobCapacity(n int) Option {
	if n < 0 {
		n = 0 // rejected by New with ErrInvalidJobCapacity
	}
	return func(c *config) { c.jobCapacity = uint32(n) }
}

// WithTaskCapacity sets the task ring's capacity. It is rounded up to
// the next power of two if it isn't one already, matching the source's
// compile-time MAX_TASKS invariant.
func WithTaskCapacity(n int) Option {
	if n < 0 {
		n = 0 // rejected by New with ErrInvalidTaskCapacity
	}
	return func(c *config) { c.taskCapacity = uint32(n) }
}

// WithClock overrides the clock used for job timestamps, letting tests
// substitute clockz.NewFakeClock() for deterministic latency metrics.
// It never influences scheduling decisions.
func WithClock(clock clockz.Clock) Option {
	return func(c *config) { c.clock = clock }
}

// WithLogger overrides the logger used for recovered task panics and
// store errors.
func WithLogger(logger *logrus.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithMetrics overrides the metrics registry. A fresh one is created by
// default with the counters and gauges this package emits already
// registered.
func WithMetrics(metrics *metricz.Registry) Option {
	return func(c *config) { c.metrics = metrics }
}

// WithTracer overrides the tracer used for job.process and
// task.execute spans.
func WithTracer(tracer *tracez.Tracer) Option {
	return func(c *config) { c.tracer = tracer }
}

// WithHooks overrides the hook bus used to notify subscribers of job
// completion independently of the job's own Commit callback.
func WithHooks(hooks *hookz.Hooks[JobEvent]) Option {
	return func(c *config) { c.hooks = hooks }
}

// WithStore attaches a durable submission log. Store writes are best
// effort: failures are logged and never surfaced to callers, and the
// store never gates scheduling.
func WithStore(store Store) Option {
	return func(c *config) { c.store = store }
}

func nextPowerOfTwo(n uint32) uint32 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}
