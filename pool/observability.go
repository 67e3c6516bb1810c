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
	"context"
	"time"

	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Metrics emitted by a Pool. They are registered up front in the fresh
// registry every Pool creates unless a caller supplies their own via
// WithMetrics; a supplied registry is used as is.
const (
	MetricJobsBegun        = metricz.Key("jobs.begun.total")
	MetricJobsCompleted    = metricz.Key("jobs.completed.total")
	MetricTasksQueued      = metricz.Key("tasks.queued.total")
	MetricTasksCompleted   = metricz.Key("tasks.completed.total")
	MetricSlabExhausted    = metricz.Key("slab.exhausted.total")
	MetricRingDepth        = metricz.Key("ring.depth")
	MetricWorkersActive    = metricz.Key("workers.active")
)

// Trace spans emitted by a Pool.
const (
	SpanJobProcess  = tracez.Key("job.process")
	SpanTaskExecute = tracez.Key("task.execute")
)

// Trace tags emitted by a Pool.
const (
	TagJobID     = tracez.Tag("job.id")
	TagTaskIndex = tracez.Tag("task.index")
)

// JobEventKind distinguishes the kinds of events a Pool emits over its
// hook bus.
type JobEventKind uint8

const (
	// JobEventCompleted fires once, after a job's last task completes
	// and its Commit callback has returned. It is the hookz counterpart
	// of the Commit callback, for subscribers that are not the job's
	// owner.
	JobEventCompleted JobEventKind = iota
)

// JobEvent is emitted via the Pool's hook bus on job completion.
type JobEvent struct {
	Kind           JobEventKind
	JobID          string
	TasksQueued    uint32
	TasksCompleted uint32
	Failure        error
	Duration       time.Duration
	Timestamp      time.Time
}

// HookJobCompleted is the hookz key JobEvent{Kind: JobEventCompleted}
// values are emitted under.
const HookJobCompleted = hookz.Key("job.completed")

func newMetrics() *metricz.Registry {
	m := metricz.New()
	m.Counter(MetricJobsBegun)
	m.Counter(MetricJobsCompleted)
	m.Counter(MetricTasksQueued)
	m.Counter(MetricTasksCompleted)
	m.Counter(MetricSlabExhausted)
	m.Gauge(MetricRingDepth)
	m.Gauge(MetricWorkersActive)
	return m
}

// OnJobCompleted registers a handler invoked whenever any job finishes,
// independently of that job's own Commit callback.
func (p *Pool) OnJobCompleted(handler func(context.Context, JobEvent) error) error {
	_, err := p.hooks.Hook(HookJobCompleted, handler)
	return err
}

func (p *Pool) emitJobCompleted(job *Job, duration time.Duration) {
	_ = p.hooks.Emit(context.Background(), HookJobCompleted, JobEvent{
		Kind:           JobEventCompleted,
		JobID:          job.id.String(),
		TasksQueued:    job.TasksQueued(),
		TasksCompleted: job.TasksCompleted(),
		Failure:        job.Failure(),
		Duration:       duration,
		Timestamp:      p.clock.Now(),
	})
}
