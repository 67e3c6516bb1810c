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
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Pool is a fixed-capacity worker pool: a slab of job control blocks, a
// bounded task ring, and a set of worker goroutines draining it. Unlike
// the source this package is modeled on, a Pool is an explicit value
// owned by the caller rather than a process-wide singleton; see
// Default for a package-level convenience instance built on top of it.
type Pool struct {
	jobMu    sync.Mutex
	jobsDone *sync.Cond
	jobs     []Job
	freeHead uint32

	ring *taskRing

	workers       int
	workersActive atomic.Uint32
	wg            sync.WaitGroup
	closeMu       sync.Mutex
	closed        bool

	clock   clockz.Clock
	logger  *logrus.Logger
	metrics *metricz.Registry
	tracer  *tracez.Tracer
	hooks   *hookz.Hooks[JobEvent]
	store   Store
}

// New constructs a Pool and spawns its worker goroutines. Workers begin
// draining the task ring immediately.
func New(opts ...Option) (*Pool, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.workers <= 0 {
		return nil, ErrInvalidWorkers
	}
	if cfg.jobCapacity == 0 {
		return nil, ErrInvalidJobCapacity
	}
	if cfg.taskCapacity == 0 {
		return nil, ErrInvalidTaskCapacity
	}
	cfg.taskCapacity = nextPowerOfTwo(cfg.taskCapacity)

	metrics := cfg.metrics
	if metrics == nil {
		metrics = newMetrics()
	}
	tracer := cfg.tracer
	if tracer == nil {
		tracer = tracez.New()
	}
	hooks := cfg.hooks
	if hooks == nil {
		hooks = hookz.New[JobEvent]()
	}

	p := &Pool{
		jobs:    make([]Job, cfg.jobCapacity),
		ring:    newTaskRing(cfg.taskCapacity),
		workers: cfg.workers,
		clock:   cfg.clock,
		logger:  cfg.logger,
		metrics: metrics,
		tracer:  tracer,
		hooks:   hooks,
		store:   cfg.store,
	}
	p.jobsDone = sync.NewCond(&p.jobMu)

	for i := range p.jobs {
		p.jobs[i].idx = uint32(i)
		p.jobs[i].state = jobFree
		if uint32(i) == uint32(len(p.jobs))-1 {
			p.jobs[i].next = noSuchJob
		} else {
			p.jobs[i].next = uint32(i) + 1
		}
	}
	p.freeHead = 0

	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go p.workerLoop()
	}

	return p, nil
}

// Begin allocates a fresh job from the slab. The returned job is
// uncommitted: counter is zero, there is no callback, and Wait on it
// returns immediately until Commit is called. ErrSlabExhausted is
// returned once every job control block is in use.
func (p *Pool) Begin() (*Job, error) {
	p.closeMu.Lock()
	closed := p.closed
	p.closeMu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	p.jobMu.Lock()
	if p.freeHead == noSuchJob {
		p.jobMu.Unlock()
		p.metrics.Counter(MetricSlabExhausted).Inc()
		return nil, ErrSlabExhausted
	}
	job := &p.jobs[p.freeHead]
	p.freeHead = job.next
	p.jobMu.Unlock()

	job.reset(uuid.New(), p.clock.Now())
	_, span := p.tracer.StartSpan(context.Background(), SpanJobProcess)
	span.SetTag(TagJobID, job.id.String())
	job.processSpan = span
	p.metrics.Counter(MetricJobsBegun).Inc()
	if p.store != nil {
		p.store.RecordBegin(job)
	}
	return job, nil
}

// Add pushes tasks into the ring, each tagged with job. It blocks while
// the ring is full. Add must be called before Commit, and from at most
// one producer goroutine at a time per job: there is no memory barrier
// between Add and Commit beyond the ring and job locks already taken.
func (p *Pool) Add(job *Job, tasks ...TaskFunc) {
	for _, fn := range tasks {
		p.ring.push(job, fn)
	}
	p.jobMu.Lock()
	job.state = jobPartial
	p.jobMu.Unlock()
	job.addTasksQueued(uint32(len(tasks)))
	if len(tasks) > 0 {
		p.metrics.Counter(MetricTasksQueued).Add(float64(len(tasks)))
	}
	p.metrics.Gauge(MetricRingDepth).Set(float64(p.ring.depth()))
}

// Commit closes a job to further Add calls and registers its
// completion callback, substituting a no-op if callback is nil. A job
// must be committed before Wait is meaningful and before its block can
// ever be recycled back to the slab. If every task of the job has
// already finished (or none was added), Commit completes the job itself.
func (p *Pool) Commit(job *Job, callback DoneFunc, arg interface{}) {
	p.jobMu.Lock()
	if callback == nil {
		callback = noop
	}
	job.callback = callback
	job.arg = arg
	job.state = jobLive
	if job.counter.Load() == 0 {
		job.state = jobCompleting
		duration := p.clock.Now().Sub(job.submittedAt)
		job.callback(job, job.arg)
		p.metrics.Counter(MetricJobsCompleted).Inc()
		p.emitJobCompleted(job, duration)
		if p.store != nil {
			p.store.RecordComplete(job)
		}
		if job.processSpan != nil {
			job.processSpan.Finish()
		}
		p.retireJob(job)
		p.jobsDone.Broadcast()
	}
	p.jobMu.Unlock()
}

// Wait blocks until job has completed: every task has run, the
// completion callback has returned and the block is back in the slab.
// If job was never committed (state is still jobEmpty or jobPartial), Wait
// returns immediately: there is nothing to wait for, by contract, even
// if tasks are still queued against it. This is a documented sharp
// edge inherited from the source design, not a bug: callers that
// forget to Commit before relying on Wait will never be unblocked by
// it.
func (p *Pool) Wait(job *Job) {
	p.jobMu.Lock()
	defer p.jobMu.Unlock()
	if job.state != jobLive && job.state != jobCompleting {
		return
	}
	for job.state == jobLive {
		p.jobsDone.Wait()
	}
}

// Close shuts down the pool: every worker wakes, finishes whatever task
// it is running, and exits once the ring reports empty-and-closed. It
// is not safe to call while jobs are still in flight; callers must
// drain (Wait on every committed job) first. Close is idempotent.
func (p *Pool) Close() {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return
	}
	p.closed = true
	p.closeMu.Unlock()

	p.ring.shutdown()
	p.wg.Wait()
}

// retireJob returns job to the slab freelist. It must be called with
// jobMu held, and only by whoever completes the job: the worker that
// observed job's counter transition from 1 to 0, or Commit when the
// counter was already zero.
func (p *Pool) retireJob(job *Job) {
	job.state = jobFree
	job.next = p.freeHead
	p.freeHead = job.idx
}

// Workers returns the number of worker goroutines draining the ring.
func (p *Pool) Workers() int { return p.workers }

// RingDepth returns the number of un-popped tasks currently sitting in
// the task ring, for status reporting.
func (p *Pool) RingDepth() int { return int(p.ring.depth()) }

// Metrics returns the registry this Pool emits counters and gauges
// into, for callers building their own status or scrape endpoint on
// top of it.
func (p *Pool) Metrics() *metricz.Registry { return p.metrics }

var (
	defaultOnce sync.Once
	defaultPool *Pool
	defaultErr  error
)

// Default returns a lazily constructed, process-wide convenience Pool
// sized to GOMAXPROCS. Most programs should construct their own Pool
// with New so lifetime and capacity are explicit; Default exists for
// quick scripts and tests that don't need that control.
func Default() (*Pool, error) {
	defaultOnce.Do(func() {
		defaultPool, defaultErr = New()
	})
	return defaultPool, defaultErr
}
