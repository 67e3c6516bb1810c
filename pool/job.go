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
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/tracez"
)

// jobState is the explicit lifecycle state of a job control block,
// replacing the "callback == nil" brittleness the source relies on to
// distinguish committed from uncommitted jobs.
type jobState uint8

const (
	jobFree jobState = iota
	jobEmpty
	jobPartial
	jobLive
	jobCompleting
)

// noSuchJob marks the end of the slab freelist.
const noSuchJob = ^uint32(0)

// DoneFunc is invoked exactly once, by the worker whose decrement of a
// job's outstanding-task counter observes the 1->0 transition (or by
// Commit itself if the counter is already zero when it runs), after
// which the job control block is returned to the slab.
type DoneFunc func(job *Job, arg interface{})

// TaskFunc is a single unit of work belonging to a Job. It receives the
// owning Job so it can inspect its id for logging/tracing, but must not
// call any Job or Pool method that would recurse into the ring or job
// locks (Add/Commit/Wait on its own job from within a task deadlocks).
type TaskFunc func(job *Job)

// Job is a job control block: a named group of tasks sharing one
// completion signal. The zero value is not usable; Jobs are obtained
// from Pool.Begin and must never be constructed directly.
type Job struct {
	idx   uint32 // fixed position in the slab, never changes
	next  uint32 // freelist link, only meaningful while state == jobFree
	state jobState

	counter atomic.Uint32 // tasks queued but not yet completed
	taskSeq atomic.Uint32 // next task index to assign, for tracing only

	callback DoneFunc
	arg      interface{}

	id          uuid.UUID
	submittedAt time.Time
	processSpan *tracez.Span // job.process span, opened in Begin, closed on completion

	// obsMu guards the observability-only fields below. It is
	// independent of the pool's job and ring locks: nothing on the
	// scheduling hot path ever blocks on it.
	obsMu          sync.Mutex
	tasksQueued    uint32
	tasksCompleted uint32
	failure        error
}

// ID returns the job's identifier, assigned when it was obtained from
// Begin. It is used for observability (metrics, tracing, the durable
// submission log) only; the scheduler never consults it.
func (j *Job) ID() uuid.UUID { return j.id }

// SubmittedAt returns the time Begin returned this job.
func (j *Job) SubmittedAt() time.Time { return j.submittedAt }

// Failure returns the first recovered task panic belonging to this job,
// if any. It is only meaningful after Wait has returned.
func (j *Job) Failure() error {
	j.obsMu.Lock()
	defer j.obsMu.Unlock()
	return j.failure
}

// TasksQueued returns the number of tasks Add has pushed for this job
// so far.
func (j *Job) TasksQueued() uint32 {
	j.obsMu.Lock()
	defer j.obsMu.Unlock()
	return j.tasksQueued
}

// TasksCompleted returns the number of this job's tasks that have
// finished running, including ones that panicked.
func (j *Job) TasksCompleted() uint32 {
	j.obsMu.Lock()
	defer j.obsMu.Unlock()
	return j.tasksCompleted
}

func (j *Job) reset(id uuid.UUID, now time.Time) {
	j.counter.Store(0)
	j.taskSeq.Store(0)
	j.callback = nil
	j.arg = nil
	j.state = jobEmpty
	j.id = id
	j.submittedAt = now
	j.processSpan = nil
	j.obsMu.Lock()
	j.tasksQueued = 0
	j.tasksCompleted = 0
	j.failure = nil
	j.obsMu.Unlock()
}

func (j *Job) addTasksQueued(n uint32) {
	j.obsMu.Lock()
	j.tasksQueued += n
	j.obsMu.Unlock()
}

func (j *Job) incTasksCompleted() {
	j.obsMu.Lock()
	j.tasksCompleted++
	j.obsMu.Unlock()
}

func (j *Job) recordFailure(err error) {
	j.obsMu.Lock()
	if j.failure == nil {
		j.failure = err
	}
	j.obsMu.Unlock()
}

func noop(*Job, interface{}) {}
