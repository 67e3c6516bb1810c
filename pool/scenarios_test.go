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
	"testing"
	"time"
)

// S1 — fan-out sum.
func TestScenarioFanOutSum(t *testing.T) {
	p, err := New(WithWorkers(4))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	job, err := p.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	var sum atomic.Int64
	tasks := make([]TaskFunc, 1000)
	for i := 0; i < 1000; i++ {
		i := i
		tasks[i] = func(*Job) { sum.Add(int64(i)) }
	}
	p.Add(job, tasks...)
	p.Commit(job, nil, nil)
	p.Wait(job)

	if got, want := sum.Load(), int64(499500); got != want {
		t.Fatalf("sum = %d, want %d", got, want)
	}
	if job.state != jobFree {
		t.Fatalf("job state = %v, want jobFree", job.state)
	}
}

// S2 — callback fires exactly once.
func TestScenarioCallbackExactlyOnce(t *testing.T) {
	p, err := New(WithWorkers(8))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	job, err := p.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	tasks := make([]TaskFunc, 32)
	for i := range tasks {
		tasks[i] = func(*Job) { time.Sleep(time.Millisecond) }
	}
	p.Add(job, tasks...)

	var callbackCount atomic.Int32
	p.Commit(job, func(j *Job, arg interface{}) {
		callbackCount.Add(1)
	}, nil)
	p.Wait(job)

	if got := callbackCount.Load(); got != 1 {
		t.Fatalf("callback fired %d times, want 1", got)
	}
	if job.counter.Load() != 0 {
		t.Fatalf("counter = %d, want 0", job.counter.Load())
	}
}

// S3 — ring backpressure: a single worker, a small ring, many tasks.
func TestScenarioRingBackpressure(t *testing.T) {
	p, err := New(WithWorkers(1), WithTaskCapacity(256))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	job, err := p.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	var executed atomic.Int32
	tasks := make([]TaskFunc, 1024)
	for i := range tasks {
		tasks[i] = func(*Job) {
			time.Sleep(10 * time.Microsecond)
			executed.Add(1)
		}
	}

	addDone := make(chan struct{})
	go func() {
		p.Add(job, tasks...)
		close(addDone)
	}()

	select {
	case <-addDone:
		t.Fatal("Add should have blocked transiently on ring backpressure")
	case <-time.After(10 * time.Millisecond):
	}
	<-addDone

	p.Commit(job, nil, nil)
	p.Wait(job)

	if got := executed.Load(); got != 1024 {
		t.Fatalf("executed = %d, want 1024", got)
	}
}

// S4 — slab exhaustion.
func TestScenarioSlabExhaustion(t *testing.T) {
	p, err := New(WithWorkers(1), WithJobCapacity(256))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	seen := make(map[*Job]bool, 256)
	for i := 0; i < 256; i++ {
		job, err := p.Begin()
		if err != nil {
			t.Fatalf("Begin %d: unexpected error: %v", i, err)
		}
		if seen[job] {
			t.Fatalf("Begin %d: returned a duplicate job pointer", i)
		}
		seen[job] = true
	}

	if _, err := p.Begin(); err != ErrSlabExhausted {
		t.Fatalf("Begin 257: err = %v, want ErrSlabExhausted", err)
	}
}

// S5 — clean shutdown and re-init.
func TestScenarioCleanShutdown(t *testing.T) {
	p, err := New(WithWorkers(4))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	job, err := p.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	var sum atomic.Int64
	tasks := make([]TaskFunc, 1000)
	for i := range tasks {
		i := i
		tasks[i] = func(*Job) { sum.Add(int64(i)) }
	}
	p.Add(job, tasks...)
	p.Commit(job, nil, nil)
	p.Wait(job)

	p.Close()

	if p2, err := New(WithWorkers(2)); err != nil {
		t.Fatalf("re-init after Close: %v", err)
	} else {
		p2.Close()
	}
}

// S6 — wait on an uncommitted job returns immediately.
func TestScenarioUncommittedWaitReturnsImmediately(t *testing.T) {
	p, err := New(WithWorkers(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	job, err := p.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	done := make(chan struct{})
	go func() {
		p.Wait(job)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait on an uncommitted job should return immediately")
	}
}

// S7 — a panicking task does not prevent its job from completing, and
// the panic is recorded on the job.
func TestScenarioTaskPanicRecovered(t *testing.T) {
	p, err := New(WithWorkers(4))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	job, err := p.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	var ran atomic.Int32
	tasks := make([]TaskFunc, 10)
	for i := range tasks {
		i := i
		tasks[i] = func(*Job) {
			if i == 5 {
				panic("boom")
			}
			ran.Add(1)
		}
	}
	p.Add(job, tasks...)
	p.Commit(job, nil, nil)
	p.Wait(job)

	if got := ran.Load(); got != 9 {
		t.Fatalf("ran = %d, want 9", got)
	}
	if job.Failure() == nil {
		t.Fatal("expected job.Failure() to record the recovered panic")
	}
}

// Conservation: every queued task runs exactly once, and the callback
// fires exactly once, across many concurrently-submitted jobs.
func TestInvariantConservation(t *testing.T) {
	p, err := New(WithWorkers(4))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	const jobs = 20
	const tasksPerJob = 50

	var wg sync.WaitGroup
	for j := 0; j < jobs; j++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job, err := p.Begin()
			if err != nil {
				t.Errorf("Begin: %v", err)
				return
			}
			var ran atomic.Int32
			tasks := make([]TaskFunc, tasksPerJob)
			for i := range tasks {
				tasks[i] = func(*Job) { ran.Add(1) }
			}
			p.Add(job, tasks...)
			var callbacks atomic.Int32
			p.Commit(job, func(*Job, interface{}) { callbacks.Add(1) }, nil)
			p.Wait(job)
			if got := ran.Load(); got != tasksPerJob {
				t.Errorf("ran = %d, want %d", got, tasksPerJob)
			}
			if got := callbacks.Load(); got != 1 {
				t.Errorf("callbacks = %d, want 1", got)
			}
		}()
	}
	wg.Wait()
}

// No leaks: after a sequence of begin/add/commit/wait cycles, the
// freelist holds exactly the job capacity again.
func TestInvariantNoLeaks(t *testing.T) {
	const capacity = 32
	p, err := New(WithWorkers(4), WithJobCapacity(capacity))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	for round := 0; round < 5; round++ {
		jobs := make([]*Job, capacity)
		for i := range jobs {
			job, err := p.Begin()
			if err != nil {
				t.Fatalf("round %d Begin %d: %v", round, i, err)
			}
			jobs[i] = job
			p.Add(job, func(*Job) {})
			p.Commit(job, nil, nil)
		}
		for _, job := range jobs {
			p.Wait(job)
		}
	}

	p.jobMu.Lock()
	count := 0
	for idx := p.freeHead; idx != noSuchJob; idx = p.jobs[idx].next {
		count++
	}
	p.jobMu.Unlock()

	if count != capacity {
		t.Fatalf("freelist length = %d, want %d", count, capacity)
	}
}
