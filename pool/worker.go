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
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
)

// workerLoop pops one task at a time, runs it, and decrements the
// owning job's counter. The transition test (did this decrement
// observe 1 -> 0?) lives here rather than inside Wait because multiple
// callers may want to be notified of completion, but only one goroutine
// may own the completion action: tying that ownership to the atomic
// decrement gives exactly-once callback/free semantics without a
// second lock.
func (p *Pool) workerLoop() {
	defer p.wg.Done()
	for {
		rec, ok := p.ring.pop()
		if !ok {
			return
		}
		p.metrics.Gauge(MetricRingDepth).Set(float64(p.ring.depth()))
		active := p.workersActive.Add(1)
		p.metrics.Gauge(MetricWorkersActive).Set(float64(active))
		p.runTask(rec)
		active = p.workersActive.Add(^uint32(0))
		p.metrics.Gauge(MetricWorkersActive).Set(float64(active))
	}
}

func (p *Pool) runTask(rec taskRecord) {
	_, span := p.tracer.StartSpan(context.Background(), SpanTaskExecute)
	span.SetTag(TagJobID, rec.job.id.String())
	span.SetTag(TagTaskIndex, strconv.FormatUint(uint64(rec.idx), 10))
	defer span.Finish()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("task panic: %v", r)
			rec.job.recordFailure(err)
			p.logger.WithFields(logrus.Fields{
				"job_id": rec.job.id,
				"panic":  r,
			}).Error("recovered panic in task body")
		}
		p.completeTask(rec.job)
	}()

	rec.fn(rec.job)
}

// completeTask performs the atomic decrement and, on the 1 -> 0
// transition, invokes the job's callback, emits the completion hook,
// retires the job block to the slab, and wakes anyone blocked in Wait.
func (p *Pool) completeTask(job *Job) {
	job.incTasksCompleted()
	p.metrics.Counter(MetricTasksCompleted).Inc()

	if job.counter.Add(^uint32(0)) != 0 {
		return
	}

	p.jobMu.Lock()
	if job.state == jobLive && job.counter.Load() == 0 {
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
	}
	p.jobsDone.Broadcast()
	p.jobMu.Unlock()
}
