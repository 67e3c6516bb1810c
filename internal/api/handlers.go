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

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"

	"github.com/sarvex/jobpool/pool"
)

// sendJSON writes v as the response body. Errors encoding it are
// logged and answered with a plain 500 carrying the error text, matching the source's own
// sendStockError fallback: there is nothing more useful to do with a
// broken encoder mid-response.
func (s *Server) sendJSON(w http.ResponseWriter, v interface{}) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		s.logger.WithError(err).Error("api: failed to encode response")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Write(buf.Bytes())
}

func (s *Server) sendError(w http.ResponseWriter, err error, status int) {
	s.logger.WithError(err).Warn("api: request failed")
	w.WriteHeader(status)
	s.sendJSON(w, Response{Error: true, ErrorString: err.Error()})
}

// taskFor builds the closure jobpoold runs for one unit of a
// TaskKind. Unlike an in-process caller of pool.Add, a wire client
// cannot hand the daemon an arbitrary closure, so only the kinds named
// in TaskKind are dispatchable.
func taskFor(kind TaskKind, sleepFor time.Duration) (pool.TaskFunc, error) {
	switch kind {
	case TaskNoop, "":
		return func(*pool.Job) {}, nil
	case TaskSleep:
		return func(*pool.Job) { time.Sleep(sleepFor) }, nil
	default:
		return nil, errInvalidKind
	}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err, http.StatusBadRequest)
		return
	}
	if req.Count <= 0 {
		s.sendError(w, errInvalidCount, http.StatusBadRequest)
		return
	}
	fn, err := taskFor(req.Kind, req.SleepFor)
	if err != nil {
		s.sendError(w, err, http.StatusBadRequest)
		return
	}

	job, err := s.pool.Begin()
	if err != nil {
		s.sendError(w, err, http.StatusServiceUnavailable)
		return
	}

	tasks := make([]pool.TaskFunc, req.Count)
	for i := range tasks {
		tasks[i] = fn
	}
	s.pool.Add(job, tasks...)

	id := job.ID().String()
	s.mu.Lock()
	s.pending[id] = &JobRecord{
		ID:          id,
		State:       "live",
		SubmittedAt: job.SubmittedAt(),
	}
	s.mu.Unlock()

	s.pool.Commit(job, s.onJobDone, nil)

	s.sendJSON(w, SubmitResponse{JobID: id})
}

// onJobDone is a pool.DoneFunc: it runs on the worker goroutine that
// observed the job's last task complete (or inside Commit if every task
// had already finished), so it must stay cheap and must not call back
// into the pool for this job.
func (s *Server) onJobDone(job *pool.Job, _ interface{}) {
	id := job.ID().String()
	rec := JobRecord{
		ID:             id,
		State:          "completed",
		SubmittedAt:    job.SubmittedAt(),
		CompletedAt:    time.Now().UTC(),
		TasksQueued:    job.TasksQueued(),
		TasksCompleted: job.TasksCompleted(),
	}
	if job.Failure() != nil {
		rec.Failure = job.Failure().Error()
	}
	s.mu.Lock()
	s.pending[id] = &rec
	s.mu.Unlock()
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	id := p.ByName("id")

	s.mu.Lock()
	rec, ok := s.pending[id]
	s.mu.Unlock()
	if ok {
		s.sendJSON(w, JobStatusResponse{Job: *rec})
		return
	}

	if s.store != nil {
		if stored, found, err := s.store.Get(id); err == nil && found {
			s.sendJSON(w, JobStatusResponse{Job: JobRecord{
				ID:             stored.ID,
				State:          "completed",
				SubmittedAt:    stored.SubmittedAt,
				CompletedAt:    stored.CompletedAt,
				TasksCompleted: stored.TasksCompleted,
				Failure:        stored.Failure,
			}})
			return
		}
	}

	s.sendError(w, errUnknownJob, http.StatusNotFound)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	m := s.pool.Metrics()
	resp := StatusResponse{
		Version:        Version,
		StartedAt:      s.startedAt,
		Workers:        s.pool.Workers(),
		RingDepth:      s.pool.RingDepth(),
		JobsBegun:      uint64(m.Counter(pool.MetricJobsBegun).Value()),
		JobsCompleted:  uint64(m.Counter(pool.MetricJobsCompleted).Value()),
		TasksQueued:    uint64(m.Counter(pool.MetricTasksQueued).Value()),
		TasksCompleted: uint64(m.Counter(pool.MetricTasksCompleted).Value()),
		SlabExhausted:  uint64(m.Counter(pool.MetricSlabExhausted).Value()),
	}

	if s.store != nil {
		if recent, err := s.store.Recent(20); err == nil {
			for _, rec := range recent {
				resp.Recent = append(resp.Recent, JobRecord{
					ID:             rec.ID,
					State:          "completed",
					SubmittedAt:    rec.SubmittedAt,
					CompletedAt:    rec.CompletedAt,
					TasksCompleted: rec.TasksCompleted,
					Failure:        rec.Failure,
				})
			}
		} else {
			s.logger.WithFields(logrus.Fields{"error": err}).Warn("api: failed to read recent jobs from store")
		}
	}

	s.sendJSON(w, resp)
}
