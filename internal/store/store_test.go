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

package store

import (
	"path/filepath"
	"testing"

	"github.com/sarvex/jobpool/pool"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobpool.db")
	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open() err = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordBeginThenComplete(t *testing.T) {
	s := openTestStore(t)
	p, err := pool.New(pool.WithWorkers(1), pool.WithStore(s))
	if err != nil {
		t.Fatalf("pool.New() err = %v", err)
	}
	defer p.Close()

	job, err := p.Begin()
	if err != nil {
		t.Fatalf("Begin() err = %v", err)
	}
	id := job.ID().String()

	done := make(chan struct{})
	p.Add(job, func(*pool.Job) {})
	p.Commit(job, func(*pool.Job, interface{}) { close(done) }, nil)
	<-done
	p.Wait(job)

	rec, found, err := s.Get(id)
	if err != nil {
		t.Fatalf("Get() err = %v", err)
	}
	if !found {
		t.Fatalf("Get(%s) found = false, want true", id)
	}
	if rec.TasksCompleted != 1 {
		t.Errorf("TasksCompleted = %d, want 1", rec.TasksCompleted)
	}
	if rec.Failure != "" {
		t.Errorf("Failure = %q, want empty", rec.Failure)
	}
}

func TestRecentOrdersMostRecentFirst(t *testing.T) {
	s := openTestStore(t)
	p, err := pool.New(pool.WithWorkers(1), pool.WithStore(s))
	if err != nil {
		t.Fatalf("pool.New() err = %v", err)
	}
	defer p.Close()

	const n = 3
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		job, err := p.Begin()
		if err != nil {
			t.Fatalf("Begin() err = %v", err)
		}
		ids = append(ids, job.ID().String())
		done := make(chan struct{})
		p.Add(job, func(*pool.Job) {})
		p.Commit(job, func(*pool.Job, interface{}) { close(done) }, nil)
		<-done
		p.Wait(job)
	}

	recent, err := s.Recent(n)
	if err != nil {
		t.Fatalf("Recent() err = %v", err)
	}
	if len(recent) != n {
		t.Fatalf("Recent(%d) returned %d records, want %d", n, len(recent), n)
	}
	for i, rec := range recent {
		if want := ids[n-1-i]; rec.ID != want {
			t.Errorf("Recent()[%d].ID = %s, want %s", i, rec.ID, want)
		}
	}
}

func TestGetUnknownJobNotFound(t *testing.T) {
	s := openTestStore(t)
	_, found, err := s.Get("does-not-exist")
	if err != nil {
		t.Fatalf("Get() err = %v", err)
	}
	if found {
		t.Errorf("Get(unknown) found = true, want false")
	}
}
