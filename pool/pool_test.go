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

import "testing"

func TestNewRejectsInvalidOptions(t *testing.T) {
	cases := []struct {
		name string
		opts []Option
		want error
	}{
		{"zero workers", []Option{WithWorkers(0)}, ErrInvalidWorkers},
		{"negative workers", []Option{WithWorkers(-1)}, ErrInvalidWorkers},
		{"zero job capacity", []Option{WithJobCapacity(0)}, ErrInvalidJobCapacity},
		{"zero task capacity", []Option{WithTaskCapacity(0)}, ErrInvalidTaskCapacity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.opts...); err != tc.want {
				t.Fatalf("New(%s) err = %v, want %v", tc.name, err, tc.want)
			}
		})
	}
}

func TestTaskCapacityRoundsUpToPowerOfTwo(t *testing.T) {
	p, err := New(WithWorkers(1), WithTaskCapacity(100))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	if got := len(p.ring.buf); got != 128 {
		t.Fatalf("ring capacity = %d, want 128", got)
	}
}

func TestBeginResetsJobState(t *testing.T) {
	p, err := New(WithWorkers(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	job, err := p.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if job.state != jobEmpty {
		t.Fatalf("state = %v, want jobEmpty", job.state)
	}
	if job.counter.Load() != 0 {
		t.Fatalf("counter = %d, want 0", job.counter.Load())
	}
	if job.callback != nil {
		t.Fatal("callback should be nil before Commit")
	}
}

func TestCommitInstallsNoopSentinel(t *testing.T) {
	p, err := New(WithWorkers(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	job, err := p.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	p.Commit(job, nil, nil)
	if job.callback == nil {
		t.Fatal("Commit(nil) should install the no-op sentinel, not leave callback nil")
	}
}

func TestDefaultIsSingleton(t *testing.T) {
	p1, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	p2, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if p1 != p2 {
		t.Fatal("Default() should return the same pool every call")
	}
}
