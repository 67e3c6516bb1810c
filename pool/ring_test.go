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
	"testing"
	"time"
)

func TestTaskRingPushPopOrder(t *testing.T) {
	r := newTaskRing(4)
	job := &Job{}

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		r.push(job, func(*Job) { order = append(order, i) })
	}

	for i := 0; i < 3; i++ {
		rec, ok := r.pop()
		if !ok {
			t.Fatalf("pop %d: expected a task", i)
		}
		rec.fn(rec.job)
	}

	for i, v := range order {
		if v != i {
			t.Errorf("FIFO violated: order = %v", order)
		}
	}
}

func TestTaskRingFullBlocksProducer(t *testing.T) {
	r := newTaskRing(2) // one usable slot
	job := &Job{}

	r.push(job, func(*Job) {})

	pushed := make(chan struct{})
	go func() {
		r.push(job, func(*Job) {})
		close(pushed)
	}()

	select {
	case <-pushed:
		t.Fatal("push on a full ring should have blocked")
	case <-time.After(50 * time.Millisecond):
	}

	if _, ok := r.pop(); !ok {
		t.Fatal("expected a task to pop")
	}

	select {
	case <-pushed:
	case <-time.After(time.Second):
		t.Fatal("push should have unblocked after a pop")
	}
}

func TestTaskRingShutdownWakesWaitingPop(t *testing.T) {
	r := newTaskRing(4)

	popped := make(chan bool)
	go func() {
		_, ok := r.pop()
		popped <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	r.shutdown()

	select {
	case ok := <-popped:
		if ok {
			t.Fatal("pop on a shut-down empty ring should report !ok")
		}
	case <-time.After(time.Second):
		t.Fatal("shutdown did not wake the blocked pop")
	}
}

func TestTaskRingDepth(t *testing.T) {
	r := newTaskRing(8)
	job := &Job{}
	for i := 0; i < 3; i++ {
		r.push(job, func(*Job) {})
	}
	if got := r.depth(); got != 3 {
		t.Fatalf("depth() = %d, want 3", got)
	}
	r.pop()
	if got := r.depth(); got != 2 {
		t.Fatalf("depth() after pop = %d, want 2", got)
	}
}
