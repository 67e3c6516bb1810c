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

import "errors"

var (
	// ErrSlabExhausted is returned by Begin when every job control block
	// is already in use. The caller should back off or drain in-flight
	// work before retrying.
	ErrSlabExhausted = errors.New("pool: job slab exhausted")

	// ErrInvalidWorkers is returned by New when the requested worker
	// count is zero or negative.
	ErrInvalidWorkers = errors.New("pool: worker count must be positive")

	// ErrInvalidJobCapacity is returned by New when the job slab capacity
	// is zero or negative.
	ErrInvalidJobCapacity = errors.New("pool: job capacity must be positive")

	// ErrInvalidTaskCapacity is returned by New when the task ring
	// capacity is zero or negative.
	ErrInvalidTaskCapacity = errors.New("pool: task capacity must be positive")

	// ErrClosed is returned by Begin once the pool has been closed.
	ErrClosed = errors.New("pool: closed")
)
