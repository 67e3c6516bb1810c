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

// Package pool implements a fixed-capacity worker pool: a bounded MPMC
// task queue, a slab-allocated pool of job control blocks, an atomic
// completion counter per job, and two condition-variable protocols (one
// for ring backpressure, one for job completion).
//
// A Job groups one or more Tasks under a single completion signal. The
// lifecycle is Begin, then zero or more Add calls from a single producer,
// then Commit to register the completion callback, then optionally Wait
// to block until every task belonging to the job has run.
package pool
