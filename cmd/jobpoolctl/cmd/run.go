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

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sarvex/jobpool/internal/api"
	"github.com/sarvex/jobpool/pool"
)

var (
	runKind     string
	runCount    int
	runSleepFor time.Duration
	runLocal    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run a job of built-in tasks, against jobpoold or an embedded pool",
	Run:   runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runKind, "kind", "k", "noop", "Task kind: noop or sleep")
	runCmd.Flags().IntVarP(&runCount, "count", "c", 1, "Number of tasks in the job")
	runCmd.Flags().DurationVar(&runSleepFor, "sleep", 100*time.Millisecond, "Sleep duration for kind=sleep")
	runCmd.Flags().BoolVar(&runLocal, "local", false, "Run against a throwaway in-process pool instead of jobpoold")
	RootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) {
	if runLocal {
		runLocalJob()
		return
	}

	client := api.NewClient(socketPath)
	defer client.Close()

	id, err := client.Submit(api.TaskKind(runKind), runCount, runSleepFor)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Submitted job %s\n", id)
}

// runLocalJob constructs a one-shot Pool in this process and runs the
// requested workload against it directly, for exercising the pool
// without a running daemon.
func runLocalJob() {
	p, err := pool.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer p.Close()

	var fn pool.TaskFunc
	switch runKind {
	case "sleep":
		fn = func(*pool.Job) { time.Sleep(runSleepFor) }
	default:
		fn = func(*pool.Job) {}
	}

	job, err := p.Begin()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	tasks := make([]pool.TaskFunc, runCount)
	for i := range tasks {
		tasks[i] = fn
	}
	p.Add(job, tasks...)

	done := make(chan struct{})
	p.Commit(job, func(*pool.Job, interface{}) { close(done) }, nil)
	<-done

	fmt.Printf("Completed job %s locally (%d tasks)\n", job.ID(), runCount)
}
