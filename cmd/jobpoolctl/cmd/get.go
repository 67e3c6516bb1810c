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

	"github.com/spf13/cobra"

	"github.com/sarvex/jobpool/internal/api"
)

var getCmd = &cobra.Command{
	Use:   "get [job-id]",
	Short: "show the status of a single job",
	Args:  cobra.ExactArgs(1),
	Run:   runGet,
}

func init() {
	RootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) {
	client := api.NewClient(socketPath)
	defer client.Close()

	job, err := client.GetJob(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("ID:         %s\n", job.ID)
	fmt.Printf("State:      %s\n", job.State)
	fmt.Printf("Submitted:  %s\n", job.SubmittedAt.Format("2006-01-02 15:04:05"))
	if !job.CompletedAt.IsZero() {
		fmt.Printf("Completed:  %s\n", job.CompletedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("Tasks:      %d/%d\n", job.TasksCompleted, job.TasksQueued)
	if job.Failure != "" {
		fmt.Printf("Failure:    %s\n", job.Failure)
	}
}
