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

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/sarvex/jobpool/internal/api"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "show jobpoold status and recent job history",
	Run:   runStatus,
}

func init() {
	RootCmd.AddCommand(statusCmd)
}

func printRecentJobs(jobs []api.JobRecord) {
	header := []string{"Status", "Completed", "Tasks", "ID", "Error"}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetBorder(false)

	for _, j := range jobs {
		status := "success"
		if j.Failure != "" {
			status = "failed"
		}
		table.Append([]string{
			status,
			j.CompletedAt.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d/%d", j.TasksCompleted, j.TasksQueued),
			j.ID,
			j.Failure,
		})
	}
	table.Render()
}

func runStatus(cmd *cobra.Command, args []string) {
	client := api.NewClient(socketPath)
	defer client.Close()

	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf(" - Daemon uptime: %v\n", status.Uptime())
	fmt.Printf(" - Daemon version: %v\n", status.Version)
	fmt.Printf(" - Workers: %d   Ring depth: %d\n", status.Workers, status.RingDepth)
	fmt.Printf(" - Jobs begun: %d   completed: %d\n", status.JobsBegun, status.JobsCompleted)
	fmt.Printf(" - Tasks queued: %d   completed: %d   slab exhausted: %d\n",
		status.TasksQueued, status.TasksCompleted, status.SlabExhausted)

	if len(status.Recent) > 0 {
		fmt.Printf("\nRecent jobs:\n\n")
		printRecentJobs(status.Recent)
	}
}
