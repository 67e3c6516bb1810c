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
	"github.com/spf13/cobra"
)

// RootCmd is the main entry point into jobpoolctl.
var RootCmd = &cobra.Command{
	Use:   "jobpoolctl",
	Short: "jobpoolctl talks to a running jobpoold over its unix socket",
}

var socketPath = "/run/jobpoold.sock"

func init() {
	RootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "s", socketPath, "Unix socket path jobpoold is listening on")
}
