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

// Command jobpoold runs a pool.Pool behind a unix socket, the daemon
// counterpart of embedding the pool directly in a Go process.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	_ "go.uber.org/automaxprocs" // sets GOMAXPROCS from the cgroup quota before New() reads it

	"github.com/sarvex/jobpool/internal/api"
	"github.com/sarvex/jobpool/internal/store"
	"github.com/sarvex/jobpool/pool"
)

var (
	baseDir      = "/var/lib/jobpoold"
	socketPath   = "/run/jobpoold.sock"
	workers      = -1
	jobCapacity  = 256
	taskCapacity = 256
)

func mainLoop() error {
	pflag.StringVarP(&baseDir, "base", "d", baseDir, "Base directory for jobpoold's durable submission log")
	pflag.StringVarP(&socketPath, "socket", "s", socketPath, "Unix socket path to listen on")
	pflag.IntVarP(&workers, "workers", "w", -1, "Number of worker goroutines (-1 uses GOMAXPROCS)")
	pflag.IntVar(&jobCapacity, "job-capacity", jobCapacity, "Number of job control blocks in the slab")
	pflag.IntVar(&taskCapacity, "task-capacity", taskCapacity, "Task ring capacity (rounded up to a power of two)")
	pflag.Parse()

	form := &log.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05"}
	log.SetFormatter(form)
	logger := log.StandardLogger()

	b, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("cannot resolve base directory %s: %w", baseDir, err)
	}
	baseDir = b
	if err := os.MkdirAll(baseDir, 0750); err != nil {
		return fmt.Errorf("cannot create base directory %s: %w", baseDir, err)
	}

	opts := []pool.Option{
		pool.WithJobCapacity(jobCapacity),
		pool.WithTaskCapacity(taskCapacity),
		pool.WithLogger(logger),
	}
	if workers > 0 {
		opts = append(opts, pool.WithWorkers(workers))
	}

	st, err := store.Open(filepath.Join(baseDir, "jobpool.db"), logger)
	if err != nil {
		return fmt.Errorf("failed to open submission log: %w", err)
	}
	defer st.Close()
	opts = append(opts, pool.WithStore(st))

	p, err := pool.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to construct pool: %w", err)
	}

	srv := api.New(p, st, socketPath, logger)
	if err := srv.Bind(); err != nil {
		return fmt.Errorf("failed to bind socket %s: %w", socketPath, err)
	}
	defer srv.Close()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ch
		log.Warning("jobpoold shutting down")
		srv.Close()
		p.Close()
		os.Exit(0)
	}()

	log.WithFields(log.Fields{
		"socket":  socketPath,
		"workers": p.Workers(),
	}).Info("jobpoold listening")

	return srv.Serve()
}

func main() {
	if err := mainLoop(); err != nil {
		fmt.Fprintf(os.Stderr, "jobpoold: %v\n", err)
		os.Exit(1)
	}
}
