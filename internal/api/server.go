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

package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/coreos/go-systemd/activation"
	"github.com/coreos/go-systemd/daemon"
	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"

	"github.com/sarvex/jobpool/internal/store"
	"github.com/sarvex/jobpool/pool"
)

// Server exposes a Pool over a unix socket, the network counterpart of
// an in-process pool.Pool, modeled on the source's own httprouter/unix
// socket front end. Systemd socket activation is supported the same
// way: if LISTEN_FDS is set, the listener is inherited rather than
// freshly bound.
type Server struct {
	httpSrv *http.Server
	router  *httprouter.Router
	socket  net.Listener

	socketPath     string
	systemdSocket  bool
	startedAt      time.Time

	pool   *pool.Pool
	store  *store.Store
	logger *logrus.Logger

	mu      sync.Mutex
	pending map[string]*JobRecord
}

// New constructs a Server bound to p (and optionally a durable store
// for completed-job lookups) that will listen on socketPath once Bind
// is called.
func New(p *pool.Pool, st *store.Store, socketPath string, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	router := httprouter.New()
	s := &Server{
		httpSrv:    &http.Server{Handler: router},
		router:     router,
		socketPath: socketPath,
		startedAt:  time.Now().UTC(),
		pool:       p,
		store:      st,
		logger:     logger,
		pending:    make(map[string]*JobRecord),
	}

	router.POST("/api/v1/jobs/fanout", s.handleSubmit)
	router.GET("/api/v1/jobs/:id", s.handleJobStatus)
	router.GET("/api/v1/status", s.handleStatus)
	return s
}

// Bind sets up the listening socket, preferring a systemd-activated
// file descriptor over binding one of our own.
func (s *Server) Bind() error {
	if _, ok := os.LookupEnv("LISTEN_FDS"); ok {
		listeners, err := activation.Listeners(true)
		if err != nil {
			return err
		}
		if len(listeners) != 1 {
			return errors.New("api: expected exactly one activated socket")
		}
		unix, ok := listeners[0].(*net.UnixListener)
		if !ok {
			return errors.New("api: expected a unix socket")
		}
		unix.SetUnlinkOnClose(false)
		s.socket = unix
		s.systemdSocket = true
		return nil
	}

	l, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return err
	}
	if err := os.Chmod(s.socketPath, 0660); err != nil {
		l.Close()
		return err
	}
	s.socket = l
	return nil
}

// Serve blocks, handling requests until Close is called. It notifies
// systemd (if applicable) once it is actually ready to accept.
func (s *Server) Serve() error {
	if s.socket == nil {
		return errors.New("api: cannot serve before Bind")
	}
	if s.systemdSocket {
		daemon.SdNotify(false, "READY=1")
	}
	if err := s.httpSrv.Serve(s.socket); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts down the HTTP server and, unless the socket came from
// systemd, removes it from disk.
func (s *Server) Close() {
	s.httpSrv.Shutdown(context.Background())
	if !s.systemdSocket && s.socketPath != "" {
		os.Remove(s.socketPath)
	}
}
