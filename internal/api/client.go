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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Client talks to a running jobpoold over its unix socket. It is the
// network counterpart of calling pool.Pool directly in-process.
type Client struct {
	http *http.Client
}

// NewClient returns a Client dialing the unix socket at address.
func NewClient(address string) *Client {
	return &Client{
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, "unix", address)
				},
				IdleConnTimeout:       30 * time.Second,
				ExpectContinueTimeout: time.Second,
			},
			Timeout: 20 * time.Second,
		},
	}
}

// Close releases any idle connections held open against the socket.
func (c *Client) Close() {
	c.http.Transport.(*http.Transport).CloseIdleConnections()
}

func (c *Client) uri(part string) string {
	return fmt.Sprintf("http://jobpoold.sock/%s", part)
}

// Submit asks jobpoold to run a job of count tasks of kind.
func (c *Client) Submit(kind TaskKind, count int, sleepFor time.Duration) (string, error) {
	req := SubmitRequest{Kind: kind, Count: count, SleepFor: sleepFor}
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(req); err != nil {
		return "", err
	}
	resp, err := c.http.Post(c.uri("api/v1/jobs/fanout"), "application/json; charset=utf-8", buf)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Error {
		return "", errors.New(out.ErrorString)
	}
	return out.JobID, nil
}

// GetJob fetches the current status of a job by id.
func (c *Client) GetJob(id string) (JobRecord, error) {
	resp, err := c.http.Get(c.uri("api/v1/jobs/" + id))
	if err != nil {
		return JobRecord{}, err
	}
	defer resp.Body.Close()

	var out JobStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return JobRecord{}, err
	}
	if out.Error {
		return JobRecord{}, errors.New(out.ErrorString)
	}
	return out.Job, nil
}

// GetStatus fetches the daemon's overall status.
func (c *Client) GetStatus() (StatusResponse, error) {
	resp, err := c.http.Get(c.uri("api/v1/status"))
	if err != nil {
		return StatusResponse{}, err
	}
	defer resp.Body.Close()

	var out StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return StatusResponse{}, err
	}
	if out.Error {
		return StatusResponse{}, errors.New(out.ErrorString)
	}
	return out, nil
}
