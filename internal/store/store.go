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

// Package store is an optional, best-effort durable log of job
// submissions and completions, for crash forensics and CLI status
// reporting. It never gates scheduling: a Store write failure is
// logged and otherwise swallowed, exactly like the source's
// "the core does no logging, produces no error messages" stance
// extended to this side channel, except that here we do log, since
// unlike the core's task bodies a store write has an obvious, safe
// place to report failure.
package store

import (
	"bytes"
	"encoding/gob"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"github.com/sarvex/jobpool/pool"
)

var (
	bucketPending   = []byte("pending")
	bucketCompleted = []byte("completed")
)

// Record is the durable representation of a job, independent of the
// in-memory Job control block it was copied from.
type Record struct {
	ID             string
	SubmittedAt    time.Time
	CompletedAt    time.Time
	TasksQueued    uint32
	TasksCompleted uint32
	Failure        string
}

// Store wraps a bbolt database holding the pending and completed job
// logs. It implements pool.Store.
type Store struct {
	db     *bolt.DB
	logger *logrus.Logger
}

// Open creates or opens the durable submission log at path.
func Open(path string, logger *logrus.Logger) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Store{db: db, logger: logger}
	if err := s.setup(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) setup() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketPending, bucketCompleted} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordBegin writes a pending entry for job. It satisfies pool.Store.
func (s *Store) RecordBegin(job *pool.Job) {
	rec := Record{
		ID:          job.ID().String(),
		SubmittedAt: job.SubmittedAt(),
	}
	if err := s.put(bucketPending, rec); err != nil {
		s.logger.WithFields(logrus.Fields{
			"job_id": rec.ID,
			"error":  err,
		}).Error("store: failed to record job submission")
	}
}

// RecordComplete moves job's entry from pending to completed. It
// satisfies pool.Store.
func (s *Store) RecordComplete(job *pool.Job) {
	rec := Record{
		ID:             job.ID().String(),
		SubmittedAt:    job.SubmittedAt(),
		CompletedAt:    time.Now(),
		TasksCompleted: job.TasksCompleted(),
	}
	if job.Failure() != nil {
		rec.Failure = job.Failure().Error()
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		id := []byte(rec.ID)
		if err := tx.Bucket(bucketPending).Delete(id); err != nil {
			return err
		}
		blob, err := encode(rec)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketCompleted).Put(id, blob)
	})
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"job_id": rec.ID,
			"error":  err,
		}).Error("store: failed to record job completion")
	}
}

// Get returns the completed record for id, if one exists.
func (s *Store) Get(id string) (Record, bool, error) {
	var rec Record
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		blob := tx.Bucket(bucketCompleted).Get([]byte(id))
		if blob == nil {
			return nil
		}
		found = true
		return decode(blob, &rec)
	})
	return rec, found, err
}

// Recent returns up to limit completed records, most recently completed
// first.
func (s *Store) Recent(limit int) ([]Record, error) {
	var records []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCompleted).ForEach(func(_, v []byte) error {
			var rec Record
			if err := decode(v, &rec); err != nil {
				return err
			}
			records = append(records, rec)
			return nil
		})
	})
	sort.Slice(records, func(i, j int) bool {
		return records[i].CompletedAt.After(records[j].CompletedAt)
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records, err
}

func (s *Store) put(bucket []byte, rec Record) error {
	blob, err := encode(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(rec.ID), blob)
	})
}

func encode(rec Record) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := gob.NewEncoder(buf).Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(blob []byte, rec *Record) error {
	return gob.NewDecoder(bytes.NewReader(blob)).Decode(rec)
}
