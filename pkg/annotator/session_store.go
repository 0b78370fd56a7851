// Copyright 2025 Antfly, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package annotator

import (
	"context"
	"sync"
	"time"

	"github.com/antflydb/annotator/pkg/annotator/lib/pipeline"
	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"
)

// Session holds one document between requests. Decoding an edited table
// needs the tokens the table was encoded from, so the session keeps the
// original text and tokens for its whole lifetime.
type Session struct {
	ID     string
	Source string
	File   string

	mu  sync.Mutex
	doc *pipeline.Document
}

// Document returns the current document.
func (s *Session) Document() *pipeline.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// Update applies fn to the current document under the session lock and
// stores the result when fn succeeds.
func (s *Session) Update(fn func(*pipeline.Document) (*pipeline.Document, error)) (*pipeline.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(s.doc)
	if err != nil {
		return nil, err
	}
	s.doc = next
	return next, nil
}

// SessionStore keeps sessions in a TTL cache; a session expires after
// being idle for the configured TTL.
type SessionStore struct {
	cache  *ttlcache.Cache[string, *Session]
	logger *zap.Logger
}

// NewSessionStore creates a store. maxSessions of 0 means unlimited;
// beyond it the least recently used session is evicted.
func NewSessionStore(ttl time.Duration, maxSessions uint64, logger *zap.Logger) *SessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []ttlcache.Option[string, *Session]{
		ttlcache.WithTTL[string, *Session](ttl),
	}
	if maxSessions > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, *Session](maxSessions))
	}

	s := &SessionStore{
		cache:  ttlcache.New(opts...),
		logger: logger,
	}
	s.cache.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *Session]) {
		reasonStr := "deleted"
		switch reason {
		case ttlcache.EvictionReasonExpired:
			reasonStr = "expired"
		case ttlcache.EvictionReasonCapacityReached:
			reasonStr = "capacity reached"
		}
		logger.Debug("Session evicted",
			zap.String("id", item.Key()),
			zap.String("reason", reasonStr))
		SetActiveSessions(s.cache.Len())
	})

	go s.cache.Start()
	return s
}

// Create stores doc in a new session.
func (s *SessionStore) Create(doc *pipeline.Document, source, file string) *Session {
	sess := &Session{
		ID:     uuid.NewString(),
		Source: source,
		File:   file,
		doc:    doc,
	}
	s.cache.Set(sess.ID, sess, ttlcache.DefaultTTL)
	SetActiveSessions(s.cache.Len())
	s.logger.Debug("Session created",
		zap.String("id", sess.ID),
		zap.String("source", source))
	return sess
}

// Get returns the session and extends its lifetime.
func (s *SessionStore) Get(id string) (*Session, bool) {
	item := s.cache.Get(id)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

// Delete removes a session.
func (s *SessionStore) Delete(id string) {
	s.cache.Delete(id)
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	return s.cache.Len()
}

// Close stops the expiry loop.
func (s *SessionStore) Close() {
	s.cache.Stop()
}
