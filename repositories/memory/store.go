// Package memory implements the repositories in process memory. All
// repositories of one Store share a single lock, and the Store doubles as
// their Transactor by snapshotting state and restoring it on failure.
package memory

import (
	"context"
	"sync"

	"taskboard-service/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type storeData struct {
	posts    map[primitive.ObjectID]*models.Post
	inboxes  map[string][]models.Notice
	requests map[string][]primitive.ObjectID
}

func (d *storeData) clone() *storeData {
	c := &storeData{
		posts:    make(map[primitive.ObjectID]*models.Post, len(d.posts)),
		inboxes:  make(map[string][]models.Notice, len(d.inboxes)),
		requests: make(map[string][]primitive.ObjectID, len(d.requests)),
	}
	for id, p := range d.posts {
		c.posts[id] = p.Clone()
	}
	for user, notices := range d.inboxes {
		c.inboxes[user] = append([]models.Notice(nil), notices...)
	}
	for user, ids := range d.requests {
		c.requests[user] = append([]primitive.ObjectID(nil), ids...)
	}
	return c
}

type Store struct {
	mu   sync.Mutex
	data *storeData
}

func NewStore() *Store {
	return &Store{data: &storeData{
		posts:    map[primitive.ObjectID]*models.Post{},
		inboxes:  map[string][]models.Notice{},
		requests: map[string][]primitive.ObjectID{},
	}}
}

type txKey struct{}

func (s *Store) inTransaction(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// withLock runs fn under the store lock, or directly when ctx already belongs
// to a transaction of this store (which holds the lock).
func (s *Store) withLock(ctx context.Context, fn func(d *storeData) error) error {
	if s.inTransaction(ctx) {
		return fn(s.data)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTransaction(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) Posts() *PostRepo       { return &PostRepo{store: s} }
func (s *Store) Notices() *NoticeRepo   { return &NoticeRepo{store: s} }
func (s *Store) Requests() *RequestRepo { return &RequestRepo{store: s} }
