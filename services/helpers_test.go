package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"taskboard-service/models"
	"taskboard-service/repositories"
	"taskboard-service/repositories/memory"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var (
	manager  = models.Actor{UserID: "m1", Role: models.RoleManager}
	manager2 = models.Actor{UserID: "m2", Role: models.RoleManager}
	member1  = models.Actor{UserID: "u1", Role: models.RoleMember}
	member2  = models.Actor{UserID: "u2", Role: models.RoleMember}
	member3  = models.Actor{UserID: "u3", Role: models.RoleMember}
)

type harness struct {
	store    *memory.Store
	posts    *memory.PostRepo
	notices  repositories.NoticeRepository
	requests *memory.RequestRepo
	users    *memory.Directory
	clock    *fakeClock
	notifier *NotificationService
	tasks    *TaskService
	reqs     *RequestService
}

// newHarness wires the services over one in-memory store. A non-nil notices
// repository replaces the store's own inbox.
func newHarness(t *testing.T, notices repositories.NoticeRepository) *harness {
	t.Helper()
	store := memory.NewStore()
	h := &harness{
		store:    store,
		posts:    store.Posts(),
		notices:  store.Notices(),
		requests: store.Requests(),
		users: memory.NewDirectory(
			models.User{ID: "m1", Username: "ana", DisplayName: "Ana Petrovic"},
			models.User{ID: "m2", Username: "marko"},
			models.User{ID: "u1", Username: "jovan", DisplayName: "Jovan Ilic"},
			models.User{ID: "u2", Username: "mila"},
			models.User{ID: "u3", Username: "luka"},
		),
		clock: &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	if notices != nil {
		h.notices = notices
	}
	h.notifier = NewNotificationService(h.notices, h.clock)
	h.tasks = NewTaskService(h.posts, h.requests, h.users, h.notifier, store, h.clock)
	h.reqs = NewRequestService(h.posts, h.requests, h.users, h.notifier, store)
	return h
}

func (h *harness) create(t *testing.T, title string, collaborators ...string) *models.Post {
	t.Helper()
	post, err := h.tasks.Create(context.Background(), manager, CreatePostInput{
		Title:         title,
		Content:       title + " content",
		Collaborators: collaborators,
	})
	require.NoError(t, err)
	return post
}

func (h *harness) inbox(t *testing.T, userID string) []models.Notice {
	t.Helper()
	notices, err := h.notices.Inbox(context.Background(), userID)
	require.NoError(t, err)
	return notices
}

// orderOf returns title -> order for every post owned by the default manager.
func (h *harness) orderOf(t *testing.T) map[string]int {
	t.Helper()
	page, _, err := h.posts.Find(context.Background(), models.PostQuery{UserID: "m1", Scope: models.ScopeAll, Sort: models.SortOrder})
	require.NoError(t, err)
	out := map[string]int{}
	for _, p := range page {
		out[p.Title] = p.Order
	}
	return out
}

var errInboxDown = errors.New("inbox unavailable")

// failingNotices fails Append for one user and otherwise delegates.
type failingNotices struct {
	repositories.NoticeRepository
	failFor string
}

func (f *failingNotices) Append(ctx context.Context, userID string, n models.Notice) error {
	if userID == f.failFor {
		return errInboxDown
	}
	return f.NoticeRepository.Append(ctx, userID, n)
}
