package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"taskboard-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNoticeText(t *testing.T) {
	deadline := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		post *models.Post
		want string
	}{
		{
			"solo without deadline",
			&models.Post{Priority: models.PriorityLow},
			`New task "X" was created. Priority: low.`,
		},
		{
			"one collaborator",
			&models.Post{Priority: models.PriorityMedium, IsCollaborative: true, Collaborators: []models.Collaborator{{Value: "u1"}}, Deadline: &deadline},
			`New task "X" was created with 1 collaborator. Priority: medium. Deadline: Mar 4, 2026.`,
		},
		{
			"team without collaborators",
			&models.Post{Priority: models.PriorityHigh, IsCollaborative: true, TeamName: "Core"},
			`New task "X" was created with 0 collaborators. Priority: high.`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NoticeText(`New task "X" was created`, tt.post))
		})
	}
}

func TestNotify_DeduplicatesRecipients(t *testing.T) {
	h := newHarness(t, nil)
	postID := primitive.NewObjectID()

	delivered, err := h.notifier.Notify(context.Background(), NotifyInput{
		PostID: postID, Recipients: []string{"u1", "u2", "u1", ""}, Text: "hello",
	})
	require.NoError(t, err)
	require.Len(t, delivered, 2)
	assert.Len(t, h.inbox(t, "u1"), 1)
	assert.Len(t, h.inbox(t, "u2"), 1)
	assert.Equal(t, models.NoticeAlert, h.inbox(t, "u1")[0].NotiType)
	assert.NotEqual(t, delivered[0].NoticeID, delivered[1].NoticeID)
}

func TestNotify_ConcurrentFanOutToFreshInboxes(t *testing.T) {
	h := newHarness(t, nil)
	recipients := []string{"u1", "u2", "u3", "m1", "m2"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.notifier.Notify(context.Background(), NotifyInput{
				PostID: primitive.NewObjectID(), Recipients: recipients, Text: "x",
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	for _, user := range recipients {
		assert.Len(t, h.inbox(t, user), 8, user)
	}
}

func TestNotify_FailureRetractsDeliveredCopies(t *testing.T) {
	h := newHarness(t, nil)
	h.notifier = NewNotificationService(&failingNotices{NoticeRepository: h.notices, failFor: "u3"}, h.clock)

	_, err := h.notifier.Notify(context.Background(), NotifyInput{
		PostID: primitive.NewObjectID(), Recipients: []string{"u1", "u2", "u3"}, Text: "x",
	})
	require.ErrorIs(t, err, errInboxDown)
	assert.Empty(t, h.inbox(t, "u1"))
	assert.Empty(t, h.inbox(t, "u2"))
}

// seedNotice puts one notice with the given deadline into the user's inbox.
func seedNotice(t *testing.T, h *harness, userID string, deadline time.Time) string {
	t.Helper()
	delivered, err := h.notifier.Notify(context.Background(), NotifyInput{
		PostID: primitive.NewObjectID(), Recipients: []string{userID}, Text: "due", Deadline: &deadline,
	})
	require.NoError(t, err)
	return delivered[0].NoticeID
}

func reminderIDs(notices []models.Notice) []string {
	ids := []string{}
	for _, n := range notices {
		ids = append(ids, n.ID)
	}
	return ids
}

func TestReminders_WeekThenDay(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	deadline := h.clock.Now().Add(6 * 24 * time.Hour)
	id := seedNotice(t, h, "u1", deadline)

	got, err := h.notifier.Reminders(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got.OneDay)
	assert.Equal(t, []string{id}, reminderIDs(got.OneWeek))
	assert.True(t, got.OneWeek[0].OneWeekReminderSent)

	got, err = h.notifier.Reminders(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got.OneDay)
	assert.Empty(t, got.OneWeek)

	h.clock.Advance(time.Duration(5.1 * float64(24*time.Hour)))
	got, err = h.notifier.Reminders(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{id}, reminderIDs(got.OneDay))
	assert.Empty(t, got.OneWeek)

	got, err = h.notifier.Reminders(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got.OneDay)
	assert.Empty(t, got.OneWeek)

	inbox := h.inbox(t, "u1")
	assert.True(t, inbox[0].OneDayReminderSent)
	assert.True(t, inbox[0].OneWeekReminderSent)
}

func TestReminders_InsideOneDayWindow(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	id := seedNotice(t, h, "u1", h.clock.Now().Add(12*time.Hour))

	got, err := h.notifier.Reminders(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{id}, reminderIDs(got.OneDay))
	assert.Empty(t, got.OneWeek, "one reminder per notice per call")

	// the week reminder was never sent and its window is still open
	got, err = h.notifier.Reminders(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got.OneDay)
	assert.Equal(t, []string{id}, reminderIDs(got.OneWeek))

	got, err = h.notifier.Reminders(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got.OneDay)
	assert.Empty(t, got.OneWeek)
}

func TestReminders_WindowBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		untilDue time.Duration
		wantDay  bool
		wantWeek bool
	}{
		{"far away", 8 * 24 * time.Hour, false, false},
		{"exactly one week before", 7 * 24 * time.Hour, false, true},
		{"exactly one day before", 24 * time.Hour, true, false},
		{"at the deadline", 0, false, false},
		{"past the deadline", -time.Hour, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			seedNotice(t, h, "u1", h.clock.Now().Add(tt.untilDue))

			got, err := h.notifier.Reminders(context.Background(), "u1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantDay, len(got.OneDay) == 1)
			assert.Equal(t, tt.wantWeek, len(got.OneWeek) == 1)
		})
	}
}

func TestReminders_IgnoresNoticesWithoutDeadline(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.notifier.Notify(context.Background(), NotifyInput{PostID: primitive.NewObjectID(), Recipients: []string{"u1"}, Text: "x"})
	require.NoError(t, err)

	got, err := h.notifier.Reminders(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, got.OneDay)
	assert.Empty(t, got.OneWeek)

	got, err = h.notifier.Reminders(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, got.OneDay)
	assert.NotNil(t, got.OneWeek)
}

func TestReminders_ConcurrentScansFireOnce(t *testing.T) {
	h := newHarness(t, nil)
	for i := 0; i < 5; i++ {
		seedNotice(t, h, "u1", h.clock.Now().Add(3*24*time.Hour))
	}

	var fired int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := h.notifier.Reminders(context.Background(), "u1")
			assert.NoError(t, err)
			atomic.AddInt32(&fired, int32(len(got.OneWeek)+len(got.OneDay)))
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 5, atomic.LoadInt32(&fired))
}

func TestNotificationReadFlags(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	first := seedNotice(t, h, "u1", h.clock.Now().Add(time.Hour))
	seedNotice(t, h, "u1", h.clock.Now().Add(2*time.Hour))
	seedNotice(t, h, "u1", h.clock.Now().Add(3*time.Hour))

	n, err := h.notifier.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, h.notifier.MarkRead(ctx, "u1", first, ""))
	require.NoError(t, h.notifier.MarkRead(ctx, "u1", first, models.ReadOneDay))
	n, err = h.notifier.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	inbox := h.inbox(t, "u1")
	assert.True(t, inbox[0].IsRead)
	assert.True(t, inbox[0].OneDayReminderRead)
	assert.False(t, inbox[0].OneWeekReminderRead)

	assert.ErrorIs(t, h.notifier.MarkRead(ctx, "u1", "missing", models.ReadNotice), models.ErrNotFound)
	assert.ErrorIs(t, h.notifier.MarkRead(ctx, "u2", first, models.ReadNotice), models.ErrNotFound, "inboxes are per user")
	assert.ErrorIs(t, h.notifier.MarkRead(ctx, "u1", first, "weekly"), models.ErrValidation)

	marked, err := h.notifier.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, marked)
	n, err = h.notifier.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, h.notifier.Delete(ctx, "u1", first))
	assert.Len(t, h.inbox(t, "u1"), 2)
	assert.ErrorIs(t, h.notifier.Delete(ctx, "u1", first), models.ErrNotFound)

	n, err = h.notifier.UnreadCount(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, n)
}
