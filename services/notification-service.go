package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskboard-service/logging"
	"taskboard-service/models"
	"taskboard-service/repositories"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	oneDay  = 24 * time.Hour
	oneWeek = 7 * oneDay
)

type NotificationService struct {
	notices repositories.NoticeRepository
	clock   Clock
}

func NewNotificationService(notices repositories.NoticeRepository, clock Clock) *NotificationService {
	return &NotificationService{notices: notices, clock: clock}
}

// NotifyInput describes one notification to fan out.
type NotifyInput struct {
	PostID     primitive.ObjectID
	Recipients []string
	Text       string
	Type       models.NoticeType
	Deadline   *time.Time
}

// Delivery records one notice copy placed in an inbox.
type Delivery struct {
	UserID   string
	NoticeID string
}

// newNoticeID returns a time-based UUID so ids sort in creation order.
func newNoticeID() (string, error) {
	id, err := uuid.NewUUID()
	if err != nil {
		return "", fmt.Errorf("generate notice id: %w", err)
	}
	return id.String(), nil
}

// Notify places an independent copy in the inbox of every distinct recipient.
// If any append fails the copies already placed are retracted and the error is
// returned, so callers see all recipients notified or none.
func (s *NotificationService) Notify(ctx context.Context, in NotifyInput) ([]Delivery, error) {
	if in.Type == "" {
		in.Type = models.NoticeAlert
	}
	now := s.clock.Now()

	seen := make(map[string]bool, len(in.Recipients))
	delivered := make([]Delivery, 0, len(in.Recipients))
	for _, userID := range in.Recipients {
		if userID == "" || seen[userID] {
			continue
		}
		seen[userID] = true

		id, err := newNoticeID()
		if err != nil {
			s.Retract(ctx, delivered)
			return nil, err
		}
		notice := models.Notice{
			ID:        id,
			Text:      in.Text,
			PostID:    in.PostID,
			NotiType:  in.Type,
			Deadline:  in.Deadline,
			CreatedAt: now,
		}
		if err := s.notices.Append(ctx, userID, notice); err != nil {
			s.Retract(ctx, delivered)
			return nil, fmt.Errorf("notify %s: %w", userID, err)
		}
		delivered = append(delivered, Delivery{UserID: userID, NoticeID: id})
	}

	logging.Logger.Infof("Event ID: NOTICES_DELIVERED, Description: %d notices for post %s", len(delivered), in.PostID.Hex())
	return delivered, nil
}

// Retract removes delivered copies. Failures are logged; a copy the user
// already deleted counts as retracted.
func (s *NotificationService) Retract(ctx context.Context, delivered []Delivery) {
	for _, d := range delivered {
		if err := s.notices.Remove(ctx, d.UserID, d.NoticeID); err != nil && !errors.Is(err, models.ErrNotFound) {
			logging.Logger.Errorf("Event ID: NOTICE_RETRACT_FAILED, Description: notice %s of %s: %v", d.NoticeID, d.UserID, err)
		}
	}
}

// NoticeText builds the text of a post notification, for example:
// New task "Ship v2" was created with 2 collaborators. Priority: high. Deadline: Jan 2, 2006.
func NoticeText(lead string, post *models.Post) string {
	var b strings.Builder
	b.WriteString(lead)
	if post.IsCollaborative {
		n := len(post.Collaborators)
		noun := "collaborators"
		if n == 1 {
			noun = "collaborator"
		}
		fmt.Fprintf(&b, " with %d %s", n, noun)
	}
	b.WriteString(".")
	if post.Priority != "" {
		fmt.Fprintf(&b, " Priority: %s.", post.Priority)
	}
	if post.Deadline != nil {
		fmt.Fprintf(&b, " Deadline: %s.", post.Deadline.Format("Jan 2, 2006"))
	}
	return b.String()
}

func (s *NotificationService) List(ctx context.Context, userID string) ([]models.Notice, error) {
	return s.notices.Inbox(ctx, userID)
}

// dueReminder picks the reminder a notice is owed at now, if any. The one-day
// reminder takes precedence; at most one kind fires per scan.
func dueReminder(n models.Notice, now time.Time) (models.ReminderKind, bool) {
	if n.Deadline == nil || !now.Before(*n.Deadline) {
		return "", false
	}
	deadline := *n.Deadline
	if !n.OneDayReminderSent && !now.Before(deadline.Add(-oneDay)) {
		return models.ReminderOneDay, true
	}
	if !n.OneWeekReminderSent && !now.Before(deadline.Add(-oneWeek)) {
		return models.ReminderOneWeek, true
	}
	return "", false
}

// Reminders scans the user's inbox and returns the reminders that became due.
// Each reminder is reported only by the call whose compare-and-set marked it
// sent, so concurrent scans never report the same reminder twice.
func (s *NotificationService) Reminders(ctx context.Context, userID string) (*models.Reminders, error) {
	now := s.clock.Now()
	inbox, err := s.notices.Inbox(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &models.Reminders{OneDay: []models.Notice{}, OneWeek: []models.Notice{}}
	for _, n := range inbox {
		kind, due := dueReminder(n, now)
		if !due {
			continue
		}
		won, err := s.notices.MarkReminderSent(ctx, userID, n.ID, kind)
		if err != nil {
			return nil, err
		}
		if !won {
			continue
		}
		switch kind {
		case models.ReminderOneDay:
			n.OneDayReminderSent = true
			out.OneDay = append(out.OneDay, n)
		case models.ReminderOneWeek:
			n.OneWeekReminderSent = true
			out.OneWeek = append(out.OneWeek, n)
		}
	}

	if fired := len(out.OneDay) + len(out.OneWeek); fired > 0 {
		logging.Logger.Infof("Event ID: REMINDERS_FIRED, Description: %d one-day and %d one-week reminders for %s",
			len(out.OneDay), len(out.OneWeek), userID)
	}
	return out, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, noticeID string, kind models.ReadKind) error {
	if kind == "" {
		kind = models.ReadNotice
	}
	if !kind.IsValid() {
		return models.ValidationError("unknown read kind %q", kind)
	}
	return s.notices.MarkRead(ctx, userID, noticeID, kind)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return s.notices.MarkAllRead(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, userID, noticeID string) error {
	return s.notices.Remove(ctx, userID, noticeID)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.notices.UnreadCount(ctx, userID)
}
