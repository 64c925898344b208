package memory

import (
	"context"

	"taskboard-service/models"
	"taskboard-service/repositories"
)

var _ repositories.NoticeRepository = (*NoticeRepo)(nil)

type NoticeRepo struct {
	store *Store
}

func (r *NoticeRepo) Append(ctx context.Context, userID string, n models.Notice) error {
	return r.store.withLock(ctx, func(d *storeData) error {
		d.inboxes[userID] = append(d.inboxes[userID], n)
		return nil
	})
}

func (r *NoticeRepo) Inbox(ctx context.Context, userID string) ([]models.Notice, error) {
	notices := []models.Notice{}
	err := r.store.withLock(ctx, func(d *storeData) error {
		notices = append(notices, d.inboxes[userID]...)
		return nil
	})
	return notices, err
}

// find returns the index of noticeID in the user's inbox, or -1.
func find(d *storeData, userID, noticeID string) int {
	for i, n := range d.inboxes[userID] {
		if n.ID == noticeID {
			return i
		}
	}
	return -1
}

func (r *NoticeRepo) MarkReminderSent(ctx context.Context, userID, noticeID string, kind models.ReminderKind) (bool, error) {
	var won bool
	err := r.store.withLock(ctx, func(d *storeData) error {
		i := find(d, userID, noticeID)
		if i < 0 {
			return nil
		}
		n := &d.inboxes[userID][i]
		switch kind {
		case models.ReminderOneDay:
			won = !n.OneDayReminderSent
			n.OneDayReminderSent = true
		case models.ReminderOneWeek:
			won = !n.OneWeekReminderSent
			n.OneWeekReminderSent = true
		}
		return nil
	})
	return won, err
}

func (r *NoticeRepo) MarkRead(ctx context.Context, userID, noticeID string, kind models.ReadKind) error {
	return r.store.withLock(ctx, func(d *storeData) error {
		i := find(d, userID, noticeID)
		if i < 0 {
			return models.NotFoundError("notice %s not found", noticeID)
		}
		n := &d.inboxes[userID][i]
		switch kind {
		case models.ReadOneDay:
			n.OneDayReminderRead = true
		case models.ReadOneWeek:
			n.OneWeekReminderRead = true
		default:
			n.IsRead = true
		}
		return nil
	})
}

func (r *NoticeRepo) MarkAllRead(ctx context.Context, userID string) (int, error) {
	var changed int
	err := r.store.withLock(ctx, func(d *storeData) error {
		inbox := d.inboxes[userID]
		for i := range inbox {
			if !inbox[i].IsRead {
				inbox[i].IsRead = true
				changed++
			}
		}
		return nil
	})
	return changed, err
}

func (r *NoticeRepo) Remove(ctx context.Context, userID, noticeID string) error {
	return r.store.withLock(ctx, func(d *storeData) error {
		i := find(d, userID, noticeID)
		if i < 0 {
			return models.NotFoundError("notice %s not found", noticeID)
		}
		inbox := d.inboxes[userID]
		d.inboxes[userID] = append(inbox[:i:i], inbox[i+1:]...)
		return nil
	})
}

func (r *NoticeRepo) UnreadCount(ctx context.Context, userID string) (int, error) {
	var unread int
	err := r.store.withLock(ctx, func(d *storeData) error {
		for _, n := range d.inboxes[userID] {
			if !n.IsRead {
				unread++
			}
		}
		return nil
	})
	return unread, err
}
