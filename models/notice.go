package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NoticeType string

const (
	NoticeAlert   NoticeType = "alert"
	NoticeMessage NoticeType = "message"
)

// Notice is one recipient's copy of a notification. Copies are never shared
// between inboxes; read and reminder flags evolve per copy.
type Notice struct {
	ID                  string             `json:"id" bson:"id"`
	Text                string             `json:"text" bson:"text"`
	PostID              primitive.ObjectID `json:"postId" bson:"postId"`
	NotiType            NoticeType         `json:"notiType" bson:"notiType"`
	IsRead              bool               `json:"isRead" bson:"isRead"`
	Deadline            *time.Time         `json:"deadline,omitempty" bson:"deadline,omitempty"`
	OneWeekReminderSent bool               `json:"oneWeekReminderSent" bson:"oneWeekReminderSent"`
	OneDayReminderSent  bool               `json:"oneDayReminderSent" bson:"oneDayReminderSent"`
	OneWeekReminderRead bool               `json:"oneWeekReminderRead" bson:"oneWeekReminderRead"`
	OneDayReminderRead  bool               `json:"oneDayReminderRead" bson:"oneDayReminderRead"`
	CreatedAt           time.Time          `json:"createdAt" bson:"createdAt"`
}

// UserNotice is a user's inbox, in arrival order.
type UserNotice struct {
	ID            primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	UserID        string             `json:"userId" bson:"userId"`
	Notifications []Notice           `json:"notifications" bson:"notifications"`
}

type ReminderKind string

const (
	ReminderOneDay  ReminderKind = "one_day"
	ReminderOneWeek ReminderKind = "one_week"
)

// SentField is the bson name of the kind's sent flag.
func (k ReminderKind) SentField() string {
	if k == ReminderOneDay {
		return "oneDayReminderSent"
	}
	return "oneWeekReminderSent"
}

// ReadKind selects which read flag markRead sets.
type ReadKind string

const (
	ReadNotice  ReadKind = "notice"
	ReadOneDay  ReadKind = "one_day"
	ReadOneWeek ReadKind = "one_week"
)

func (k ReadKind) IsValid() bool {
	return k == ReadNotice || k == ReadOneDay || k == ReadOneWeek
}

func (k ReadKind) Field() string {
	switch k {
	case ReadOneDay:
		return "oneDayReminderRead"
	case ReadOneWeek:
		return "oneWeekReminderRead"
	}
	return "isRead"
}

// Reminders is the result of one reminder scan.
type Reminders struct {
	OneDay  []Notice `json:"oneDay"`
	OneWeek []Notice `json:"oneWeek"`
}
