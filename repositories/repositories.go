// Package repositories holds the storage ports used by the services and their
// MongoDB, Cassandra and PostgreSQL implementations.
package repositories

import (
	"context"

	"taskboard-service/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PostRepository stores posts and maintains the dense order sequence.
// InsertAtEnd, DeleteAndCompact and Reorder are the only order writers.
type PostRepository interface {
	// InsertAtEnd assigns post.Order = number of stored posts and inserts it.
	// A duplicate title yields models.ErrConflict.
	InsertAtEnd(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Post, error)
	TitleExists(ctx context.Context, title string, exclude primitive.ObjectID) (bool, error)
	Find(ctx context.Context, q models.PostQuery) ([]*models.Post, int64, error)

	// DeleteAndCompact removes the post and decrements every order greater than
	// the removed post's order as read at deletion time. Returns the removed post.
	DeleteAndCompact(ctx context.Context, id primitive.ObjectID) (*models.Post, error)

	// Reorder hands the order slots held by the given posts back to them in the
	// given sequence. Unknown ids are skipped. Returns the number of posts moved.
	Reorder(ctx context.Context, ids []primitive.ObjectID) (int, error)

	Update(ctx context.Context, id primitive.ObjectID, upd models.PostUpdate) (*models.Post, error)
	// AddCollaborator reports false when the user already collaborates.
	AddCollaborator(ctx context.Context, id primitive.ObjectID, c models.Collaborator) (bool, error)
	RemoveCollaborator(ctx context.Context, id primitive.ObjectID, userID string) error
	AddSubtask(ctx context.Context, id primitive.ObjectID, s models.Subtask) error
	// SetSubtaskCompleted is a compare-and-set: it only writes when the current value equals from.
	SetSubtaskCompleted(ctx context.Context, id, subtaskID primitive.ObjectID, from, to bool) (bool, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status models.PostStatus) error
	AppendActivity(ctx context.Context, id primitive.ObjectID, a models.Activity) error
}

// NoticeRepository stores per-user inboxes of notice copies.
type NoticeRepository interface {
	// Append adds n to the user's inbox, creating the inbox if needed.
	Append(ctx context.Context, userID string, n models.Notice) error
	// Inbox returns the user's notices in arrival order; empty when no inbox exists.
	Inbox(ctx context.Context, userID string) ([]models.Notice, error)
	// MarkReminderSent flips the kind's sent flag from false to true and reports
	// whether this call performed the transition.
	MarkReminderSent(ctx context.Context, userID, noticeID string, kind models.ReminderKind) (bool, error)
	MarkRead(ctx context.Context, userID, noticeID string, kind models.ReadKind) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
	Remove(ctx context.Context, userID, noticeID string) error
	UnreadCount(ctx context.Context, userID string) (int, error)
}

// RequestRepository stores each user's queue of pending collaboration requests.
type RequestRepository interface {
	// Add reports false when the post is already queued for the user.
	Add(ctx context.Context, userID string, postID primitive.ObjectID) (bool, error)
	Pending(ctx context.Context, userID string) ([]primitive.ObjectID, error)
	// Remove reports false when no such pending request exists.
	Remove(ctx context.Context, userID string, postID primitive.ObjectID) (bool, error)
	// RemovePost drops postID from every queue and returns how many queues changed.
	RemovePost(ctx context.Context, postID primitive.ObjectID) (int64, error)
}

// UserDirectory resolves user ids owned by the users service.
// Lookup returns models.ErrNotFound for unknown users.
type UserDirectory interface {
	Lookup(ctx context.Context, userID string) (*models.User, error)
}

// Transactor runs fn atomically with respect to the repositories sharing its
// storage. Repositories called with the ctx passed to fn join the transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
