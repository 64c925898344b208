package repositories

import (
	"context"
	"fmt"

	"taskboard-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NoticeRepo keeps one document per user holding that user's notices.
type NoticeRepo struct {
	inboxes *mongo.Collection
}

func NewNoticeRepo(db *mongo.Database) *NoticeRepo {
	return &NoticeRepo{inboxes: db.Collection(inboxesCollection)}
}

func (r *NoticeRepo) Append(ctx context.Context, userID string, n models.Notice) error {
	push := func() error {
		_, err := r.inboxes.UpdateOne(ctx,
			bson.M{"userId": userID},
			bson.M{"$push": bson.M{"notifications": n}},
			options.Update().SetUpsert(true),
		)
		return err
	}

	err := push()
	// Two concurrent upserts of a missing inbox: the unique index lets one
	// win and the loser now finds the document.
	if mongo.IsDuplicateKeyError(err) {
		err = push()
	}
	if err != nil {
		return fmt.Errorf("append notice for %s: %w", userID, err)
	}
	return nil
}

func (r *NoticeRepo) Inbox(ctx context.Context, userID string) ([]models.Notice, error) {
	var inbox models.UserNotice
	if err := r.inboxes.FindOne(ctx, bson.M{"userId": userID}).Decode(&inbox); err != nil {
		if isNoDocuments(err) {
			return []models.Notice{}, nil
		}
		return nil, fmt.Errorf("load inbox for %s: %w", userID, err)
	}
	if inbox.Notifications == nil {
		return []models.Notice{}, nil
	}
	return inbox.Notifications, nil
}

func (r *NoticeRepo) MarkReminderSent(ctx context.Context, userID, noticeID string, kind models.ReminderKind) (bool, error) {
	field := kind.SentField()
	res, err := r.inboxes.UpdateOne(ctx,
		bson.M{
			"userId":        userID,
			"notifications": bson.M{"$elemMatch": bson.M{"id": noticeID, field: false}},
		},
		bson.M{"$set": bson.M{"notifications.$." + field: true}},
	)
	if err != nil {
		return false, fmt.Errorf("mark %s reminder: %w", kind, err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *NoticeRepo) MarkRead(ctx context.Context, userID, noticeID string, kind models.ReadKind) error {
	res, err := r.inboxes.UpdateOne(ctx,
		bson.M{"userId": userID, "notifications.id": noticeID},
		bson.M{"$set": bson.M{"notifications.$." + kind.Field(): true}},
	)
	if err != nil {
		return fmt.Errorf("mark notice read: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.NotFoundError("notice %s not found", noticeID)
	}
	return nil
}

func (r *NoticeRepo) MarkAllRead(ctx context.Context, userID string) (int, error) {
	unread, err := r.UnreadCount(ctx, userID)
	if err != nil || unread == 0 {
		return 0, err
	}
	_, err = r.inboxes.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{"$set": bson.M{"notifications.$[n].isRead": true}},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.M{"n.isRead": false}},
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return unread, nil
}

func (r *NoticeRepo) Remove(ctx context.Context, userID, noticeID string) error {
	res, err := r.inboxes.UpdateOne(ctx,
		bson.M{"userId": userID, "notifications.id": noticeID},
		bson.M{"$pull": bson.M{"notifications": bson.M{"id": noticeID}}},
	)
	if err != nil {
		return fmt.Errorf("remove notice: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.NotFoundError("notice %s not found", noticeID)
	}
	return nil
}

func (r *NoticeRepo) UnreadCount(ctx context.Context, userID string) (int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"userId": userID}}},
		{{Key: "$project", Value: bson.M{
			"unread": bson.M{"$size": bson.M{"$filter": bson.M{
				"input": bson.M{"$ifNull": bson.A{"$notifications", bson.A{}}},
				"as":    "n",
				"cond":  bson.M{"$eq": bson.A{"$$n.isRead", false}},
			}}},
		}}},
	}

	cursor, err := r.inboxes.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	var rows []struct {
		Unread int `bson:"unread"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("decode unread count: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Unread, nil
}
