package memory

import (
	"context"

	"taskboard-service/repositories"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.RequestRepository = (*RequestRepo)(nil)

type RequestRepo struct {
	store *Store
}

func indexOf(ids []primitive.ObjectID, id primitive.ObjectID) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func (r *RequestRepo) Add(ctx context.Context, userID string, postID primitive.ObjectID) (bool, error) {
	var added bool
	err := r.store.withLock(ctx, func(d *storeData) error {
		if indexOf(d.requests[userID], postID) >= 0 {
			return nil
		}
		d.requests[userID] = append(d.requests[userID], postID)
		added = true
		return nil
	})
	return added, err
}

func (r *RequestRepo) Pending(ctx context.Context, userID string) ([]primitive.ObjectID, error) {
	ids := []primitive.ObjectID{}
	err := r.store.withLock(ctx, func(d *storeData) error {
		ids = append(ids, d.requests[userID]...)
		return nil
	})
	return ids, err
}

func (r *RequestRepo) Remove(ctx context.Context, userID string, postID primitive.ObjectID) (bool, error) {
	var removed bool
	err := r.store.withLock(ctx, func(d *storeData) error {
		ids := d.requests[userID]
		i := indexOf(ids, postID)
		if i < 0 {
			return nil
		}
		d.requests[userID] = append(ids[:i:i], ids[i+1:]...)
		removed = true
		return nil
	})
	return removed, err
}

func (r *RequestRepo) RemovePost(ctx context.Context, postID primitive.ObjectID) (int64, error) {
	var changed int64
	err := r.store.withLock(ctx, func(d *storeData) error {
		for user, ids := range d.requests {
			if i := indexOf(ids, postID); i >= 0 {
				d.requests[user] = append(ids[:i:i], ids[i+1:]...)
				changed++
			}
		}
		return nil
	})
	return changed, err
}
