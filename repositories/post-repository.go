package repositories

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"taskboard-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type PostRepo struct {
	posts *mongo.Collection
	meta  *mongo.Collection
}

func NewPostRepo(db *mongo.Database) *PostRepo {
	return &PostRepo{
		posts: db.Collection(postsCollection),
		meta:  db.Collection(metaCollection),
	}
}

// lockOrder writes the shared order document. Inside a transaction this makes
// any concurrent order writer fail with a write conflict and retry.
func (r *PostRepo) lockOrder(ctx context.Context) error {
	_, err := r.meta.UpdateOne(ctx,
		bson.M{"_id": orderLockID},
		bson.M{"$inc": bson.M{"version": 1}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("lock post order: %w", err)
	}
	return nil
}

func (r *PostRepo) InsertAtEnd(ctx context.Context, post *models.Post) error {
	if err := r.lockOrder(ctx); err != nil {
		return err
	}
	count, err := r.posts.CountDocuments(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("count posts: %w", err)
	}
	post.Order = int(count)

	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	if _, err := r.posts.InsertOne(ctx, post); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.ConflictError("a post titled %q already exists", post.Title)
		}
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (r *PostRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var post models.Post
	if err := r.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		if isNoDocuments(err) {
			return nil, models.NotFoundError("post %s not found", id.Hex())
		}
		return nil, fmt.Errorf("find post: %w", err)
	}
	return &post, nil
}

func (r *PostRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Post, error) {
	cursor, err := r.posts.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find posts: %w", err)
	}
	var posts []*models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	return posts, nil
}

func (r *PostRepo) TitleExists(ctx context.Context, title string, exclude primitive.ObjectID) (bool, error) {
	filter := bson.M{"title": title}
	if !exclude.IsZero() {
		filter["_id"] = bson.M{"$ne": exclude}
	}
	n, err := r.posts.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check title: %w", err)
	}
	return n > 0, nil
}

func postFilter(q models.PostQuery) bson.M {
	stakeholder := bson.A{
		bson.M{"owner": q.UserID},
		bson.M{"collaborators.value": q.UserID},
	}

	filter := bson.M{}
	switch q.Scope {
	case models.ScopeMine:
		filter["owner"] = q.UserID
	case models.ScopeTeam:
		filter["isCollaborative"] = true
		filter["$or"] = stakeholder
	default:
		filter["$or"] = stakeholder
	}

	if q.Search != "" {
		filter["title"] = bson.M{"$regex": regexp.QuoteMeta(q.Search), "$options": "i"}
	}
	if q.Category != "" {
		filter["category"] = q.Category
	}
	if q.Priority != "" {
		filter["priority"] = q.Priority
	}
	if after, until := q.Deadline.Range(q.Now); until != nil {
		window := bson.M{"$lte": *until}
		if after != nil {
			window["$gt"] = *after
		}
		filter["deadline"] = window
	}
	return filter
}

func (r *PostRepo) Find(ctx context.Context, q models.PostQuery) ([]*models.Post, int64, error) {
	filter := postFilter(q)

	total, err := r.posts.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	opts := options.Find().SetSkip(int64(q.Offset))
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	if q.Sort == models.SortOrder {
		opts.SetSort(bson.D{{Key: "order", Value: 1}})
	} else {
		opts.SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	}

	cursor, err := r.posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find posts: %w", err)
	}
	posts := []*models.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, 0, fmt.Errorf("decode posts: %w", err)
	}
	return posts, total, nil
}

func (r *PostRepo) DeleteAndCompact(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	if err := r.lockOrder(ctx); err != nil {
		return nil, err
	}

	var deleted models.Post
	if err := r.posts.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&deleted); err != nil {
		if isNoDocuments(err) {
			return nil, models.NotFoundError("post %s not found", id.Hex())
		}
		return nil, fmt.Errorf("delete post: %w", err)
	}

	_, err := r.posts.UpdateMany(ctx,
		bson.M{"order": bson.M{"$gt": deleted.Order}},
		bson.M{"$inc": bson.M{"order": -1}},
	)
	if err != nil {
		return nil, fmt.Errorf("compact order after %d: %w", deleted.Order, err)
	}
	return &deleted, nil
}

func (r *PostRepo) Reorder(ctx context.Context, ids []primitive.ObjectID) (int, error) {
	if err := r.lockOrder(ctx); err != nil {
		return 0, err
	}

	cursor, err := r.posts.Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"order": 1}),
	)
	if err != nil {
		return 0, fmt.Errorf("load order slots: %w", err)
	}
	var rows []struct {
		ID    primitive.ObjectID `bson:"_id"`
		Order int                `bson:"order"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("decode order slots: %w", err)
	}

	current := make(map[primitive.ObjectID]int, len(rows))
	for _, row := range rows {
		current[row.ID] = row.Order
	}
	survivors, slots := OrderSlots(ids, current)
	if len(survivors) == 0 {
		return 0, nil
	}

	writes := make([]mongo.WriteModel, 0, len(survivors))
	for i, id := range survivors {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": id}).
			SetUpdate(bson.M{"$set": bson.M{"order": slots[i]}}))
	}
	if _, err := r.posts.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true)); err != nil {
		return 0, fmt.Errorf("write order: %w", err)
	}
	return len(survivors), nil
}

// OrderSlots keeps the first occurrence of each known id, in request order, and
// returns the ascending set of order values those posts currently hold.
func OrderSlots(ids []primitive.ObjectID, current map[primitive.ObjectID]int) ([]primitive.ObjectID, []int) {
	seen := make(map[primitive.ObjectID]bool, len(ids))
	survivors := make([]primitive.ObjectID, 0, len(ids))
	slots := make([]int, 0, len(ids))
	for _, id := range ids {
		order, ok := current[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		survivors = append(survivors, id)
		slots = append(slots, order)
	}
	sort.Ints(slots)
	return survivors, slots
}

func (r *PostRepo) Update(ctx context.Context, id primitive.ObjectID, upd models.PostUpdate) (*models.Post, error) {
	set := bson.M{}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Content != nil {
		set["content"] = *upd.Content
	}
	if upd.Category != nil {
		set["category"] = *upd.Category
	}
	if upd.Priority != nil {
		set["priority"] = *upd.Priority
	}
	if upd.Deadline != nil {
		set["deadline"] = *upd.Deadline
	}
	if upd.TeamName != nil {
		set["teamName"] = *upd.TeamName
		if *upd.TeamName != "" {
			set["isCollaborative"] = true
		}
	}

	update := bson.M{"$currentDate": bson.M{"updatedAt": true}}
	if len(set) > 0 {
		update["$set"] = set
	}

	var post models.Post
	err := r.posts.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&post)
	if err != nil {
		if isNoDocuments(err) {
			return nil, models.NotFoundError("post %s not found", id.Hex())
		}
		if mongo.IsDuplicateKeyError(err) && upd.Title != nil {
			return nil, models.ConflictError("a post titled %q already exists", *upd.Title)
		}
		return nil, fmt.Errorf("update post: %w", err)
	}
	return &post, nil
}

func (r *PostRepo) AddCollaborator(ctx context.Context, id primitive.ObjectID, c models.Collaborator) (bool, error) {
	res, err := r.posts.UpdateOne(ctx,
		bson.M{"_id": id, "collaborators.value": bson.M{"$ne": c.Value}},
		bson.M{
			"$push":        bson.M{"collaborators": c},
			"$set":         bson.M{"isCollaborative": true},
			"$currentDate": bson.M{"updatedAt": true},
		},
	)
	if err != nil {
		return false, fmt.Errorf("add collaborator: %w", err)
	}
	if res.MatchedCount == 1 {
		return true, nil
	}

	n, err := r.posts.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("check post: %w", err)
	}
	if n == 0 {
		return false, models.NotFoundError("post %s not found", id.Hex())
	}
	return false, nil
}

func (r *PostRepo) RemoveCollaborator(ctx context.Context, id primitive.ObjectID, userID string) error {
	res, err := r.posts.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$pull": bson.M{"collaborators": bson.M{"value": userID}}},
	)
	if err != nil {
		return fmt.Errorf("remove collaborator: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.NotFoundError("post %s not found", id.Hex())
	}
	return nil
}

func (r *PostRepo) AddSubtask(ctx context.Context, id primitive.ObjectID, s models.Subtask) error {
	return r.updateOne(ctx, id, bson.M{
		"$push":        bson.M{"subtasks": s},
		"$currentDate": bson.M{"updatedAt": true},
	})
}

func (r *PostRepo) SetSubtaskCompleted(ctx context.Context, id, subtaskID primitive.ObjectID, from, to bool) (bool, error) {
	res, err := r.posts.UpdateOne(ctx,
		bson.M{
			"_id":      id,
			"subtasks": bson.M{"$elemMatch": bson.M{"_id": subtaskID, "completed": from}},
		},
		bson.M{
			"$set":         bson.M{"subtasks.$.completed": to},
			"$currentDate": bson.M{"updatedAt": true},
		},
	)
	if err != nil {
		return false, fmt.Errorf("toggle subtask: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *PostRepo) SetStatus(ctx context.Context, id primitive.ObjectID, status models.PostStatus) error {
	return r.updateOne(ctx, id, bson.M{
		"$set":         bson.M{"status": status},
		"$currentDate": bson.M{"updatedAt": true},
	})
}

func (r *PostRepo) AppendActivity(ctx context.Context, id primitive.ObjectID, a models.Activity) error {
	return r.updateOne(ctx, id, bson.M{
		"$push":        bson.M{"activities": a},
		"$currentDate": bson.M{"updatedAt": true},
	})
}

func (r *PostRepo) updateOne(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := r.posts.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("update post %s: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return models.NotFoundError("post %s not found", id.Hex())
	}
	return nil
}
