package repositories

import (
	"context"
	"fmt"

	"taskboard-service/logging"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the repositories rely on. Unique title and
// unique inbox/request owner back the conflict and single-inbox guarantees.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := []struct {
		collection string
		model      mongo.IndexModel
	}{
		{postsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "title", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_title"),
		}},
		{postsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "order", Value: 1}},
			Options: options.Index().SetName("order"),
		}},
		{postsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "owner", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("owner_created"),
		}},
		{postsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "collaborators.value", Value: 1}},
			Options: options.Index().SetName("collaborator"),
		}},
		{inboxesCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_inbox"),
		}},
		{requestsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_request_queue"),
		}},
		{requestsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "postIds", Value: 1}},
			Options: options.Index().SetName("request_post"),
		}},
	}

	for _, s := range specs {
		name, err := db.Collection(s.collection).Indexes().CreateOne(ctx, s.model)
		if err != nil {
			return fmt.Errorf("create index on %s: %w", s.collection, err)
		}
		logging.Logger.Infof("Event ID: INDEX_READY, Description: Index %s ready on %s", name, s.collection)
	}
	return nil
}
