package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Request is a user's queue of posts awaiting their accept/reject decision.
type Request struct {
	ID      primitive.ObjectID   `json:"-" bson:"_id,omitempty"`
	UserID  string               `json:"userId" bson:"userId"`
	PostIDs []primitive.ObjectID `json:"postIds" bson:"postIds"`
}

type PendingRequest struct {
	PostID      primitive.ObjectID `json:"postId"`
	Title       string             `json:"title"`
	TeamName    string             `json:"teamName"`
	CreatorName string             `json:"creatorName"`
}
