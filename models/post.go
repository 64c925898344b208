package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

type PostStatus string

const (
	StatusPending   PostStatus = "pending"
	StatusCompleted PostStatus = "completed"
	StatusArchived  PostStatus = "archived"
)

func (s PostStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

// Collaborator is a team member of a post, unique by Value (the user id).
type Collaborator struct {
	Label string `json:"label" bson:"label"`
	Value string `json:"value" bson:"value"`
}

type Subtask struct {
	ID          primitive.ObjectID `json:"id" bson:"_id"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description" bson:"description"`
	Completed   bool               `json:"completed" bson:"completed"`
}

type Activity struct {
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description" bson:"description"`
	Author      string    `json:"author" bson:"author"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}

// Post is a task on the board. Order is the manual drag position; over all
// stored posts the order values are exactly 0..N-1.
type Post struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title           string             `json:"title" bson:"title"`
	Content         string             `json:"content" bson:"content"`
	Category        string             `json:"category,omitempty" bson:"category,omitempty"`
	Owner           string             `json:"owner" bson:"owner"`
	Priority        Priority           `json:"priority" bson:"priority"`
	Deadline        *time.Time         `json:"deadline,omitempty" bson:"deadline,omitempty"`
	Status          PostStatus         `json:"status" bson:"status"`
	Order           int                `json:"order" bson:"order"`
	IsCollaborative bool               `json:"isCollaborative" bson:"isCollaborative"`
	TeamName        string             `json:"teamName,omitempty" bson:"teamName,omitempty"`
	Collaborators   []Collaborator     `json:"collaborators" bson:"collaborators"`
	Subtasks        []Subtask          `json:"subtasks" bson:"subtasks"`
	Activities      []Activity         `json:"activities" bson:"activities"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
}

func (p *Post) HasCollaborator(userID string) bool {
	for _, c := range p.Collaborators {
		if c.Value == userID {
			return true
		}
	}
	return false
}

// IsStakeholder reports whether userID owns or collaborates on the post.
func (p *Post) IsStakeholder(userID string) bool {
	return p.Owner == userID || p.HasCollaborator(userID)
}

// Stakeholders returns the owner followed by every collaborator, without duplicates.
func (p *Post) Stakeholders() []string {
	ids := make([]string, 0, len(p.Collaborators)+1)
	seen := make(map[string]bool, len(p.Collaborators)+1)
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}
	add(p.Owner)
	for _, c := range p.Collaborators {
		add(c.Value)
	}
	return ids
}

// AllSubtasksCompleted is false for a post without subtasks.
func (p *Post) AllSubtasksCompleted() bool {
	if len(p.Subtasks) == 0 {
		return false
	}
	for _, s := range p.Subtasks {
		if !s.Completed {
			return false
		}
	}
	return true
}

func (p *Post) FindSubtask(id primitive.ObjectID) (int, bool) {
	for i, s := range p.Subtasks {
		if s.ID == id {
			return i, true
		}
	}
	return -1, false
}

// Clone returns a deep copy of the post.
func (p *Post) Clone() *Post {
	c := *p
	if p.Deadline != nil {
		d := *p.Deadline
		c.Deadline = &d
	}
	c.Collaborators = append([]Collaborator(nil), p.Collaborators...)
	c.Subtasks = append([]Subtask(nil), p.Subtasks...)
	c.Activities = append([]Activity(nil), p.Activities...)
	return &c
}

// PostUpdate carries the optional fields of an update; nil means unchanged.
type PostUpdate struct {
	Title    *string
	Content  *string
	Category *string
	Priority *Priority
	Deadline *time.Time
	TeamName *string
}
