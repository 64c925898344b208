package repositories

import (
	"testing"
	"time"

	"taskboard-service/models"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestOrderSlots(t *testing.T) {
	a, b, c, d := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	unknown := primitive.NewObjectID()
	current := map[primitive.ObjectID]int{a: 0, b: 1, c: 2, d: 3}

	tests := []struct {
		name      string
		ids       []primitive.ObjectID
		survivors []primitive.ObjectID
		slots     []int
	}{
		{"full reverse", []primitive.ObjectID{d, c, b, a}, []primitive.ObjectID{d, c, b, a}, []int{0, 1, 2, 3}},
		{"subset keeps its own slots", []primitive.ObjectID{d, b}, []primitive.ObjectID{d, b}, []int{1, 3}},
		{"unknown ids dropped", []primitive.ObjectID{unknown, c, a}, []primitive.ObjectID{c, a}, []int{0, 2}},
		{"first occurrence wins", []primitive.ObjectID{b, a, b}, []primitive.ObjectID{b, a}, []int{0, 1}},
		{"empty", nil, []primitive.ObjectID{}, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			survivors, slots := OrderSlots(tt.ids, current)
			assert.Equal(t, tt.survivors, survivors)
			assert.Equal(t, tt.slots, slots)
		})
	}
}

func TestPostFilter(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	stakeholder := bson.A{bson.M{"owner": "u1"}, bson.M{"collaborators.value": "u1"}}

	t.Run("mine", func(t *testing.T) {
		f := postFilter(models.PostQuery{UserID: "u1", Scope: models.ScopeMine, Deadline: models.DeadlineAll, Now: now})
		assert.Equal(t, bson.M{"owner": "u1"}, f)
	})

	t.Run("team with filters", func(t *testing.T) {
		f := postFilter(models.PostQuery{
			UserID:   "u1",
			Scope:    models.ScopeTeam,
			Search:   "v2.0",
			Category: "ops",
			Priority: models.PriorityHigh,
			Deadline: models.DeadlineNextWeek,
			Now:      now,
		})
		assert.Equal(t, true, f["isCollaborative"])
		assert.Equal(t, stakeholder, f["$or"])
		assert.Equal(t, bson.M{"$regex": `v2\.0`, "$options": "i"}, f["title"])
		assert.Equal(t, "ops", f["category"])
		assert.Equal(t, models.PriorityHigh, f["priority"])
		assert.Equal(t, bson.M{
			"$gt":  now.Add(7 * 24 * time.Hour),
			"$lte": now.Add(14 * 24 * time.Hour),
		}, f["deadline"])
	})

	t.Run("all scope this week", func(t *testing.T) {
		f := postFilter(models.PostQuery{UserID: "u1", Scope: models.ScopeAll, Deadline: models.DeadlineThisWeek, Now: now})
		assert.Equal(t, stakeholder, f["$or"])
		assert.Equal(t, bson.M{"$lte": now.Add(7 * 24 * time.Hour)}, f["deadline"])
		assert.NotContains(t, f, "isCollaborative")
	})
}
