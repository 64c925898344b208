package memory

import (
	"context"
	"sort"
	"time"

	"taskboard-service/models"
	"taskboard-service/repositories"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.PostRepository = (*PostRepo)(nil)

type PostRepo struct {
	store *Store
}

func notFound(id primitive.ObjectID) error {
	return models.NotFoundError("post %s not found", id.Hex())
}

func titleTaken(d *storeData, title string, exclude primitive.ObjectID) bool {
	for id, p := range d.posts {
		if id != exclude && p.Title == title {
			return true
		}
	}
	return false
}

func (r *PostRepo) InsertAtEnd(ctx context.Context, post *models.Post) error {
	return r.store.withLock(ctx, func(d *storeData) error {
		if titleTaken(d, post.Title, primitive.NilObjectID) {
			return models.ConflictError("a post titled %q already exists", post.Title)
		}
		if post.ID.IsZero() {
			post.ID = primitive.NewObjectID()
		}
		post.Order = len(d.posts)
		d.posts[post.ID] = post.Clone()
		return nil
	})
}

func (r *PostRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var post *models.Post
	err := r.store.withLock(ctx, func(d *storeData) error {
		p, ok := d.posts[id]
		if !ok {
			return notFound(id)
		}
		post = p.Clone()
		return nil
	})
	return post, err
}

func (r *PostRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.store.withLock(ctx, func(d *storeData) error {
		seen := map[primitive.ObjectID]bool{}
		for _, id := range ids {
			if p, ok := d.posts[id]; ok && !seen[id] {
				seen[id] = true
				posts = append(posts, p.Clone())
			}
		}
		return nil
	})
	return posts, err
}

func (r *PostRepo) TitleExists(ctx context.Context, title string, exclude primitive.ObjectID) (bool, error) {
	var exists bool
	err := r.store.withLock(ctx, func(d *storeData) error {
		exists = titleTaken(d, title, exclude)
		return nil
	})
	return exists, err
}

func (r *PostRepo) Find(ctx context.Context, q models.PostQuery) ([]*models.Post, int64, error) {
	var matched []*models.Post
	err := r.store.withLock(ctx, func(d *storeData) error {
		for _, p := range d.posts {
			if q.Matches(p) {
				matched = append(matched, p.Clone())
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	if q.Sort == models.SortOrder {
		sort.Slice(matched, func(i, j int) bool { return matched[i].Order < matched[j].Order })
	} else {
		sort.Slice(matched, func(i, j int) bool {
			if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
				return matched[i].CreatedAt.After(matched[j].CreatedAt)
			}
			return matched[i].ID.Hex() > matched[j].ID.Hex()
		})
	}

	total := int64(len(matched))
	start := q.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}
	return append([]*models.Post{}, matched[start:end]...), total, nil
}

func (r *PostRepo) DeleteAndCompact(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var deleted *models.Post
	err := r.store.withLock(ctx, func(d *storeData) error {
		p, ok := d.posts[id]
		if !ok {
			return notFound(id)
		}
		delete(d.posts, id)
		for _, other := range d.posts {
			if other.Order > p.Order {
				other.Order--
			}
		}
		deleted = p
		return nil
	})
	return deleted, err
}

func (r *PostRepo) Reorder(ctx context.Context, ids []primitive.ObjectID) (int, error) {
	var moved int
	err := r.store.withLock(ctx, func(d *storeData) error {
		current := make(map[primitive.ObjectID]int, len(ids))
		for _, id := range ids {
			if p, ok := d.posts[id]; ok {
				current[id] = p.Order
			}
		}
		survivors, slots := repositories.OrderSlots(ids, current)
		for i, id := range survivors {
			d.posts[id].Order = slots[i]
		}
		moved = len(survivors)
		return nil
	})
	return moved, err
}

// mutate applies fn to the stored post and stamps UpdatedAt.
func (r *PostRepo) mutate(ctx context.Context, id primitive.ObjectID, fn func(d *storeData, p *models.Post) error) error {
	return r.store.withLock(ctx, func(d *storeData) error {
		p, ok := d.posts[id]
		if !ok {
			return notFound(id)
		}
		if err := fn(d, p); err != nil {
			return err
		}
		p.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (r *PostRepo) Update(ctx context.Context, id primitive.ObjectID, upd models.PostUpdate) (*models.Post, error) {
	var updated *models.Post
	err := r.mutate(ctx, id, func(d *storeData, p *models.Post) error {
		if upd.Title != nil {
			if titleTaken(d, *upd.Title, id) {
				return models.ConflictError("a post titled %q already exists", *upd.Title)
			}
			p.Title = *upd.Title
		}
		if upd.Content != nil {
			p.Content = *upd.Content
		}
		if upd.Category != nil {
			p.Category = *upd.Category
		}
		if upd.Priority != nil {
			p.Priority = *upd.Priority
		}
		if upd.Deadline != nil {
			deadline := *upd.Deadline
			p.Deadline = &deadline
		}
		if upd.TeamName != nil {
			p.TeamName = *upd.TeamName
			if p.TeamName != "" {
				p.IsCollaborative = true
			}
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, updated.ID)
}

func (r *PostRepo) AddCollaborator(ctx context.Context, id primitive.ObjectID, c models.Collaborator) (bool, error) {
	var added bool
	err := r.mutate(ctx, id, func(_ *storeData, p *models.Post) error {
		if p.HasCollaborator(c.Value) {
			return nil
		}
		p.Collaborators = append(p.Collaborators, c)
		p.IsCollaborative = true
		added = true
		return nil
	})
	return added, err
}

func (r *PostRepo) RemoveCollaborator(ctx context.Context, id primitive.ObjectID, userID string) error {
	return r.mutate(ctx, id, func(_ *storeData, p *models.Post) error {
		kept := p.Collaborators[:0]
		for _, c := range p.Collaborators {
			if c.Value != userID {
				kept = append(kept, c)
			}
		}
		p.Collaborators = kept
		return nil
	})
}

func (r *PostRepo) AddSubtask(ctx context.Context, id primitive.ObjectID, s models.Subtask) error {
	return r.mutate(ctx, id, func(_ *storeData, p *models.Post) error {
		p.Subtasks = append(p.Subtasks, s)
		return nil
	})
}

func (r *PostRepo) SetSubtaskCompleted(ctx context.Context, id, subtaskID primitive.ObjectID, from, to bool) (bool, error) {
	var swapped bool
	err := r.store.withLock(ctx, func(d *storeData) error {
		p, ok := d.posts[id]
		if !ok {
			return nil
		}
		i, ok := p.FindSubtask(subtaskID)
		if !ok || p.Subtasks[i].Completed != from {
			return nil
		}
		p.Subtasks[i].Completed = to
		p.UpdatedAt = time.Now().UTC()
		swapped = true
		return nil
	})
	return swapped, err
}

func (r *PostRepo) SetStatus(ctx context.Context, id primitive.ObjectID, status models.PostStatus) error {
	return r.mutate(ctx, id, func(_ *storeData, p *models.Post) error {
		p.Status = status
		return nil
	})
}

func (r *PostRepo) AppendActivity(ctx context.Context, id primitive.ObjectID, a models.Activity) error {
	return r.mutate(ctx, id, func(_ *storeData, p *models.Post) error {
		p.Activities = append(p.Activities, a)
		return nil
	})
}

// Orders returns every stored order value, ascending.
func (r *PostRepo) Orders(ctx context.Context) []int {
	var orders []int
	_ = r.store.withLock(ctx, func(d *storeData) error {
		for _, p := range d.posts {
			orders = append(orders, p.Order)
		}
		return nil
	})
	sort.Ints(orders)
	return orders
}
