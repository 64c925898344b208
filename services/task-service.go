package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"taskboard-service/logging"
	"taskboard-service/models"
	"taskboard-service/repositories"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type TaskService struct {
	posts    repositories.PostRepository
	requests repositories.RequestRepository
	users    repositories.UserDirectory
	notifier *NotificationService
	tx       repositories.Transactor
	clock    Clock

	// orderMu serialises create, delete and reorder within this process.
	orderMu sync.Mutex
}

func NewTaskService(
	posts repositories.PostRepository,
	requests repositories.RequestRepository,
	users repositories.UserDirectory,
	notifier *NotificationService,
	tx repositories.Transactor,
	clock Clock,
) *TaskService {
	return &TaskService{
		posts:    posts,
		requests: requests,
		users:    users,
		notifier: notifier,
		tx:       tx,
		clock:    clock,
	}
}

func parseID(kind, hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, models.ValidationError("invalid %s id %q", kind, hex)
	}
	return id, nil
}

type SubtaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (in *SubtaskInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return models.ValidationError("subtask title is required")
	}
	return nil
}

type CreatePostInput struct {
	Title         string          `json:"title"`
	Content       string          `json:"content"`
	Category      string          `json:"category"`
	Priority      models.Priority `json:"priority"`
	Deadline      *time.Time      `json:"deadline"`
	TeamName      string          `json:"teamName"`
	Collaborators []string        `json:"collaborators"`
	Subtasks      []SubtaskInput  `json:"subtasks"`
}

func (in *CreatePostInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.TeamName = strings.TrimSpace(in.TeamName)
	if in.Title == "" {
		return models.ValidationError("title is required")
	}
	if in.Content == "" {
		return models.ValidationError("content is required")
	}
	if in.Priority == "" {
		in.Priority = models.PriorityLow
	}
	if !in.Priority.IsValid() {
		return models.ValidationError("unknown priority %q", in.Priority)
	}
	for i := range in.Subtasks {
		if err := in.Subtasks[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// resolveCollaborators turns user ids into collaborator pairs, skipping the
// owner and repeated ids.
func (s *TaskService) resolveCollaborators(ctx context.Context, ids []string, owner string) ([]models.Collaborator, error) {
	collaborators := []models.Collaborator{}
	seen := map[string]bool{owner: true}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		user, err := s.users.Lookup(ctx, id)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, models.DependencyError(nil, "collaborator %s does not exist", id)
			}
			return nil, models.DependencyError(err, "resolve collaborator %s", id)
		}
		collaborators = append(collaborators, models.Collaborator{Label: user.Username, Value: id})
	}
	return collaborators, nil
}

// Create stores a new post at the end of the order and notifies its stakeholders.
func (s *TaskService) Create(ctx context.Context, actor models.Actor, in CreatePostInput) (*models.Post, error) {
	if !actor.IsPrivileged() {
		return nil, models.AuthorizationError("only managers can create posts")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	collaborators, err := s.resolveCollaborators(ctx, in.Collaborators, actor.UserID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	post := &models.Post{
		ID:              primitive.NewObjectID(),
		Title:           in.Title,
		Content:         in.Content,
		Category:        strings.TrimSpace(in.Category),
		Owner:           actor.UserID,
		Priority:        in.Priority,
		Deadline:        in.Deadline,
		Status:          models.StatusPending,
		IsCollaborative: len(collaborators) > 0 || in.TeamName != "",
		TeamName:        in.TeamName,
		Collaborators:   collaborators,
		Subtasks:        []models.Subtask{},
		Activities:      []models.Activity{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, st := range in.Subtasks {
		post.Subtasks = append(post.Subtasks, models.Subtask{
			ID:          primitive.NewObjectID(),
			Title:       st.Title,
			Description: st.Description,
		})
	}

	s.orderMu.Lock()
	defer s.orderMu.Unlock()

	var delivered []Delivery
	err = newUnitOfWork("create-post", s.tx).
		Step("check-title", func(ctx context.Context) error {
			taken, err := s.posts.TitleExists(ctx, post.Title, primitive.NilObjectID)
			if err != nil {
				return err
			}
			if taken {
				return models.ConflictError("a post titled %q already exists", post.Title)
			}
			return nil
		}, nil).
		Step("insert", func(ctx context.Context) error {
			return s.posts.InsertAtEnd(ctx, post)
		}, func(ctx context.Context) error {
			_, err := s.posts.DeleteAndCompact(ctx, post.ID)
			return err
		}).
		Step("notify", func(ctx context.Context) error {
			d, err := s.notifier.Notify(ctx, NotifyInput{
				PostID:     post.ID,
				Recipients: post.Stakeholders(),
				Text:       NoticeText(`New task "`+post.Title+`" was created`, post),
				Type:       models.NoticeAlert,
				Deadline:   post.Deadline,
			})
			delivered = d
			return err
		}, func(ctx context.Context) error {
			s.notifier.Retract(ctx, delivered)
			return nil
		}).
		Run(ctx)
	if err != nil {
		return nil, err
	}

	logging.Logger.Infof("Event ID: POST_CREATED, Description: Post %s created by %s at order %d", post.ID.Hex(), actor.UserID, post.Order)
	return post, nil
}

// Delete removes a post, closes the gap it leaves in the order and drops any
// pending requests that point at it.
func (s *TaskService) Delete(ctx context.Context, actor models.Actor, postID string) error {
	if !actor.IsPrivileged() {
		return models.AuthorizationError("only managers can delete posts")
	}
	id, err := parseID("post", postID)
	if err != nil {
		return err
	}

	s.orderMu.Lock()
	defer s.orderMu.Unlock()

	var deleted *models.Post
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		post, err := s.posts.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if post.Owner != actor.UserID {
			return models.AuthorizationError("only the owner can delete post %s", postID)
		}
		if deleted, err = s.posts.DeleteAndCompact(ctx, id); err != nil {
			return err
		}
		_, err = s.requests.RemovePost(ctx, id)
		return err
	})
	if err != nil {
		return err
	}

	logging.Logger.Infof("Event ID: POST_DELETED, Description: Post %s deleted by %s, order %d released", postID, actor.UserID, deleted.Order)
	return nil
}

// Reorder gives the listed posts the caller may see the order slots they
// already hold, in the listed sequence. It returns how many posts were placed.
func (s *TaskService) Reorder(ctx context.Context, actor models.Actor, postIDs []string) (int, error) {
	ids := make([]primitive.ObjectID, 0, len(postIDs))
	for _, hex := range postIDs {
		id, err := parseID("post", hex)
		if err != nil {
			return 0, err
		}
		ids = append(ids, id)
	}

	s.orderMu.Lock()
	defer s.orderMu.Unlock()

	var moved int
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		found, err := s.posts.FindByIDs(ctx, ids)
		if err != nil {
			return err
		}
		visible := make(map[primitive.ObjectID]bool, len(found))
		for _, p := range found {
			if actor.IsPrivileged() || p.IsStakeholder(actor.UserID) {
				visible[p.ID] = true
			}
		}
		kept := ids[:0:0]
		for _, id := range ids {
			if visible[id] {
				kept = append(kept, id)
			}
		}
		moved, err = s.posts.Reorder(ctx, kept)
		return err
	})
	if err != nil {
		return 0, err
	}

	logging.Logger.Infof("Event ID: POSTS_REORDERED, Description: %d of %d posts placed by %s", moved, len(postIDs), actor.UserID)
	return moved, nil
}

// loadForStakeholder loads a post the actor owns or collaborates on.
func (s *TaskService) loadForStakeholder(ctx context.Context, actor models.Actor, postID string) (*models.Post, error) {
	id, err := parseID("post", postID)
	if err != nil {
		return nil, err
	}
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !post.IsStakeholder(actor.UserID) {
		return nil, models.AuthorizationError("user %s has no access to post %s", actor.UserID, postID)
	}
	return post, nil
}

func (s *TaskService) Get(ctx context.Context, actor models.Actor, postID string) (*models.Post, error) {
	return s.loadForStakeholder(ctx, actor, postID)
}

type UpdatePostInput struct {
	Title    *string          `json:"title"`
	Content  *string          `json:"content"`
	Category *string          `json:"category"`
	Priority *models.Priority `json:"priority"`
	Deadline *time.Time       `json:"deadline"`
	TeamName *string          `json:"teamName"`
}

func (in *UpdatePostInput) Validate() error {
	trim := func(p *string) {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
	trim(in.Title)
	trim(in.Content)
	trim(in.Category)
	trim(in.TeamName)
	if in.Title != nil && *in.Title == "" {
		return models.ValidationError("title cannot be empty")
	}
	if in.Content != nil && *in.Content == "" {
		return models.ValidationError("content cannot be empty")
	}
	if in.Priority != nil && !in.Priority.IsValid() {
		return models.ValidationError("unknown priority %q", *in.Priority)
	}
	return nil
}

func (s *TaskService) Update(ctx context.Context, actor models.Actor, postID string, in UpdatePostInput) (*models.Post, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	post, err := s.loadForStakeholder(ctx, actor, postID)
	if err != nil {
		return nil, err
	}
	if in.Title != nil && *in.Title != post.Title {
		taken, err := s.posts.TitleExists(ctx, *in.Title, post.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, models.ConflictError("a post titled %q already exists", *in.Title)
		}
	}
	return s.posts.Update(ctx, post.ID, models.PostUpdate{
		Title:    in.Title,
		Content:  in.Content,
		Category: in.Category,
		Priority: in.Priority,
		Deadline: in.Deadline,
		TeamName: in.TeamName,
	})
}

const toggleAttempts = 3

// ToggleSubtask flips one subtask's completion. The write is a compare-and-set
// against the value read, retried when another writer got there first.
func (s *TaskService) ToggleSubtask(ctx context.Context, actor models.Actor, postID, subtaskID string) (*models.Post, error) {
	sid, err := parseID("subtask", subtaskID)
	if err != nil {
		return nil, err
	}
	post, err := s.loadForStakeholder(ctx, actor, postID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < toggleAttempts; attempt++ {
		i, ok := post.FindSubtask(sid)
		if !ok {
			return nil, models.NotFoundError("subtask %s not found", subtaskID)
		}
		current := post.Subtasks[i].Completed
		swapped, err := s.posts.SetSubtaskCompleted(ctx, post.ID, sid, current, !current)
		if err != nil {
			return nil, err
		}
		if swapped {
			return s.posts.FindByID(ctx, post.ID)
		}
		if post, err = s.posts.FindByID(ctx, post.ID); err != nil {
			return nil, err
		}
	}
	return nil, models.ConflictError("subtask %s is being changed concurrently", subtaskID)
}

func (s *TaskService) AddSubtask(ctx context.Context, actor models.Actor, postID string, in SubtaskInput) (*models.Post, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	post, err := s.loadForStakeholder(ctx, actor, postID)
	if err != nil {
		return nil, err
	}
	err = s.posts.AddSubtask(ctx, post.ID, models.Subtask{
		ID:          primitive.NewObjectID(),
		Title:       in.Title,
		Description: in.Description,
	})
	if err != nil {
		return nil, err
	}
	return s.posts.FindByID(ctx, post.ID)
}

// CompleteTask derives the status from the subtasks: completed when all are
// done, pending otherwise. A post without subtasks is returned unchanged.
func (s *TaskService) CompleteTask(ctx context.Context, actor models.Actor, postID string) (*models.Post, error) {
	post, err := s.loadForStakeholder(ctx, actor, postID)
	if err != nil {
		return nil, err
	}
	if len(post.Subtasks) == 0 {
		return post, nil
	}

	status := models.StatusPending
	if post.AllSubtasksCompleted() {
		status = models.StatusCompleted
	}
	if status == post.Status {
		return post, nil
	}
	if err := s.posts.SetStatus(ctx, post.ID, status); err != nil {
		return nil, err
	}
	post.Status = status
	return post, nil
}

func (s *TaskService) SetStatus(ctx context.Context, actor models.Actor, postID string, status models.PostStatus) (*models.Post, error) {
	if !status.IsValid() {
		return nil, models.ValidationError("unknown status %q", status)
	}
	post, err := s.loadForStakeholder(ctx, actor, postID)
	if err != nil {
		return nil, err
	}
	if err := s.posts.SetStatus(ctx, post.ID, status); err != nil {
		return nil, err
	}
	post.Status = status
	return post, nil
}

type ActivityInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (s *TaskService) AddActivity(ctx context.Context, actor models.Actor, postID string, in ActivityInput) (*models.Post, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, models.ValidationError("activity title is required")
	}
	post, err := s.loadForStakeholder(ctx, actor, postID)
	if err != nil {
		return nil, err
	}
	err = s.posts.AppendActivity(ctx, post.ID, models.Activity{
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		Author:      actor.UserID,
		CreatedAt:   s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	return s.posts.FindByID(ctx, post.ID)
}

type QueryInput struct {
	Scope    models.Scope
	Search   string
	Category string
	Priority models.Priority
	Deadline models.DeadlineBucket
	Sort     models.SortBy
	Limit    int
	Offset   int
}

func (in *QueryInput) Validate() error {
	if in.Scope == "" {
		in.Scope = models.ScopeAll
	}
	if !in.Scope.IsValid() {
		return models.ValidationError("unknown scope %q", in.Scope)
	}
	if in.Priority != "" && !in.Priority.IsValid() {
		return models.ValidationError("unknown priority %q", in.Priority)
	}
	if in.Deadline == "" {
		in.Deadline = models.DeadlineAll
	}
	if !in.Deadline.IsValid() {
		return models.ValidationError("unknown deadline filter %q", in.Deadline)
	}
	if in.Sort == "" {
		in.Sort = models.SortCreated
	}
	if in.Sort != models.SortCreated && in.Sort != models.SortOrder {
		return models.ValidationError("unknown sort %q", in.Sort)
	}
	if in.Limit < 0 || in.Offset < 0 {
		return models.ValidationError("limit and offset must not be negative")
	}
	if in.Limit == 0 {
		in.Limit = defaultPageSize
	}
	if in.Limit > maxPageSize {
		in.Limit = maxPageSize
	}
	return nil
}

func (s *TaskService) Query(ctx context.Context, actor models.Actor, in QueryInput) (*models.PostPage, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	posts, total, err := s.posts.Find(ctx, models.PostQuery{
		UserID:   actor.UserID,
		Scope:    in.Scope,
		Search:   strings.TrimSpace(in.Search),
		Category: strings.TrimSpace(in.Category),
		Priority: in.Priority,
		Deadline: in.Deadline,
		Sort:     in.Sort,
		Limit:    in.Limit,
		Offset:   in.Offset,
		Now:      s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	return &models.PostPage{
		Posts:   posts,
		Total:   total,
		HasMore: int64(in.Offset+len(posts)) < total,
	}, nil
}
