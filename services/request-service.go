package services

import (
	"context"
	"errors"

	"taskboard-service/logging"
	"taskboard-service/models"
	"taskboard-service/repositories"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RequestService runs the collaboration request workflow: invite, list,
// accept and reject.
type RequestService struct {
	posts    repositories.PostRepository
	requests repositories.RequestRepository
	users    repositories.UserDirectory
	notifier *NotificationService
	tx       repositories.Transactor
}

func NewRequestService(
	posts repositories.PostRepository,
	requests repositories.RequestRepository,
	users repositories.UserDirectory,
	notifier *NotificationService,
	tx repositories.Transactor,
) *RequestService {
	return &RequestService{
		posts:    posts,
		requests: requests,
		users:    users,
		notifier: notifier,
		tx:       tx,
	}
}

// lookupUser maps directory failures other than a missing user to DependencyError.
func (s *RequestService) lookupUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.Lookup(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		return nil, models.DependencyError(err, "lookup user %s", userID)
	}
	return user, nil
}

// Send queues a request inviting userID to collaborate on the post and tells
// the invitee about it. Sending the same invitation twice is a no-op.
func (s *RequestService) Send(ctx context.Context, actor models.Actor, postID, userID string) error {
	id, err := parseID("post", postID)
	if err != nil {
		return err
	}
	if userID == "" {
		return models.ValidationError("user id is required")
	}
	invitee, err := s.lookupUser(ctx, userID)
	if err != nil {
		return err
	}

	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !post.IsStakeholder(actor.UserID) {
		return models.AuthorizationError("user %s has no access to post %s", actor.UserID, postID)
	}
	if post.IsStakeholder(userID) {
		return models.ConflictError("%s already works on post %s", invitee.Username, postID)
	}

	var added bool
	var delivered []Delivery
	err = newUnitOfWork("send-request", s.tx).
		Step("queue", func(ctx context.Context) error {
			var err error
			added, err = s.requests.Add(ctx, userID, id)
			return err
		}, func(ctx context.Context) error {
			if !added {
				return nil
			}
			_, err := s.requests.Remove(ctx, userID, id)
			return err
		}).
		Step("notify", func(ctx context.Context) error {
			if !added {
				return nil
			}
			d, err := s.notifier.Notify(ctx, NotifyInput{
				PostID:     id,
				Recipients: []string{userID},
				Text:       NoticeText(`You were invited to collaborate on "`+post.Title+`"`, post),
				Type:       models.NoticeMessage,
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
		return err
	}

	if added {
		logging.Logger.Infof("Event ID: REQUEST_SENT, Description: %s invited %s to post %s", actor.UserID, userID, postID)
	}
	return nil
}

// ListPending returns the user's pending invitations. Requests whose post no
// longer exists are skipped.
func (s *RequestService) ListPending(ctx context.Context, userID string) ([]models.PendingRequest, error) {
	ids, err := s.requests.Pending(ctx, userID)
	if err != nil {
		return nil, err
	}
	pending := []models.PendingRequest{}
	if len(ids) == 0 {
		return pending, nil
	}

	posts, err := s.posts.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]*models.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}

	creators := map[string]string{}
	for _, id := range ids {
		post, ok := byID[id]
		if !ok {
			continue
		}
		name, ok := creators[post.Owner]
		if !ok {
			name = post.Owner
			if owner, err := s.users.Lookup(ctx, post.Owner); err == nil {
				name = owner.Name()
			} else if !errors.Is(err, models.ErrNotFound) {
				return nil, models.DependencyError(err, "lookup creator of post %s", id.Hex())
			}
			creators[post.Owner] = name
		}
		pending = append(pending, models.PendingRequest{
			PostID:      id,
			Title:       post.Title,
			TeamName:    post.TeamName,
			CreatorName: name,
		})
	}
	return pending, nil
}

// Accept adds the user to the post's collaborators, notifies them and
// consumes the request, all as one unit of work.
func (s *RequestService) Accept(ctx context.Context, userID, postID string) (*models.Post, error) {
	id, err := parseID("post", postID)
	if err != nil {
		return nil, err
	}
	user, err := s.lookupUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var (
		post      *models.Post
		added     bool
		delivered []Delivery
	)
	err = newUnitOfWork("accept-request", s.tx).
		Step("check-request", func(ctx context.Context) error {
			ids, err := s.requests.Pending(ctx, userID)
			if err != nil {
				return err
			}
			for _, pending := range ids {
				if pending == id {
					return nil
				}
			}
			return models.NotFoundError("no pending request for post %s", postID)
		}, nil).
		Step("add-collaborator", func(ctx context.Context) error {
			var err error
			added, err = s.posts.AddCollaborator(ctx, id, models.Collaborator{Label: user.Username, Value: userID})
			if err != nil {
				return err
			}
			post, err = s.posts.FindByID(ctx, id)
			return err
		}, func(ctx context.Context) error {
			if !added {
				return nil
			}
			return s.posts.RemoveCollaborator(ctx, id, userID)
		}).
		Step("notify", func(ctx context.Context) error {
			if !added {
				return nil
			}
			d, err := s.notifier.Notify(ctx, NotifyInput{
				PostID:     id,
				Recipients: []string{userID},
				Text:       NoticeText(`You were added as a collaborator on "`+post.Title+`"`, post),
				Type:       models.NoticeAlert,
				Deadline:   post.Deadline,
			})
			delivered = d
			return err
		}, func(ctx context.Context) error {
			s.notifier.Retract(ctx, delivered)
			return nil
		}).
		Step("consume-request", func(ctx context.Context) error {
			removed, err := s.requests.Remove(ctx, userID, id)
			if err != nil {
				return err
			}
			if !removed {
				return models.ConflictError("request for post %s was already resolved", postID)
			}
			return nil
		}, nil).
		Run(ctx)
	if err != nil {
		return nil, err
	}

	logging.Logger.Infof("Event ID: REQUEST_ACCEPTED, Description: %s joined post %s", userID, postID)
	return post, nil
}

func (s *RequestService) Reject(ctx context.Context, userID, postID string) error {
	id, err := parseID("post", postID)
	if err != nil {
		return err
	}
	removed, err := s.requests.Remove(ctx, userID, id)
	if err != nil {
		return err
	}
	if !removed {
		return models.NotFoundError("no pending request for post %s", postID)
	}
	logging.Logger.Infof("Event ID: REQUEST_REJECTED, Description: %s declined post %s", userID, postID)
	return nil
}
