package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"taskboard-service/logging"
	"taskboard-service/models"

	"github.com/sony/gobreaker"
)

// UsersClient resolves users through the users service HTTP API
// (GET {base}/api/users/{id}). Calls go through a circuit breaker; a 404 is an
// answer, not a failure, and does not count against the breaker.
type UsersClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

func NewUsersClient(baseURL string, httpClient *http.Client) *UsersClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &UsersClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "users-service-cb",
			MaxRequests: 1,
			Timeout:     5 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, models.ErrNotFound)
			},
		}),
	}
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	LastName string `json:"lastName"`
}

func (c *UsersClient) Lookup(ctx context.Context, userID string) (*models.User, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, userID)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("users service unavailable: %w", err)
		}
		return nil, err
	}
	return result.(*models.User), nil
}

func (c *UsersClient) fetch(ctx context.Context, userID string) (*models.User, error) {
	endpoint := fmt.Sprintf("%s/api/users/%s", c.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request user %s: %w", userID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, models.NotFoundError("user %s not found", userID)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("users service answered %s for %s", resp.Status, userID)
	}

	var body userResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", userID, err)
	}
	if body.ID == "" {
		body.ID = userID
	}
	return &models.User{
		ID:          body.ID,
		Username:    body.Username,
		DisplayName: strings.TrimSpace(body.Name + " " + body.LastName),
	}, nil
}
