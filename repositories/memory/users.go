package memory

import (
	"context"
	"fmt"
	"os"
	"sync"

	"taskboard-service/models"
	"taskboard-service/repositories"

	"gopkg.in/yaml.v3"
)

var _ repositories.UserDirectory = (*Directory)(nil)

// Directory is a user directory held in memory, optionally seeded from a YAML
// file of the form:
//
//	users:
//	  - id: u1
//	    username: ana
//	    displayName: Ana Petrovic
type Directory struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewDirectory(users ...models.User) *Directory {
	d := &Directory{users: make(map[string]models.User, len(users))}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

type seedFile struct {
	Users []struct {
		ID          string `yaml:"id"`
		Username    string `yaml:"username"`
		DisplayName string `yaml:"displayName"`
	} `yaml:"users"`
}

// LoadDirectory reads a YAML seed file into a new Directory.
func LoadDirectory(path string) (*Directory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse users file %s: %w", path, err)
	}

	d := NewDirectory()
	for _, u := range seed.Users {
		if u.ID == "" {
			return nil, fmt.Errorf("users file %s: entry %q has no id", path, u.Username)
		}
		d.Add(models.User{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName})
	}
	return d, nil
}

func (d *Directory) Add(u models.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

func (d *Directory) Lookup(_ context.Context, userID string) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[userID]
	if !ok {
		return nil, models.NotFoundError("user %s not found", userID)
	}
	return &u, nil
}
