// Package profile looks up the display name and avatar of Slack users so
// that messages can be reposted under their identity.
package profile

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/slack-go/slack"
)

// The identity a message is posted under.
type User struct {
	RealName string `json:"realName"`
	ImageURL string `json:"imageUrl"`
}

// Fetches a profile from Slack's users.profile.get. Implemented by
// *slack.Client.
type Fetcher interface {
	GetUserProfileContext(ctx context.Context, params *slack.GetUserProfileParameters) (*slack.UserProfile, error)
}

// A read-through cache of user profiles.
//
// Seeded users are fixtures: they are never fetched and never replaced.
type Cache struct {
	fetcher Fetcher
	logger  *slog.Logger

	mu       sync.RWMutex
	users    map[string]User
	fixtures map[string]struct{}
}

// Creates a Cache. seed may be nil; otherwise it is a JSON object of user IDs
// to users.
func NewCache(fetcher Fetcher, seed io.Reader, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{
		fetcher:  fetcher,
		logger:   logger,
		users:    make(map[string]User),
		fixtures: make(map[string]struct{}),
	}
	if seed == nil {
		return c, nil
	}

	var users map[string]User
	if err := json.NewDecoder(seed).Decode(&users); err != nil {
		return nil, errors.Wrap(err, "failed to decode user seed")
	}
	for id, user := range users {
		if user.RealName == "" || user.ImageURL == "" {
			return nil, errors.Errorf("seeded user %q needs both realName and imageUrl", id)
		}
		c.users[id] = user
		c.fixtures[id] = struct{}{}
	}
	return c, nil
}

// Creates a Cache seeded from the file at path. An empty path means no seed.
func LoadCache(fetcher Fetcher, path string, logger *slog.Logger) (*Cache, error) {
	if path == "" {
		return NewCache(fetcher, nil, logger)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open user seed")
	}
	defer f.Close()

	c, err := NewCache(fetcher, f, logger)
	if err != nil {
		return nil, err
	}
	c.logger.Info("Using user cache seed", "path", path, "users", len(c.fixtures))
	return c, nil
}

// Returns the user with userID, fetching it from Slack on a miss.
func (c *Cache) Get(ctx context.Context, userID string) (User, error) {
	c.mu.RLock()
	user, ok := c.users[userID]
	c.mu.RUnlock()
	if ok {
		return user, nil
	}

	c.logger.Debug("Fetching user profile", "user", userID)
	p, err := c.fetcher.GetUserProfileContext(ctx, &slack.GetUserProfileParameters{UserID: userID})
	if err != nil {
		return User{}, errors.Wrapf(err, "failed to get profile of %s", userID)
	}

	user = User{RealName: p.RealName, ImageURL: p.Image512}
	c.Put(userID, user)
	return user, nil
}

// Stores user unless userID is a fixture.
func (c *Cache) Put(userID string, user User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, fixed := c.fixtures[userID]; fixed {
		return
	}
	c.users[userID] = user
}
