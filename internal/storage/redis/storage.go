package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/averho/chatgate/internal/model"
	"github.com/averho/chatgate/internal/storage"
)

// Storage is a Redis-backed implementation of the membership store, for
// deployments that replicate participant data into Redis instead of
// querying the relational source directly
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.MembershipStore = (*Storage)(nil)

// Add records a participant membership: another room row on the user's
// list plus the role entry
func (s *Storage) Add(ctx context.Context, m model.Membership) error {
	pipe := s.client.Pipeline()
	pipe.RPush(ctx, userRoomsKey(m.UserID), m.RoomID)
	pipe.HSet(ctx, userRolesKey(m.UserID), strconv.FormatInt(m.RoomID, 10), string(m.Role))
	_, err := pipe.Exec(ctx)
	return err
}

// Remove deletes a participant membership and all its room rows
func (s *Storage) Remove(ctx context.Context, userID, roomID int64) error {
	pipe := s.client.Pipeline()
	pipe.LRem(ctx, userRoomsKey(userID), 0, roomID)
	pipe.HDel(ctx, userRolesKey(userID), strconv.FormatInt(roomID, 10))
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) RoomsForUser(ctx context.Context, userID int64) ([]int64, error) {
	raw, err := s.client.LRange(ctx, userRoomsKey(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	rooms := make([]int64, 0, len(raw))
	for _, entry := range raw {
		id, err := strconv.ParseInt(entry, 10, 64)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, id)
	}
	return rooms, nil
}

func (s *Storage) RoomRole(ctx context.Context, userID, roomID int64) (model.Role, bool, error) {
	raw, err := s.client.HGet(ctx, userRolesKey(userID), strconv.FormatInt(roomID, 10)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}

	role, err := model.ParseRole(raw)
	if err != nil {
		return "", false, err
	}
	return role, true, nil
}
