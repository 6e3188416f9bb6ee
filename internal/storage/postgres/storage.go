package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/averho/chatgate/internal/model"
	"github.com/averho/chatgate/internal/storage"
)

// Storage is a Postgres-backed implementation of the membership store,
// reading the participants table maintained by the rest of the system
type Storage struct {
	pool *pgxpool.Pool
}

// New connects a pool to the participant database and verifies the
// connection
func New(ctx context.Context, databaseURL string) (*Storage, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required for postgres storage")
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Storage{pool: pool}, nil
}

// NewWithPool creates a Storage with an existing pool (for testing)
func NewWithPool(pool *pgxpool.Pool) *Storage {
	return &Storage{pool: pool}
}

// Close releases the connection pool
func (s *Storage) Close() {
	s.pool.Close()
}

// Ensure Storage implements the interface
var _ storage.MembershipStore = (*Storage)(nil)

func (s *Storage) RoomsForUser(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT room_id FROM participants WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("query rooms for user %d: %w", userID, err)
	}
	defer rows.Close()

	var roomIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan room id: %w", err)
		}
		roomIDs = append(roomIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rooms for user %d: %w", userID, err)
	}
	return roomIDs, nil
}

func (s *Storage) RoomRole(ctx context.Context, userID, roomID int64) (model.Role, bool, error) {
	var raw string
	err := s.pool.QueryRow(ctx,
		`SELECT role FROM participants WHERE user_id = $1 AND room_id = $2`,
		userID, roomID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query role for (%d, %d): %w", userID, roomID, err)
	}

	role, err := model.ParseRole(raw)
	if err != nil {
		return "", false, fmt.Errorf("participant (%d, %d) has unknown role %q", userID, roomID, raw)
	}
	return role, true, nil
}
