// Package emergency persists posts created while the backend is unreachable.
package emergency

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"veilo/pkg/log"
	"veilo/pkg/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// Store keeps the offline post list in a single SQLite-backed slot.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewStore opens (or creates) the store at dbPath.
func NewStore(dbPath string) (*Store, error) {
	database, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", ErrDatabaseError, err)
	}

	if _, err := database.ExecContext(context.Background(), "PRAGMA journal_mode = WAL"); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("%w: failed to enable WAL mode: %w", ErrDatabaseError, err)
	}

	if _, err := database.ExecContext(context.Background(), Schema); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("%w: failed to initialize schema: %w", ErrDatabaseError, err)
	}

	return &Store{db: database, logger: log.Component("emergency")}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateOffline stores content as a pending-sync post at the head of the list
// and returns the new record.
func (s *Store) CreateOffline(ctx context.Context, content models.PostInput) (*models.EmergencyPost, error) {
	if strings.TrimSpace(content.Content) == "" {
		return nil, ErrEmptyContent
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}

	post := models.EmergencyPost{
		ID:              idPrefix + id.String(),
		PostInput:       content,
		CreatedAt:       time.Now().UTC(),
		IsEmergencyMode: true,
		Status:          models.PendingSync,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	posts, err := s.loadExisting(ctx)
	if err != nil {
		return nil, err
	}
	posts = append([]models.EmergencyPost{post}, posts...)

	if err := s.save(ctx, posts); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("id", post.ID).
		Int("pending", len(posts)).
		Msg("Post saved locally for later sync")

	return &post, nil
}

// ListOffline returns the stored posts, most recent first. A missing or
// corrupt slot yields an empty list.
func (s *Store) ListOffline(ctx context.Context) []models.EmergencyPost {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Count returns the number of stored posts.
func (s *Store) Count(ctx context.Context) int {
	return len(s.ListOffline(ctx))
}

// ClearOffline removes every stored post.
func (s *Store) ClearOffline(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM local_storage WHERE key = ?`, PostsKey); err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	s.logger.Info().Msg("Offline posts cleared")
	return nil
}

func (s *Store) load(ctx context.Context) []models.EmergencyPost {
	posts, err := s.loadExisting(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read offline posts, treating as empty")
		return []models.EmergencyPost{}
	}
	return posts
}

// loadExisting reads the slot for a read-modify-write. A missing or corrupt
// slot is empty; any other read failure is returned so the caller does not
// overwrite posts it could not see.
func (s *Store) loadExisting(ctx context.Context) ([]models.EmergencyPost, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM local_storage WHERE key = ?`, PostsKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []models.EmergencyPost{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read offline posts: %w", ErrDatabaseError, err)
	}

	var posts []models.EmergencyPost
	if err := json.Unmarshal([]byte(raw), &posts); err != nil {
		s.logger.Warn().Err(err).Msg("Offline post storage is corrupt, treating as empty")
		return []models.EmergencyPost{}, nil
	}
	if posts == nil {
		posts = []models.EmergencyPost{}
	}
	return posts, nil
}

func (s *Store) save(ctx context.Context, posts []models.EmergencyPost) error {
	data, err := json.Marshal(posts)
	if err != nil {
		return fmt.Errorf("encode offline posts: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO local_storage (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		PostsKey, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	return nil
}
