package emergency

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"veilo/pkg/models"

	"github.com/stretchr/testify/suite"
)

// StoreTestSuite tests the emergency Store.
type StoreTestSuite struct {
	suite.Suite
	tempDir string
	dbPath  string
	store   *Store
	ctx     context.Context
}

// SetupSuite runs once before all tests.
func (s *StoreTestSuite) SetupSuite() {
	var err error
	s.tempDir, err = os.MkdirTemp("", "emergency-store-test-*")
	s.Require().NoError(err)
	s.ctx = context.Background()
}

// TearDownSuite runs once after all tests.
func (s *StoreTestSuite) TearDownSuite() {
	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}
}

// SetupTest runs before each test.
func (s *StoreTestSuite) SetupTest() {
	s.dbPath = filepath.Join(s.tempDir, "test.db")
	var err error
	s.store, err = NewStore(s.dbPath)
	s.Require().NoError(err)
}

// TearDownTest runs after each test.
func (s *StoreTestSuite) TearDownTest() {
	if s.store != nil {
		s.store.Close()
	}
	os.Remove(s.dbPath)
	os.Remove(s.dbPath + "-wal")
	os.Remove(s.dbPath + "-shm")
}

func (s *StoreTestSuite) TestNewStoreInvalidPath() {
	_, err := NewStore("/nonexistent/path/to/db.sqlite")
	s.Error(err)
}

func (s *StoreTestSuite) TestListEmptyStore() {
	posts := s.store.ListOffline(s.ctx)
	s.NotNil(posts)
	s.Empty(posts)
	s.Equal(0, s.store.Count(s.ctx))
}

func (s *StoreTestSuite) TestCreateOffline() {
	post, err := s.store.CreateOffline(s.ctx, models.PostInput{Content: "hello", Topic: "general", Tags: []string{"a"}})
	s.Require().NoError(err)

	s.True(strings.HasPrefix(post.ID, idPrefix))
	s.Equal("hello", post.Content)
	s.Equal("general", post.Topic)
	s.True(post.IsEmergencyMode)
	s.Equal(models.PendingSync, post.Status)
	s.False(post.CreatedAt.IsZero())

	posts := s.store.ListOffline(s.ctx)
	s.Require().Len(posts, 1)
	s.Equal(post.ID, posts[0].ID)
	s.Equal([]string{"a"}, posts[0].Tags)
}

func (s *StoreTestSuite) TestCreateOfflineRejectsEmptyContent() {
	_, err := s.store.CreateOffline(s.ctx, models.PostInput{Content: "   "})
	s.ErrorIs(err, ErrEmptyContent)
}

func (s *StoreTestSuite) TestMostRecentFirst() {
	first, err := s.store.CreateOffline(s.ctx, models.PostInput{Content: "first"})
	s.Require().NoError(err)
	second, err := s.store.CreateOffline(s.ctx, models.PostInput{Content: "second"})
	s.Require().NoError(err)

	s.NotEqual(first.ID, second.ID)

	posts := s.store.ListOffline(s.ctx)
	s.Require().Len(posts, 2)
	s.Equal(second.ID, posts[0].ID)
	s.Equal(first.ID, posts[1].ID)
}

func (s *StoreTestSuite) TestClearOffline() {
	_, err := s.store.CreateOffline(s.ctx, models.PostInput{Content: "one"})
	s.Require().NoError(err)
	_, err = s.store.CreateOffline(s.ctx, models.PostInput{Content: "two"})
	s.Require().NoError(err)

	s.Require().NoError(s.store.ClearOffline(s.ctx))
	s.Empty(s.store.ListOffline(s.ctx))

	s.Require().NoError(s.store.ClearOffline(s.ctx))
	s.Empty(s.store.ListOffline(s.ctx))
}

func (s *StoreTestSuite) TestCorruptSlotIsEmpty() {
	_, err := s.store.db.ExecContext(s.ctx,
		`INSERT INTO local_storage (key, value) VALUES (?, ?)`, PostsKey, "{not json")
	s.Require().NoError(err)

	s.Empty(s.store.ListOffline(s.ctx))

	post, err := s.store.CreateOffline(s.ctx, models.PostInput{Content: "recovered"})
	s.Require().NoError(err)

	posts := s.store.ListOffline(s.ctx)
	s.Require().Len(posts, 1)
	s.Equal(post.ID, posts[0].ID)
}

func (s *StoreTestSuite) TestUnreadableSlotIsNotOverwritten() {
	_, err := s.store.db.ExecContext(s.ctx, `DROP TABLE local_storage`)
	s.Require().NoError(err)
	_, err = s.store.db.ExecContext(s.ctx,
		`CREATE TABLE local_storage (key TEXT PRIMARY KEY, value TEXT, updated_at DATETIME)`)
	s.Require().NoError(err)
	_, err = s.store.db.ExecContext(s.ctx,
		`INSERT INTO local_storage (key, value) VALUES (?, NULL)`, PostsKey)
	s.Require().NoError(err)

	s.Empty(s.store.ListOffline(s.ctx))

	_, err = s.store.CreateOffline(s.ctx, models.PostInput{Content: "must not clobber"})
	s.ErrorIs(err, ErrDatabaseError)

	var value sql.NullString
	s.Require().NoError(s.store.db.QueryRowContext(s.ctx,
		`SELECT value FROM local_storage WHERE key = ?`, PostsKey).Scan(&value))
	s.False(value.Valid)
}

func (s *StoreTestSuite) TestPersistsAcrossReopen() {
	post, err := s.store.CreateOffline(s.ctx, models.PostInput{Content: "durable"})
	s.Require().NoError(err)
	s.Require().NoError(s.store.Close())

	s.store, err = NewStore(s.dbPath)
	s.Require().NoError(err)

	posts := s.store.ListOffline(s.ctx)
	s.Require().Len(posts, 1)
	s.Equal(post.ID, posts[0].ID)
}

func (s *StoreTestSuite) TestWriteFailure() {
	s.Require().NoError(s.store.Close())

	_, err := s.store.CreateOffline(s.ctx, models.PostInput{Content: "lost"})
	s.ErrorIs(err, ErrDatabaseError)
	s.Empty(s.store.ListOffline(s.ctx))
	s.store = nil
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}
