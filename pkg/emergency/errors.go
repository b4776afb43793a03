package emergency

import "errors"

var (
	// ErrDatabaseError is returned when a database operation fails.
	ErrDatabaseError = errors.New("database error")

	// ErrEmptyContent is returned when an offline post has no content.
	ErrEmptyContent = errors.New("post content is empty")
)
