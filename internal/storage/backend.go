// Package storage provides the local archive for collected discussion data.
//
// It defines the ArchiveBackend protocol that all archive implementations
// must satisfy, along with common types used across backends. The archive
// keeps every post, comment, and user profile ever collected, independent of
// the per-run CSV datasets.
package storage

import (
	"context"

	"github.com/pavelihno/reddit-film-communities/internal/model"
)

// Result kinds returned by Search.
const (
	KindPost    = "post"
	KindComment = "comment"
)

// SearchResult represents a search hit from the archive.
type SearchResult struct {
	// ID is the post or comment id.
	ID string

	// Kind is "post" or "comment".
	Kind string

	// Score is the relevance score (higher is better).
	Score float64

	// Author is the display name of the item's author.
	Author string

	// Title is the post title; empty for comments.
	Title string

	// Snippet is a content excerpt.
	Snippet string
}

// Stats summarizes the archive contents.
type Stats struct {
	Posts    int
	Comments int
	Users    int
}

// ArchiveBackend defines the interface for archive implementations.
//
// Implementations must be thread-safe and support concurrent access.
type ArchiveBackend interface {
	// Lifecycle methods

	// Initialize opens or creates the archive at the given path.
	// If readOnly is true, the archive is opened in read-only mode.
	Initialize(path string, readOnly bool) error

	// Close releases all resources held by the backend.
	Close() error

	// Write operations

	// AddPosts upserts posts into the archive.
	AddPosts(ctx context.Context, posts []model.Post) error

	// AddComments upserts comments into the archive.
	AddComments(ctx context.Context, comments []model.Comment) error

	// AddUsers upserts user profiles into the archive.
	AddUsers(ctx context.Context, users []model.User) error

	// Lookups

	// GetPost returns a single post by id, or nil if not found.
	GetPost(ctx context.Context, id string) (*model.Post, error)

	// GetComment returns a single comment by id, or nil if not found.
	GetComment(ctx context.Context, id string) (*model.Comment, error)

	// GetUser returns a single user profile by id, or nil if not found.
	GetUser(ctx context.Context, id string) (*model.User, error)

	// Stats returns archive item counts.
	Stats(ctx context.Context) (Stats, error)

	// Search

	// Search performs full-text search over post titles, selftexts, and
	// comment bodies.
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}
