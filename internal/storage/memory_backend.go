package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pavelihno/reddit-film-communities/internal/model"
)

// MemoryBackend is an in-memory implementation of ArchiveBackend for testing.
type MemoryBackend struct {
	mu       sync.RWMutex
	posts    map[string]model.Post
	comments map[string]model.Comment
	users    map[string]model.User
}

// NewMemoryBackend creates a new in-memory archive backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		posts:    make(map[string]model.Post),
		comments: make(map[string]model.Comment),
		users:    make(map[string]model.User),
	}
}

// Initialize implements ArchiveBackend.
func (m *MemoryBackend) Initialize(path string, readOnly bool) error {
	return nil
}

// Close implements ArchiveBackend.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts = nil
	m.comments = nil
	m.users = nil
	return nil
}

// AddPosts implements ArchiveBackend.
func (m *MemoryBackend) AddPosts(ctx context.Context, posts []model.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range posts {
		m.posts[p.ID] = p
	}
	return nil
}

// AddComments implements ArchiveBackend.
func (m *MemoryBackend) AddComments(ctx context.Context, comments []model.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range comments {
		m.comments[c.ID] = c
	}
	return nil
}

// AddUsers implements ArchiveBackend.
func (m *MemoryBackend) AddUsers(ctx context.Context, users []model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range users {
		m.users[u.ID] = u
	}
	return nil
}

// GetPost implements ArchiveBackend.
func (m *MemoryBackend) GetPost(ctx context.Context, id string) (*model.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.posts[id]; ok {
		return &p, nil
	}
	return nil, nil
}

// GetComment implements ArchiveBackend.
func (m *MemoryBackend) GetComment(ctx context.Context, id string) (*model.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.comments[id]; ok {
		return &c, nil
	}
	return nil, nil
}

// GetUser implements ArchiveBackend.
func (m *MemoryBackend) GetUser(ctx context.Context, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

// Stats implements ArchiveBackend.
func (m *MemoryBackend) Stats(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		Posts:    len(m.posts),
		Comments: len(m.comments),
		Users:    len(m.users),
	}, nil
}

// Search implements ArchiveBackend with a simple substring scan.
func (m *MemoryBackend) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	queryTokens := tokenizeForFTS(query)
	if len(queryTokens) == 0 {
		return []SearchResult{}, nil
	}

	results := []SearchResult{}

	for _, p := range m.posts {
		if score := matchScore(p.Title+" "+p.SelfText, queryTokens); score > 0 {
			results = append(results, SearchResult{
				ID:      p.ID,
				Kind:    KindPost,
				Score:   score,
				Author:  p.AuthorName,
				Title:   p.Title,
				Snippet: snippet(p.SelfText),
			})
		}
	}
	for _, c := range m.comments {
		if score := matchScore(c.Body, queryTokens); score > 0 {
			results = append(results, SearchResult{
				ID:      c.ID,
				Kind:    KindComment,
				Score:   score,
				Author:  c.AuthorName,
				Snippet: snippet(c.Body),
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

func matchScore(text string, queryTokens []string) float64 {
	text = strings.ToLower(text)
	score := 0.0
	for _, token := range queryTokens {
		if strings.Contains(text, token) {
			score++
		}
	}
	return score
}
