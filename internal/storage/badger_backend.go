package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/pavelihno/reddit-film-communities/internal/model"
)

// Key prefixes for different data types
const (
	prefixPost    = "p:" // post data
	prefixComment = "c:" // comment data
	prefixUser    = "u:" // user profile data
)

// BadgerBackend is a BadgerDB-backed archive implementation.
type BadgerBackend struct {
	db           *badger.DB
	initialized  bool
	mu           sync.RWMutex
	postCount    int
	commentCount int
	userCount    int
	ftsIndex     map[string][]string // token -> []itemKey ("p:<id>" / "c:<id>")
}

// NewBadgerBackend creates a new BadgerDB backend.
func NewBadgerBackend() *BadgerBackend {
	return &BadgerBackend{}
}

// Initialize opens or creates the BadgerDB database at the given path.
func (b *BadgerBackend) Initialize(path string, readOnly bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithNumMemtables(5).
		WithLoggingLevel(badger.ERROR) // Suppress INFO/WARNING logs

	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	var err error
	b.db, err = badger.Open(opts)
	if err != nil {
		return fmt.Errorf("opening badger DB: %w", err)
	}

	b.initialized = true

	// Rebuild FTS index and counts from database
	b.rebuildFTSIndexFromDB()

	return nil
}

// rebuildFTSIndexFromDB rebuilds the FTS index and item counts from the
// database.
func (b *BadgerBackend) rebuildFTSIndexFromDB() {
	b.ftsIndex = make(map[string][]string)
	b.postCount = 0
	b.commentCount = 0
	b.userCount = 0

	txn := b.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefixPost)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		var post model.Post
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &post)
		}); err != nil {
			continue
		}
		b.postCount++
		b.indexPostForFTS(&post)
	}

	opts.Prefix = []byte(prefixComment)
	it = txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		var comment model.Comment
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &comment)
		}); err != nil {
			continue
		}
		b.commentCount++
		b.indexCommentForFTS(&comment)
	}

	// Count user profiles
	opts.Prefix = []byte(prefixUser)
	it = txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		b.userCount++
	}
}

// Close releases all resources held by the backend.
func (b *BadgerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}

	err := b.db.Close()
	b.db = nil
	b.initialized = false
	return err
}

// indexPostForFTS adds a post's title and selftext to the FTS index.
func (b *BadgerBackend) indexPostForFTS(post *model.Post) {
	key := prefixPost + post.ID

	tokens := tokenizeForFTS(post.Title)
	for _, token := range tokens {
		b.ftsIndex[token] = append(b.ftsIndex[token], key)
	}

	// Index by selftext (first 500 chars)
	if len(post.SelfText) > 0 {
		text := post.SelfText
		if len(text) > 500 {
			text = text[:500]
		}
		tokens = tokenizeForFTS(text)
		for _, token := range tokens {
			b.ftsIndex[token] = append(b.ftsIndex[token], key)
		}
	}
}

// indexCommentForFTS adds a comment's body to the FTS index.
func (b *BadgerBackend) indexCommentForFTS(comment *model.Comment) {
	key := prefixComment + comment.ID

	body := comment.Body
	if len(body) > 500 {
		body = body[:500]
	}
	tokens := tokenizeForFTS(body)
	for _, token := range tokens {
		b.ftsIndex[token] = append(b.ftsIndex[token], key)
	}
}

// tokenizeForFTS splits text into searchable tokens.
func tokenizeForFTS(text string) []string {
	text = strings.ToLower(text)
	// Split on non-alphanumeric characters
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
	// Filter out very short tokens
	result := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if len(t) >= 2 {
			result = append(result, t)
		}
	}
	return result
}

// AddPosts upserts posts into the archive.
func (b *BadgerBackend) AddPosts(ctx context.Context, posts []model.Post) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	txn := b.db.NewTransaction(true)
	defer txn.Discard()

	for i := range posts {
		post := &posts[i]

		data, err := json.Marshal(post)
		if err != nil {
			return fmt.Errorf("marshaling post: %w", err)
		}

		key := []byte(prefixPost + post.ID)
		fresh, err := b.isNewKey(txn, key)
		if err != nil {
			return err
		}
		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("setting post: %w", err)
		}
		if fresh {
			b.postCount++
		}
		b.indexPostForFTS(post)
	}

	return txn.Commit()
}

// AddComments upserts comments into the archive.
func (b *BadgerBackend) AddComments(ctx context.Context, comments []model.Comment) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	txn := b.db.NewTransaction(true)
	defer txn.Discard()

	for i := range comments {
		comment := &comments[i]

		data, err := json.Marshal(comment)
		if err != nil {
			return fmt.Errorf("marshaling comment: %w", err)
		}

		key := []byte(prefixComment + comment.ID)
		fresh, err := b.isNewKey(txn, key)
		if err != nil {
			return err
		}
		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("setting comment: %w", err)
		}
		if fresh {
			b.commentCount++
		}
		b.indexCommentForFTS(comment)
	}

	return txn.Commit()
}

// AddUsers upserts user profiles into the archive.
func (b *BadgerBackend) AddUsers(ctx context.Context, users []model.User) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	txn := b.db.NewTransaction(true)
	defer txn.Discard()

	for i := range users {
		user := &users[i]

		data, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("marshaling user: %w", err)
		}

		key := []byte(prefixUser + user.ID)
		fresh, err := b.isNewKey(txn, key)
		if err != nil {
			return err
		}
		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("setting user: %w", err)
		}
		if fresh {
			b.userCount++
		}
	}

	return txn.Commit()
}

func (b *BadgerBackend) isNewKey(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking key: %w", err)
	}
	return false, nil
}

// GetPost returns a single post by id, or nil if not found.
func (b *BadgerBackend) GetPost(ctx context.Context, id string) (*model.Post, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var post model.Post
	found, err := b.getJSON(prefixPost+id, &post)
	if err != nil || !found {
		return nil, err
	}
	return &post, nil
}

// GetComment returns a single comment by id, or nil if not found.
func (b *BadgerBackend) GetComment(ctx context.Context, id string) (*model.Comment, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var comment model.Comment
	found, err := b.getJSON(prefixComment+id, &comment)
	if err != nil || !found {
		return nil, err
	}
	return &comment, nil
}

// GetUser returns a single user profile by id, or nil if not found.
func (b *BadgerBackend) GetUser(ctx context.Context, id string) (*model.User, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var user model.User
	found, err := b.getJSON(prefixUser+id, &user)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

func (b *BadgerBackend) getJSON(key string, v any) (bool, error) {
	txn := b.db.NewTransaction(false)
	defer txn.Discard()

	item, err := txn.Get([]byte(key))
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("getting %s: %w", key, err)
	}

	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	}); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}

	return true, nil
}

// Stats returns archive item counts.
func (b *BadgerBackend) Stats(ctx context.Context) (Stats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return Stats{
		Posts:    b.postCount,
		Comments: b.commentCount,
		Users:    b.userCount,
	}, nil
}

// Search performs full-text search over post titles, selftexts, and comment
// bodies.
func (b *BadgerBackend) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.ftsIndex == nil {
		return []SearchResult{}, nil
	}

	// Tokenize query
	queryTokens := tokenizeForFTS(query)
	if len(queryTokens) == 0 {
		return []SearchResult{}, nil
	}

	// Find matching item keys
	itemSet := make(map[string]int) // itemKey -> score (token matches)
	for _, token := range queryTokens {
		if keys, ok := b.ftsIndex[token]; ok {
			for _, key := range keys {
				itemSet[key]++
			}
		}
	}

	if len(itemSet) == 0 {
		return []SearchResult{}, nil
	}

	// Fetch matching items and build results
	results := make([]SearchResult, 0, len(itemSet))
	for key, score := range itemSet {
		result, ok := b.loadResult(key)
		if !ok {
			continue
		}
		result.Score = float64(score)
		results = append(results, result)
	}

	// Sort by score descending, id ascending for stable output
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

func (b *BadgerBackend) loadResult(key string) (SearchResult, bool) {
	switch {
	case strings.HasPrefix(key, prefixPost):
		var post model.Post
		found, err := b.getJSON(key, &post)
		if err != nil || !found {
			return SearchResult{}, false
		}
		return SearchResult{
			ID:      post.ID,
			Kind:    KindPost,
			Author:  post.AuthorName,
			Title:   post.Title,
			Snippet: snippet(post.SelfText),
		}, true

	case strings.HasPrefix(key, prefixComment):
		var comment model.Comment
		found, err := b.getJSON(key, &comment)
		if err != nil || !found {
			return SearchResult{}, false
		}
		return SearchResult{
			ID:      comment.ID,
			Kind:    KindComment,
			Author:  comment.AuthorName,
			Snippet: snippet(comment.Body),
		}, true
	}

	return SearchResult{}, false
}

func snippet(text string) string {
	if len(text) > 200 {
		return text[:200]
	}
	return text
}
