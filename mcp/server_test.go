package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelihno/reddit-film-communities/internal/model"
	"github.com/pavelihno/reddit-film-communities/internal/network"
	"github.com/pavelihno/reddit-film-communities/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	ctx := context.Background()
	archive := storage.NewMemoryBackend()

	require.NoError(t, archive.AddPosts(ctx, []model.Post{
		{
			ID: "p1", Title: "Tarkovsky long takes", AuthorID: "u1",
			AuthorName: "alice", Subreddit: "TrueFilm", Score: 40,
			UpvoteRatio: 0.95, NumComments: 2, SelfText: "Mirror is full of them",
		},
	}))
	require.NoError(t, archive.AddComments(ctx, []model.Comment{
		{ID: "c1", PostID: "p1", AuthorID: "u2", AuthorName: "bob", Body: "Stalker has the best long takes"},
	}))
	require.NoError(t, archive.AddUsers(ctx, []model.User{
		{ID: "u1", Username: "alice", LinkKarma: 100, CommentKarma: 900},
	}))

	edges := []network.Edge{
		{FromUserID: "u2", ToUserID: "u1", Type: network.InteractionCommentOnPost, Weight: 3, FirstInteraction: 100},
		{FromUserID: "u3", ToUserID: "u2", Type: network.InteractionReplyToComment, Weight: 1, FirstInteraction: 200},
	}

	return NewServer(archive, edges)
}

func TestNewServer(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)

	assert.NotNil(t, server)
	assert.NotNil(t, server.archive)
}

func TestServer_Tools(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)

	t.Run("ListTools", func(t *testing.T) {
		tools := server.ListTools()

		toolNames := make(map[string]bool)
		for _, tool := range tools {
			toolNames[tool.Name] = true
			assert.NotEmpty(t, tool.Description)
			assert.NotNil(t, tool.InputSchema)
		}

		expectedTools := []string{
			"reddit_search",
			"reddit_post",
			"reddit_user",
			"reddit_network_stats",
		}
		for _, name := range expectedTools {
			assert.True(t, toolNames[name], "missing tool %s", name)
		}
	})

	t.Run("Search", func(t *testing.T) {
		result, err := server.CallTool(t.Context(), "reddit_search", map[string]any{"query": "long takes"})
		require.NoError(t, err)
		assert.Contains(t, result, "Tarkovsky long takes")
		assert.Contains(t, result, "bob")
	})

	t.Run("SearchNoResults", func(t *testing.T) {
		result, err := server.CallTool(t.Context(), "reddit_search", map[string]any{"query": "nosuchword"})
		require.NoError(t, err)
		assert.Equal(t, "No results found", result)
	})

	t.Run("SearchEmptyQuery", func(t *testing.T) {
		result, err := server.CallTool(t.Context(), "reddit_search", map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, "No query provided", result)
	})

	t.Run("Post", func(t *testing.T) {
		result, err := server.CallTool(t.Context(), "reddit_post", map[string]any{"post_id": "p1"})
		require.NoError(t, err)
		assert.Contains(t, result, "Tarkovsky long takes")
		assert.Contains(t, result, "r/TrueFilm")
		assert.Contains(t, result, "Mirror is full of them")
	})

	t.Run("PostNotFound", func(t *testing.T) {
		result, err := server.CallTool(t.Context(), "reddit_post", map[string]any{"post_id": "missing"})
		require.NoError(t, err)
		assert.Contains(t, result, "not found")
	})

	t.Run("User", func(t *testing.T) {
		result, err := server.CallTool(t.Context(), "reddit_user", map[string]any{"user_id": "u1"})
		require.NoError(t, err)
		assert.Contains(t, result, "u/alice")
		assert.Contains(t, result, "**Incoming:** 3")
		assert.Contains(t, result, "u2 (3 interactions)")
	})

	t.Run("UserWithoutProfile", func(t *testing.T) {
		result, err := server.CallTool(t.Context(), "reddit_user", map[string]any{"user_id": "u3"})
		require.NoError(t, err)
		assert.Contains(t, result, "Profile not archived")
		assert.Contains(t, result, "**Outgoing:** 1")
	})

	t.Run("NetworkStats", func(t *testing.T) {
		result, err := server.CallTool(t.Context(), "reddit_network_stats", map[string]any{})
		require.NoError(t, err)
		assert.Contains(t, result, "**Users:** 3")
		assert.Contains(t, result, "**Edges:** 2")
		assert.Contains(t, result, "**Interactions:** 4")
		assert.Contains(t, result, "comment_on_post: 3")
		assert.Contains(t, result, "u2 -> u1")
	})

	t.Run("UnknownTool", func(t *testing.T) {
		_, err := server.CallTool(t.Context(), "reddit_bogus", map[string]any{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown tool")
	})
}

func TestServer_Resources(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)

	t.Run("ListResources", func(t *testing.T) {
		resources := server.ListResources()
		require.Len(t, resources, 2)

		uris := []string{resources[0].URI, resources[1].URI}
		assert.Contains(t, uris, "reddit://overview")
		assert.Contains(t, uris, "reddit://network-schema")
	})

	t.Run("Overview", func(t *testing.T) {
		content, err := server.ReadResource(t.Context(), "reddit://overview")
		require.NoError(t, err)
		assert.Contains(t, content, "**Posts:** 1")
		assert.Contains(t, content, "**Comments:** 1")
		assert.Contains(t, content, "**Network edges:** 2")
	})

	t.Run("NetworkSchema", func(t *testing.T) {
		content, err := server.ReadResource(t.Context(), "reddit://network-schema")
		require.NoError(t, err)
		assert.Contains(t, content, "from_user_id")
		assert.Contains(t, content, "comment_on_post")
	})

	t.Run("UnknownURI", func(t *testing.T) {
		_, err := server.ReadResource(t.Context(), "reddit://bogus")
		require.Error(t, err)
	})
}

func TestServer_Run(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)

	requests := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"reddit_network_stats","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"nope"}`,
	}, "\n") + "\n"

	var out bytes.Buffer
	err := server.Run(t.Context(), strings.NewReader(requests), &out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)

	var initResp map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &initResp))
	result := initResp["result"].(map[string]any)
	serverInfo := result["serverInfo"].(map[string]any)
	assert.Equal(t, "reddit-film-communities", serverInfo["name"])

	var toolsResp map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &toolsResp))
	tools := toolsResp["result"].(map[string]any)["tools"].([]any)
	assert.Len(t, tools, 4)

	var callResp map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &callResp))
	content := callResp["result"].(map[string]any)["content"].([]any)
	text := content[0].(map[string]any)["text"].(string)
	assert.Contains(t, text, "Interaction Network")

	var errResp map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[3]), &errResp))
	assert.NotNil(t, errResp["error"])
}
