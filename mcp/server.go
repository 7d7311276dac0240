// Package mcp provides the MCP (Model Context Protocol) server for the
// discussion archive and interaction network.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pavelihno/reddit-film-communities/internal/model"
	"github.com/pavelihno/reddit-film-communities/internal/network"
	"github.com/pavelihno/reddit-film-communities/internal/storage"
)

// Server represents the MCP server.
type Server struct {
	archive Archive
	edges   []network.Edge
	server  *mcp.Server
}

// Archive defines the slice of the archive backend the server needs.
type Archive interface {
	Search(ctx context.Context, query string, limit int) ([]storage.SearchResult, error)
	GetPost(ctx context.Context, id string) (*model.Post, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	Stats(ctx context.Context) (storage.Stats, error)
}

// Tool represents an MCP tool.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Resource represents an MCP resource.
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
}

// NewServer creates a new MCP server over the archive and the current
// interaction network.
func NewServer(archive Archive, edges []network.Edge) *Server {
	s := &Server{
		archive: archive,
		edges:   edges,
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "reddit-film-communities",
		Version: "0.1.0",
	}, nil)

	return s
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []Tool {
	return []Tool{
		{
			Name:        "reddit_search",
			Description: "Full-text search over archived posts and comments. Returns ranked matches.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"query": {Type: "string", Description: "Search query text"},
					"limit": {Type: "integer", Description: "Maximum number of results"},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        "reddit_post",
			Description: "Look up an archived post by id, including score, author, and selftext.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"post_id": {Type: "string", Description: "Post id (without the t3_ prefix)"},
				},
				Required: []string{"post_id"},
			},
		},
		{
			Name:        "reddit_user",
			Description: "Look up a user's profile plus their position in the interaction network: who they reply to and who replies to them.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"user_id": {Type: "string", Description: "User id (without the t2_ prefix)"},
				},
				Required: []string{"user_id"},
			},
		},
		{
			Name:        "reddit_network_stats",
			Description: "Summary statistics of the interaction network: node/edge counts, interaction type breakdown, heaviest edges.",
			InputSchema: &jsonschema.Schema{
				Type:       "object",
				Properties: map[string]*jsonschema.Schema{},
			},
		},
	}
}

// ListResources returns all registered resources.
func (s *Server) ListResources() []Resource {
	return []Resource{
		{
			URI:         "reddit://overview",
			Name:        "Archive Overview",
			Description: "High-level statistics about the archived discussions",
			MimeType:    "text/plain",
		},
		{
			URI:         "reddit://network-schema",
			Name:        "Network Schema",
			Description: "Description of the interaction network edge dataset",
			MimeType:    "text/plain",
		},
	}
}

// CallTool executes a tool with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case "reddit_search":
		query, _ := args["query"].(string)
		limit, _ := args["limit"].(float64)
		if limit == 0 {
			limit = 20
		}
		return s.handleSearch(ctx, query, int(limit))
	case "reddit_post":
		postID, _ := args["post_id"].(string)
		return s.handlePost(ctx, postID)
	case "reddit_user":
		userID, _ := args["user_id"].(string)
		return s.handleUser(ctx, userID)
	case "reddit_network_stats":
		return s.handleNetworkStats(), nil
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// ReadResource reads a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	switch uri {
	case "reddit://overview":
		return s.getOverview(ctx), nil
	case "reddit://network-schema":
		return getNetworkSchema(), nil
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
}

// Run starts the MCP server with stdio transport.
func (s *Server) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	if stdin == nil || stdout == nil {
		return fmt.Errorf("stdin and stdout must not be nil")
	}

	reader := bufio.NewReader(stdin)
	encoder := json.NewEncoder(stdout)
	// Note: Do NOT use SetIndent - MCP protocol requires compact JSON (one line per message)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		// Parse JSON-RPC request
		var req map[string]any
		if err := json.Unmarshal(line, &req); err != nil {
			continue
		}

		// Handle request
		resp := s.handleRequest(ctx, req)
		if err := encoder.Encode(resp); err != nil {
			return err
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, req map[string]any) map[string]any {
	method, _ := req["method"].(string)
	id := req["id"]

	switch method {
	case "initialize":
		return s.handleInitialize(id)
	case "tools/list":
		return s.handleToolsList(id)
	case "tools/call":
		return s.handleToolsCall(ctx, id, req)
	case "resources/list":
		return s.handleResourcesList(id)
	case "resources/read":
		return s.handleResourcesRead(ctx, id, req)
	default:
		return errorResponse(id, -32601, "Method not found: "+method)
	}
}

func (s *Server) handleInitialize(id any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"protocolVersion": "2024-11-05",
			"serverInfo": map[string]any{
				"name":    "reddit-film-communities",
				"version": "0.1.0",
			},
			"capabilities": map[string]any{
				"tools": map[string]any{
					"listChanged": false,
				},
				"resources": map[string]any{
					"listChanged": false,
				},
			},
		},
	}
}

func (s *Server) handleToolsList(id any) map[string]any {
	tools := s.ListTools()
	toolList := make([]map[string]any, len(tools))
	for i, tool := range tools {
		schema, _ := json.Marshal(tool.InputSchema)
		var schemaMap map[string]any
		json.Unmarshal(schema, &schemaMap)

		toolList[i] = map[string]any{
			"name":        tool.Name,
			"description": tool.Description,
			"inputSchema": schemaMap,
		}
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"tools": toolList,
		},
	}
}

func (s *Server) handleToolsCall(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, -32602, "Invalid params")
	}

	name, _ := params["name"].(string)
	args, _ := params["arguments"].(map[string]any)

	result, err := s.CallTool(ctx, name, args)
	if err != nil {
		return errorResponse(id, -32000, err.Error())
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"content": []map[string]any{
				{
					"type": "text",
					"text": result,
				},
			},
		},
	}
}

func (s *Server) handleResourcesList(id any) map[string]any {
	resources := s.ListResources()
	resourceList := make([]map[string]any, len(resources))
	for i, res := range resources {
		resourceList[i] = map[string]any{
			"uri":         res.URI,
			"name":        res.Name,
			"description": res.Description,
			"mimeType":    res.MimeType,
		}
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"resources": resourceList,
		},
	}
}

func (s *Server) handleResourcesRead(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, -32602, "Invalid params")
	}

	uri, _ := params["uri"].(string)

	content, err := s.ReadResource(ctx, uri)
	if err != nil {
		return errorResponse(id, -32000, err.Error())
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"contents": []map[string]any{
				{
					"uri":      uri,
					"mimeType": "text/plain",
					"text":     content,
				},
			},
		},
	}
}

// Tool Handlers

func (s *Server) handleSearch(ctx context.Context, query string, limit int) (string, error) {
	if query == "" {
		return "No query provided", nil
	}

	results, err := s.archive.Search(ctx, query, limit)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "No results found", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d results for '%s':\n\n", len(results), query))

	for i, r := range results {
		switch r.Kind {
		case storage.KindPost:
			sb.WriteString(fmt.Sprintf("%d. **%s** (post %s by %s)\n", i+1, r.Title, r.ID, r.Author))
		default:
			sb.WriteString(fmt.Sprintf("%d. comment %s by %s\n", i+1, r.ID, r.Author))
		}
		sb.WriteString(fmt.Sprintf("   Score: %.3f\n", r.Score))
		if r.Snippet != "" {
			snippet := r.Snippet
			if len(snippet) > 200 {
				snippet = snippet[:200] + "..."
			}
			sb.WriteString(fmt.Sprintf("   %s\n", snippet))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Next: Use `reddit_post` or `reddit_user` for the full picture.")

	return sb.String(), nil
}

func (s *Server) handlePost(ctx context.Context, postID string) (string, error) {
	if postID == "" {
		return "No post id provided", nil
	}

	post, err := s.archive.GetPost(ctx, postID)
	if err != nil {
		return "", err
	}
	if post == nil {
		return fmt.Sprintf("Post '%s' not found in archive", postID), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", post.Title))
	sb.WriteString(fmt.Sprintf("**Author:** %s\n", post.AuthorName))
	sb.WriteString(fmt.Sprintf("**Subreddit:** r/%s\n", post.Subreddit))
	sb.WriteString(fmt.Sprintf("**Score:** %d (%.0f%% upvoted)\n", post.Score, post.UpvoteRatio*100))
	sb.WriteString(fmt.Sprintf("**Comments:** %d\n", post.NumComments))
	if post.Flair != "" {
		sb.WriteString(fmt.Sprintf("**Flair:** %s\n", post.Flair))
	}
	if post.Permalink != "" {
		sb.WriteString(fmt.Sprintf("**Link:** %s\n", post.Permalink))
	}
	if post.SelfText != "" {
		sb.WriteString("\n")
		sb.WriteString(post.SelfText)
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

func (s *Server) handleUser(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "No user id provided", nil
	}

	var sb strings.Builder

	user, err := s.archive.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if user != nil {
		sb.WriteString(fmt.Sprintf("# u/%s\n\n", user.Username))
		sb.WriteString(fmt.Sprintf("**Karma:** %d link, %d comment\n", user.LinkKarma, user.CommentKarma))
	} else {
		sb.WriteString(fmt.Sprintf("# %s\n\nProfile not archived.\n", userID))
	}

	outgoing, incoming := 0, 0
	partners := make(map[string]int) // counterpart -> total weight
	for _, e := range s.edges {
		if e.FromUserID == userID {
			outgoing += e.Weight
			partners[e.ToUserID] += e.Weight
		}
		if e.ToUserID == userID {
			incoming += e.Weight
			partners[e.FromUserID] += e.Weight
		}
	}

	sb.WriteString("\n## Interactions\n\n")
	sb.WriteString(fmt.Sprintf("**Outgoing:** %d\n", outgoing))
	sb.WriteString(fmt.Sprintf("**Incoming:** %d\n", incoming))

	if len(partners) > 0 {
		type partner struct {
			id     string
			weight int
		}
		ranked := make([]partner, 0, len(partners))
		for id, w := range partners {
			ranked = append(ranked, partner{id, w})
		}
		sort.Slice(ranked, func(i, j int) bool {
			if ranked[i].weight != ranked[j].weight {
				return ranked[i].weight > ranked[j].weight
			}
			return ranked[i].id < ranked[j].id
		})
		if len(ranked) > 10 {
			ranked = ranked[:10]
		}

		sb.WriteString("\n## Top counterparts\n\n")
		for _, p := range ranked {
			sb.WriteString(fmt.Sprintf("- %s (%d interactions)\n", p.id, p.weight))
		}
	}

	return sb.String(), nil
}

func (s *Server) handleNetworkStats() string {
	users := make(map[string]bool)
	totalWeight := 0
	byType := make(map[network.InteractionType]int)

	for _, e := range s.edges {
		users[e.FromUserID] = true
		users[e.ToUserID] = true
		totalWeight += e.Weight
		byType[e.Type] += e.Weight
	}

	var sb strings.Builder
	sb.WriteString("# Interaction Network\n\n")
	sb.WriteString(fmt.Sprintf("**Users:** %d\n", len(users)))
	sb.WriteString(fmt.Sprintf("**Edges:** %d\n", len(s.edges)))
	sb.WriteString(fmt.Sprintf("**Interactions:** %d\n", totalWeight))

	if len(byType) > 0 {
		sb.WriteString("\n## By type\n\n")
		types := make([]network.InteractionType, 0, len(byType))
		for t := range byType {
			types = append(types, t)
		}
		sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
		for _, t := range types {
			sb.WriteString(fmt.Sprintf("- %s: %d\n", t, byType[t]))
		}
	}

	heaviest := make([]network.Edge, len(s.edges))
	copy(heaviest, s.edges)
	sort.Slice(heaviest, func(i, j int) bool { return heaviest[i].Weight > heaviest[j].Weight })
	if len(heaviest) > 5 {
		heaviest = heaviest[:5]
	}
	if len(heaviest) > 0 {
		sb.WriteString("\n## Heaviest edges\n\n")
		for _, e := range heaviest {
			sb.WriteString(fmt.Sprintf("- %s -> %s (%s, weight %d)\n", e.FromUserID, e.ToUserID, e.Type, e.Weight))
		}
	}

	return sb.String()
}

// Resources

func (s *Server) getOverview(ctx context.Context) string {
	stats, err := s.archive.Stats(ctx)
	if err != nil {
		return fmt.Sprintf("Archive unavailable: %v", err)
	}

	var sb strings.Builder
	sb.WriteString("# Discussion Archive Overview\n\n")
	sb.WriteString(fmt.Sprintf("**Posts:** %d\n", stats.Posts))
	sb.WriteString(fmt.Sprintf("**Comments:** %d\n", stats.Comments))
	sb.WriteString(fmt.Sprintf("**Users:** %d\n", stats.Users))
	sb.WriteString(fmt.Sprintf("**Network edges:** %d\n", len(s.edges)))

	return sb.String()
}

func getNetworkSchema() string {
	var sb strings.Builder
	sb.WriteString("# Interaction Network Schema\n\n")
	sb.WriteString("Directed weighted edges between users, derived from reply structure.\n\n")
	sb.WriteString("| Column | Description |\n")
	sb.WriteString("|--------|-------------|\n")
	sb.WriteString("| `from_user_id` | Account id of the replying user |\n")
	sb.WriteString("| `to_user_id` | Account id of the user being replied to |\n")
	sb.WriteString("| `interaction_type` | `comment_on_post` or `reply_to_comment` |\n")
	sb.WriteString("| `weight` | Number of interactions of this type between the pair |\n")
	sb.WriteString("| `first_interaction` | Epoch timestamp of the earliest interaction |\n")
	sb.WriteString("\n## Edge Types\n\n")
	sb.WriteString("- `comment_on_post`: top-level comment on another user's post\n")
	sb.WriteString("- `reply_to_comment`: reply to another user's comment\n")
	sb.WriteString("\nSelf-replies and interactions involving deleted accounts are excluded.\n")

	return sb.String()
}

func errorResponse(id any, code int, message string) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
}
