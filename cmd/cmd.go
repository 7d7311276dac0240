// Package cmd provides CLI command implementations for the collector.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"github.com/pavelihno/reddit-film-communities/internal/dataset"
	"github.com/pavelihno/reddit-film-communities/internal/model"
	"github.com/pavelihno/reddit-film-communities/internal/network"
	"github.com/pavelihno/reddit-film-communities/internal/reddit"
	"github.com/pavelihno/reddit-film-communities/internal/storage"
	"github.com/pavelihno/reddit-film-communities/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

// FetchCmd collects a subreddit's discussions and builds its datasets.
type FetchCmd struct {
	Subreddit   string `arg:"" help:"Subreddit to collect (without the r/ prefix)"`
	Sort        string `default:"hot" enum:"hot,new,top,rising,controversial" help:"Listing sort order"`
	TimeFilter  string `default:"all" enum:"hour,day,week,month,year,all" help:"Time window for top/controversial listings"`
	Limit       int    `short:"n" default:"100" help:"Maximum posts to fetch"`
	MaxComments int    `default:"0" help:"Maximum comments per post (0 = no limit)"`
	SkipUsers   bool   `help:"Skip fetching user profiles"`
	Refresh     bool   `help:"Refetch even if datasets already exist"`
	Snapshot    bool   `help:"Commit the datasets to a local git repository after collection"`
	DataDir     string `default:"data" help:"Root data directory"`
	UserAgent   string `env:"REDDIT_USER_AGENT" help:"HTTP User-Agent for Reddit requests"`
}

// Run executes the fetch command.
func (c *FetchCmd) Run() error {
	ctx := context.Background()
	store := dataset.NewStore(filepath.Join(c.DataDir, c.Subreddit))

	client := reddit.NewClient(&reddit.Config{UserAgent: c.UserAgent})
	defer func() { _ = client.Close() }()

	var (
		posts    []model.Post
		comments []model.Comment
		err      error
	)

	if !c.Refresh && store.Exists(dataset.PostsFile) && store.Exists(dataset.CommentsFile) {
		color.Yellow("Reusing datasets in %s (use --refresh to refetch)", store.Dir())

		if posts, err = store.ReadPosts(); err != nil {
			return err
		}
		if comments, err = store.ReadComments(); err != nil {
			return err
		}
	} else {
		color.Green("Fetching r/%s (%s, limit %d)", c.Subreddit, c.Sort, c.Limit)

		posts, err = client.FetchPosts(ctx, c.Subreddit, reddit.ListingOptions{
			Sort:       reddit.SortMethod(c.Sort),
			TimeFilter: reddit.TimeFilter(c.TimeFilter),
			Limit:      c.Limit,
		})
		if err != nil {
			return fmt.Errorf("fetching posts: %w", err)
		}

		progress := func(done, total int) {
			fmt.Printf("\r\033[KFetching comments (%d/%d posts)", done, total)
		}
		comments, err = client.FetchComments(ctx, posts, c.MaxComments, progress)
		if err != nil {
			fmt.Println()
			return err
		}
		fmt.Println() // Newline after progress

		if err := store.WritePosts(posts); err != nil {
			return err
		}
		if err := store.WriteComments(comments); err != nil {
			return err
		}
	}

	var users []model.User
	if !c.SkipUsers {
		fmt.Println("Fetching user profiles...")

		users, err = client.FetchUsers(ctx, authorNames(posts, comments))
		if err != nil {
			return fmt.Errorf("fetching users: %w", err)
		}
		if err := store.WriteUsers(users); err != nil {
			return err
		}
		if err := store.SaveJSON(dataset.UsersJSONFile, users); err != nil {
			return err
		}
	}

	edges := network.Build(comments, posts)
	if err := store.WriteEdges(edges); err != nil {
		return err
	}

	// Archive everything for later search
	archive := storage.NewBadgerBackend()
	if err := archive.Initialize(archivePath(c.DataDir), false); err != nil {
		return fmt.Errorf("initializing archive: %w", err)
	}
	defer func() { _ = archive.Close() }()

	if err := archive.AddPosts(ctx, posts); err != nil {
		return fmt.Errorf("archiving posts: %w", err)
	}
	if err := archive.AddComments(ctx, comments); err != nil {
		return fmt.Errorf("archiving comments: %w", err)
	}
	if err := archive.AddUsers(ctx, users); err != nil {
		return fmt.Errorf("archiving users: %w", err)
	}

	meta := dataset.Meta{
		Subreddit: c.Subreddit,
		Sort:      c.Sort,
		Posts:     len(posts),
		Comments:  len(comments),
		Users:     len(users),
		Edges:     len(edges),
		FetchedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := store.WriteMeta(meta); err != nil {
		return err
	}

	if c.Snapshot {
		hash, err := dataset.Snapshot(store.Dir(), fmt.Sprintf("collect r/%s at %s", c.Subreddit, meta.FetchedAt))
		if err != nil {
			return err
		}
		if hash != "" {
			fmt.Printf("Snapshot committed: %s\n", hash[:12])
		}
	}

	color.Green("\n✓ Collection complete")
	fmt.Printf("  Posts:     %d\n", len(posts))
	fmt.Printf("  Comments:  %d\n", len(comments))
	fmt.Printf("  Users:     %d\n", len(users))
	fmt.Printf("  Edges:     %d\n", len(edges))

	return nil
}

// NetworkCmd rebuilds the interaction network from local datasets.
type NetworkCmd struct {
	Subreddit string `arg:"" help:"Subreddit whose datasets to use"`
	DataDir   string `default:"data" help:"Root data directory"`
}

// Run executes the network command.
func (c *NetworkCmd) Run() error {
	store := dataset.NewStore(filepath.Join(c.DataDir, c.Subreddit))

	edges, err := rebuildNetwork(store)
	if err != nil {
		return err
	}

	color.Green("✓ Network rebuilt")
	fmt.Printf("  Edges: %d\n", len(edges))

	return nil
}

// UsersCmd fetches profiles for every author in the local datasets.
type UsersCmd struct {
	Subreddit string `arg:"" help:"Subreddit whose datasets to use"`
	DataDir   string `default:"data" help:"Root data directory"`
	UserAgent string `env:"REDDIT_USER_AGENT" help:"HTTP User-Agent for Reddit requests"`
}

// Run executes the users command.
func (c *UsersCmd) Run() error {
	ctx := context.Background()
	store := dataset.NewStore(filepath.Join(c.DataDir, c.Subreddit))

	posts, err := store.ReadPosts()
	if err != nil {
		return err
	}
	comments, err := store.ReadComments()
	if err != nil {
		return err
	}

	client := reddit.NewClient(&reddit.Config{UserAgent: c.UserAgent})
	defer func() { _ = client.Close() }()

	users, err := client.FetchUsers(ctx, authorNames(posts, comments))
	if err != nil {
		return fmt.Errorf("fetching users: %w", err)
	}

	if err := store.WriteUsers(users); err != nil {
		return err
	}
	if err := store.SaveJSON(dataset.UsersJSONFile, users); err != nil {
		return err
	}

	color.Green("✓ Fetched %d user profiles", len(users))
	return nil
}

// SearchCmd searches the discussion archive.
type SearchCmd struct {
	Query   string `arg:"" help:"Search query"`
	Limit   int    `short:"n" default:"20" help:"Maximum results"`
	DataDir string `default:"data" help:"Root data directory"`
}

// Run executes the search command.
func (c *SearchCmd) Run() error {
	ctx := context.Background()

	archive, err := loadArchive(c.DataDir)
	if err != nil {
		return err
	}
	defer func() { _ = archive.Close() }()

	results, err := archive.Search(ctx, c.Query, c.Limit)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results found")
		return nil
	}

	for i, r := range results {
		switch r.Kind {
		case storage.KindPost:
			fmt.Printf("\n%d. %s (post %s)\n", i+1, r.Title, r.ID)
		default:
			fmt.Printf("\n%d. comment %s\n", i+1, r.ID)
		}
		fmt.Printf("   Author: %s\n", r.Author)
		fmt.Printf("   Score: %.3f\n", r.Score)
		if r.Snippet != "" {
			fmt.Printf("   %s\n", r.Snippet[:min(200, len(r.Snippet))])
		}
	}

	return nil
}

// WatchCmd watches a subreddit's datasets and rebuilds the network on change.
type WatchCmd struct {
	Subreddit string `arg:"" help:"Subreddit whose datasets to watch"`
	DataDir   string `default:"data" help:"Root data directory"`
}

// Run executes the watch command.
func (c *WatchCmd) Run() error {
	store := dataset.NewStore(filepath.Join(c.DataDir, c.Subreddit))
	if !store.Exists(dataset.PostsFile) {
		return fmt.Errorf("no datasets found in %s. Run 'fetch' first", store.Dir())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle Ctrl+C
	go func() {
		<-osSignalChannel()
		fmt.Println("\nStopping watch mode...")
		cancel()
	}()

	err := dataset.Watch(ctx, store, func() error {
		edges, err := rebuildNetwork(store)
		if err != nil {
			return err
		}
		fmt.Printf("Rebuilt network: %d edges\n", len(edges))
		return nil
	})
	if err != nil && err != context.Canceled {
		return fmt.Errorf("watch error: %w", err)
	}

	fmt.Println("Watch mode stopped.")
	return nil
}

// StatusCmd shows collection status for one subreddit or all of them.
type StatusCmd struct {
	Subreddit string `arg:"" optional:"" help:"Subreddit to inspect (default: all)"`
	DataDir   string `default:"data" help:"Root data directory"`
}

// Run executes the status command.
func (c *StatusCmd) Run() error {
	if c.Subreddit != "" {
		store := dataset.NewStore(filepath.Join(c.DataDir, c.Subreddit))
		meta, err := store.ReadMeta()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("no datasets found for r/%s. Run 'fetch' first", c.Subreddit)
			}
			return err
		}
		printMeta(meta)
		return nil
	}

	entries, err := os.ReadDir(c.DataDir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("No collected subreddits found")
			return nil
		}
		return fmt.Errorf("reading data directory: %w", err)
	}

	found := false
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		store := dataset.NewStore(filepath.Join(c.DataDir, entry.Name()))
		meta, err := store.ReadMeta()
		if err != nil {
			continue
		}

		found = true
		fmt.Println()
		printMeta(meta)
	}

	if !found {
		fmt.Println("No collected subreddits found")
	}

	return nil
}

func printMeta(meta dataset.Meta) {
	fmt.Printf("r/%s\n", meta.Subreddit)
	fmt.Printf("  Sort:      %s\n", meta.Sort)
	fmt.Printf("  Posts:     %d\n", meta.Posts)
	fmt.Printf("  Comments:  %d\n", meta.Comments)
	fmt.Printf("  Users:     %d\n", meta.Users)
	fmt.Printf("  Edges:     %d\n", meta.Edges)
	fmt.Printf("  Fetched:   %s\n", meta.FetchedAt)
}

// CleanCmd deletes a subreddit's datasets.
type CleanCmd struct {
	Subreddit string `arg:"" help:"Subreddit whose datasets to delete"`
	Force     bool   `short:"f" help:"Skip confirmation"`
	DataDir   string `default:"data" help:"Root data directory"`
}

// Run executes the clean command.
func (c *CleanCmd) Run() error {
	dir := filepath.Join(c.DataDir, c.Subreddit)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("no datasets found at %s. Nothing to clean", dir)
	}

	if !c.Force {
		fmt.Printf("Delete datasets at %s? [y/N] ", dir)
		var response string
		_, _ = fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted")
			return nil
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("deleting datasets: %w", err)
	}

	color.Green("Deleted %s", dir)
	return nil
}

// MCPCmd starts the MCP server.
type MCPCmd struct {
	Subreddit string `arg:"" optional:"" help:"Subreddit whose network to expose (default: all)"`
	DataDir   string `default:"data" help:"Root data directory"`
}

// Run executes the mcp command.
func (c *MCPCmd) Run() error {
	ctx := context.Background()

	archive, err := loadArchive(c.DataDir)
	if err != nil {
		return err
	}
	defer func() { _ = archive.Close() }()

	edges, err := loadEdges(c.DataDir, c.Subreddit)
	if err != nil {
		return err
	}

	server := mcp.NewServer(archive, edges)

	// Note: No output to stderr - MCP server uses stdio for JSON-RPC only
	return server.Run(ctx, os.Stdin, os.Stdout)
}

// ServeCmd starts the MCP server with optional dataset watching.
type ServeCmd struct {
	Subreddit string `arg:"" optional:"" help:"Subreddit whose network to expose (default: all)"`
	Watch     bool   `short:"w" help:"Rebuild the network when datasets change"`
	DataDir   string `default:"data" help:"Root data directory"`
}

// Run executes the serve command.
func (c *ServeCmd) Run() error {
	ctx := context.Background()

	archive, err := loadArchive(c.DataDir)
	if err != nil {
		return err
	}
	defer func() { _ = archive.Close() }()

	edges, err := loadEdges(c.DataDir, c.Subreddit)
	if err != nil {
		return err
	}

	server := mcp.NewServer(archive, edges)

	if c.Watch && c.Subreddit != "" {
		fmt.Fprintln(os.Stderr, "Starting MCP server with watch mode...")

		store := dataset.NewStore(filepath.Join(c.DataDir, c.Subreddit))

		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		go func() {
			err := dataset.Watch(watchCtx, store, func() error {
				_, err := rebuildNetwork(store)
				return err
			})
			if err != nil && err != context.Canceled {
				fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)
			}
		}()
	} else {
		fmt.Fprintln(os.Stderr, "Starting MCP server...")
	}

	return server.Run(ctx, os.Stdin, os.Stdout)
}

// Helper functions

// osSignalChannel returns a channel that receives OS signals for graceful shutdown.
func osSignalChannel() <-chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sigChan
}

func archivePath(dataDir string) string {
	return filepath.Join(dataDir, ".archive")
}

func loadArchive(dataDir string) (*storage.BadgerBackend, error) {
	path := archivePath(dataDir)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("no archive found at %s. Run 'fetch' first", path)
	}

	archive := storage.NewBadgerBackend()
	if err := archive.Initialize(path, true); err != nil {
		return nil, fmt.Errorf("initializing archive: %w", err)
	}

	return archive, nil
}

// loadEdges reads the edge dataset of one subreddit, or of every collected
// subreddit when none is named.
func loadEdges(dataDir, subreddit string) ([]network.Edge, error) {
	if subreddit != "" {
		return dataset.NewStore(filepath.Join(dataDir, subreddit)).ReadEdges()
	}

	entries, err := os.ReadDir(dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading data directory: %w", err)
	}

	var edges []network.Edge
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		store := dataset.NewStore(filepath.Join(dataDir, entry.Name()))
		if !store.Exists(dataset.EdgesFile) {
			continue
		}

		batch, err := store.ReadEdges()
		if err != nil {
			return nil, err
		}
		edges = append(edges, batch...)
	}

	return edges, nil
}

// rebuildNetwork recomputes the edge dataset from the stored posts and
// comments.
func rebuildNetwork(store *dataset.Store) ([]network.Edge, error) {
	posts, err := store.ReadPosts()
	if err != nil {
		return nil, err
	}
	comments, err := store.ReadComments()
	if err != nil {
		return nil, err
	}

	edges := network.Build(comments, posts)
	if err := store.WriteEdges(edges); err != nil {
		return nil, err
	}

	return edges, nil
}

// authorNames collects the display names of every post and comment author.
func authorNames(posts []model.Post, comments []model.Comment) []string {
	names := make([]string, 0, len(posts)+len(comments))
	for _, p := range posts {
		names = append(names, p.AuthorName)
	}
	for _, c := range comments {
		names = append(names, c.AuthorName)
	}
	return names
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// CLI is the root Kong command structure.
type CLI struct {
	Version kong.VersionFlag `help:"Show version information"`

	// Commands
	Fetch   FetchCmd   `cmd:"" help:"Collect a subreddit's posts, comments, and users"`
	Network NetworkCmd `cmd:"" help:"Rebuild the interaction network from local datasets"`
	Users   UsersCmd   `cmd:"" help:"Fetch profiles for every author in the datasets"`
	Search  SearchCmd  `cmd:"" help:"Search the discussion archive"`
	Watch   WatchCmd   `cmd:"" help:"Watch datasets and rebuild the network on change"`
	Status  StatusCmd  `cmd:"" help:"Show collection status"`
	Clean   CleanCmd   `cmd:"" help:"Delete a subreddit's datasets"`
	MCP     MCPCmd     `cmd:"" help:"Start MCP server (stdio transport)"`
	Serve   ServeCmd   `cmd:"" help:"Start MCP server with optional dataset watching"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	kongCtx := kong.Parse(c,
		kong.Name("reddit-film-communities"),
		kong.Description("Reddit discussion collector and interaction network builder"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)

	return kongCtx.Run()
}
