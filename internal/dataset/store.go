// Package dataset persists the collected discussion data as flat files.
//
// Each subreddit gets its own directory holding CSV datasets (posts,
// comments, users, edges), an optional JSON export, and a meta.json with
// collection stats. Existence checks let callers reuse files from earlier
// runs instead of refetching.
package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pavelihno/reddit-film-communities/internal/model"
	"github.com/pavelihno/reddit-film-communities/internal/network"
)

// Well-known file names inside a subreddit's data directory.
const (
	PostsFile     = "posts.csv"
	CommentsFile  = "comments.csv"
	UsersFile     = "users.csv"
	EdgesFile     = "edges.csv"
	UsersJSONFile = "users.json"
	MetaFile      = "meta.json"
)

// Store reads and writes the datasets of one subreddit directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. The directory is created lazily
// on the first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the absolute path of a dataset file.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Exists reports whether a dataset file is already present.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.Path(name))
	return err == nil
}

// Meta summarizes one collection run.
type Meta struct {
	Subreddit string `json:"subreddit"`
	Sort      string `json:"sort"`
	Posts     int    `json:"posts"`
	Comments  int    `json:"comments"`
	Users     int    `json:"users"`
	Edges     int    `json:"edges"`
	FetchedAt string `json:"fetched_at"`
}

// WriteMeta persists the collection stats as meta.json.
func (s *Store) WriteMeta(meta Meta) error {
	return s.SaveJSON(MetaFile, meta)
}

// ReadMeta loads meta.json.
func (s *Store) ReadMeta() (Meta, error) {
	var meta Meta
	if err := s.LoadJSON(MetaFile, &meta); err != nil {
		return Meta{}, err
	}
	return meta, nil
}

// SaveJSON writes v as indented JSON.
func (s *Store) SaveJSON(name string, v any) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", name, err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(s.Path(name), data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// LoadJSON reads a JSON dataset into v.
func (s *Store) LoadJSON(name string, v any) error {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	return nil
}

// CSV headers. Column order is the dataset contract; readers validate it.

var postsHeader = []string{
	"post_id", "title", "author_id", "author_name", "subreddit",
	"score", "upvote_ratio", "num_comments", "created_utc",
	"is_self", "selftext", "url", "permalink", "flair",
	"stickied", "locked", "spoiler", "nsfw",
}

var commentsHeader = []string{
	"comment_id", "post_id", "author_id", "author_name", "body",
	"score", "created_utc", "parent_id", "parent_type",
	"is_submitter", "stickied", "depth", "controversiality", "gilded",
}

var usersHeader = []string{
	"user_id", "username", "link_karma", "comment_karma", "total_karma",
	"created_utc", "is_gold", "is_mod", "is_employee", "has_verified_email",
}

var edgesHeader = []string{
	"from_user_id", "to_user_id", "interaction_type", "weight", "first_interaction",
}

// WritePosts persists the post dataset.
func (s *Store) WritePosts(posts []model.Post) error {
	rows := make([][]string, 0, len(posts))
	for _, p := range posts {
		rows = append(rows, []string{
			p.ID, p.Title, p.AuthorID, p.AuthorName, p.Subreddit,
			strconv.Itoa(p.Score),
			formatEpoch(p.UpvoteRatio),
			strconv.Itoa(p.NumComments),
			formatEpoch(p.CreatedUTC),
			strconv.FormatBool(p.IsSelf),
			p.SelfText, p.URL, p.Permalink, p.Flair,
			strconv.FormatBool(p.Stickied),
			strconv.FormatBool(p.Locked),
			strconv.FormatBool(p.Spoiler),
			strconv.FormatBool(p.NSFW),
		})
	}
	return s.writeCSV(PostsFile, postsHeader, rows)
}

// ReadPosts loads the post dataset.
func (s *Store) ReadPosts() ([]model.Post, error) {
	rows, err := s.readCSV(PostsFile, postsHeader)
	if err != nil {
		return nil, err
	}

	posts := make([]model.Post, 0, len(rows))
	for i, row := range rows {
		p := model.Post{
			ID: row[0], Title: row[1], AuthorID: row[2], AuthorName: row[3],
			Subreddit: row[4], SelfText: row[10], URL: row[11],
			Permalink: row[12], Flair: row[13],
		}

		var err error
		if p.Score, err = strconv.Atoi(row[5]); err == nil {
			if p.UpvoteRatio, err = strconv.ParseFloat(row[6], 64); err == nil {
				if p.NumComments, err = strconv.Atoi(row[7]); err == nil {
					if p.CreatedUTC, err = strconv.ParseFloat(row[8], 64); err == nil {
						err = parseBools(row, map[int]*bool{
							9: &p.IsSelf, 14: &p.Stickied, 15: &p.Locked,
							16: &p.Spoiler, 17: &p.NSFW,
						})
					}
				}
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", PostsFile, i+2, err)
		}

		posts = append(posts, p)
	}

	return posts, nil
}

// WriteComments persists the comment dataset.
func (s *Store) WriteComments(comments []model.Comment) error {
	rows := make([][]string, 0, len(comments))
	for _, c := range comments {
		rows = append(rows, []string{
			c.ID, c.PostID, c.AuthorID, c.AuthorName, c.Body,
			strconv.Itoa(c.Score),
			formatEpoch(c.CreatedUTC),
			c.ParentID, string(c.ParentKind),
			strconv.FormatBool(c.IsSubmitter),
			strconv.FormatBool(c.Stickied),
			strconv.Itoa(c.Depth),
			strconv.Itoa(c.Controversiality),
			strconv.Itoa(c.Gilded),
		})
	}
	return s.writeCSV(CommentsFile, commentsHeader, rows)
}

// ReadComments loads the comment dataset.
func (s *Store) ReadComments() ([]model.Comment, error) {
	rows, err := s.readCSV(CommentsFile, commentsHeader)
	if err != nil {
		return nil, err
	}

	comments := make([]model.Comment, 0, len(rows))
	for i, row := range rows {
		c := model.Comment{
			ID: row[0], PostID: row[1], AuthorID: row[2], AuthorName: row[3],
			Body: row[4], ParentID: row[7], ParentKind: model.ParentKind(row[8]),
		}

		var err error
		if c.Score, err = strconv.Atoi(row[5]); err == nil {
			if c.CreatedUTC, err = strconv.ParseFloat(row[6], 64); err == nil {
				if err = parseBools(row, map[int]*bool{9: &c.IsSubmitter, 10: &c.Stickied}); err == nil {
					if c.Depth, err = strconv.Atoi(row[11]); err == nil {
						if c.Controversiality, err = strconv.Atoi(row[12]); err == nil {
							c.Gilded, err = strconv.Atoi(row[13])
						}
					}
				}
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", CommentsFile, i+2, err)
		}

		comments = append(comments, c)
	}

	return comments, nil
}

// WriteUsers persists the user dataset.
func (s *Store) WriteUsers(users []model.User) error {
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{
			u.ID, u.Username,
			strconv.Itoa(u.LinkKarma),
			strconv.Itoa(u.CommentKarma),
			strconv.Itoa(u.TotalKarma),
			formatEpoch(u.CreatedUTC),
			strconv.FormatBool(u.IsGold),
			strconv.FormatBool(u.IsMod),
			strconv.FormatBool(u.IsEmployee),
			strconv.FormatBool(u.HasVerifiedEmail),
		})
	}
	return s.writeCSV(UsersFile, usersHeader, rows)
}

// ReadUsers loads the user dataset.
func (s *Store) ReadUsers() ([]model.User, error) {
	rows, err := s.readCSV(UsersFile, usersHeader)
	if err != nil {
		return nil, err
	}

	users := make([]model.User, 0, len(rows))
	for i, row := range rows {
		u := model.User{ID: row[0], Username: row[1]}

		var err error
		if u.LinkKarma, err = strconv.Atoi(row[2]); err == nil {
			if u.CommentKarma, err = strconv.Atoi(row[3]); err == nil {
				if u.TotalKarma, err = strconv.Atoi(row[4]); err == nil {
					if u.CreatedUTC, err = strconv.ParseFloat(row[5], 64); err == nil {
						err = parseBools(row, map[int]*bool{
							6: &u.IsGold, 7: &u.IsMod, 8: &u.IsEmployee, 9: &u.HasVerifiedEmail,
						})
					}
				}
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", UsersFile, i+2, err)
		}

		users = append(users, u)
	}

	return users, nil
}

// WriteEdges persists the interaction-network edge dataset. An empty edge
// set still writes a header-only file so downstream consumers never have to
// special-case "no edges".
func (s *Store) WriteEdges(edges []network.Edge) error {
	rows := make([][]string, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, []string{
			e.FromUserID, e.ToUserID, string(e.Type),
			strconv.Itoa(e.Weight),
			formatEpoch(e.FirstInteraction),
		})
	}
	return s.writeCSV(EdgesFile, edgesHeader, rows)
}

// ReadEdges loads the edge dataset.
func (s *Store) ReadEdges() ([]network.Edge, error) {
	rows, err := s.readCSV(EdgesFile, edgesHeader)
	if err != nil {
		return nil, err
	}

	edges := make([]network.Edge, 0, len(rows))
	for i, row := range rows {
		e := network.Edge{
			FromUserID: row[0],
			ToUserID:   row[1],
			Type:       network.InteractionType(row[2]),
		}

		var err error
		if e.Weight, err = strconv.Atoi(row[3]); err == nil {
			e.FirstInteraction, err = strconv.ParseFloat(row[4], 64)
		}
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", EdgesFile, i+2, err)
		}

		edges = append(edges, e)
	}

	return edges, nil
}

// writeCSV writes a header row followed by data rows.
func (s *Store) writeCSV(name string, header []string, rows [][]string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	file, err := os.OpenFile(s.Path(name), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(header); err != nil {
		return fmt.Errorf("writing %s header: %w", name, err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// readCSV loads data rows, validating the header and column count.
func (s *Store) readCSV(name string, header []string) ([][]string, error) {
	file, err := os.Open(s.Path(name))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(header)

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("reading %s: missing header row", name)
	}

	for i, col := range records[0] {
		if col != header[i] {
			return nil, fmt.Errorf("reading %s: unexpected column %q, want %q", name, col, header[i])
		}
	}

	return records[1:], nil
}

// formatEpoch renders a float epoch (or ratio) without trailing zeros.
func formatEpoch(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseBools(row []string, fields map[int]*bool) error {
	for idx, dst := range fields {
		v, err := strconv.ParseBool(row[idx])
		if err != nil {
			return err
		}
		*dst = v
	}
	return nil
}
