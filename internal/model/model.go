// Package model defines the tabular discussion data collected from Reddit.
//
// Posts, comments and users are the read-only inputs of every downstream
// computation; they mirror the columns of the flat-file datasets the
// collector writes.
package model

// ParentKind says whether a comment replies to a post or to another comment.
type ParentKind string

const (
	ParentPost    ParentKind = "post"
	ParentComment ParentKind = "comment"
)

// Post represents a single submission in a subreddit.
type Post struct {
	// ID is the bare post id (no "t3_" prefix).
	ID string

	// Title is the submission title.
	Title string

	// AuthorID is the bare account id ("t2_" prefix stripped).
	// Empty when the author account has been deleted.
	AuthorID string

	// AuthorName is the display name, "[deleted]" for removed accounts.
	AuthorName string

	// Subreddit is the display name of the community.
	Subreddit string

	Score       int
	UpvoteRatio float64
	NumComments int

	// CreatedUTC is the creation time as a Unix epoch. Reddit emits
	// fractional epochs, so this stays a float64 end to end.
	CreatedUTC float64

	IsSelf    bool
	SelfText  string
	URL       string
	Permalink string
	Flair     string
	Stickied  bool
	Locked    bool
	Spoiler   bool
	NSFW      bool
}

// Comment represents a single comment in a post's discussion tree.
//
// ParentID is always a bare identifier: the upstream fetch layer strips the
// "t1_"/"t3_" prefix markers and records the reference kind in ParentKind.
type Comment struct {
	// ID is the bare comment id (no "t1_" prefix).
	ID string

	// PostID is the id of the submission this comment belongs to.
	PostID string

	// AuthorID is the bare account id, empty when the author was deleted.
	AuthorID string

	// AuthorName is the display name, "[deleted]" for removed accounts.
	AuthorName string

	Body  string
	Score int

	// CreatedUTC is the creation time as a Unix epoch.
	CreatedUTC float64

	// ParentID references either a post or another comment, see ParentKind.
	ParentID   string
	ParentKind ParentKind

	IsSubmitter      bool
	Stickied         bool
	Depth            int
	Controversiality int
	Gilded           int
}

// User represents a Reddit account profile.
type User struct {
	ID       string
	Username string

	LinkKarma    int
	CommentKarma int
	TotalKarma   int

	CreatedUTC float64

	IsGold           bool
	IsMod            bool
	IsEmployee       bool
	HasVerifiedEmail bool
}
