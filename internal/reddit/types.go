package reddit

import (
	"encoding/json"
	"strings"

	"github.com/pavelihno/reddit-film-communities/internal/model"
)

// thing is Reddit's generic envelope: a kind marker ("Listing", "t1", "t2",
// "t3", "more") and a kind-specific payload.
type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type listingData struct {
	After    string  `json:"after"`
	Children []thing `json:"children"`
}

type postData struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Author         string  `json:"author"`
	AuthorFullname string  `json:"author_fullname"`
	Subreddit      string  `json:"subreddit"`
	Score          int     `json:"score"`
	UpvoteRatio    float64 `json:"upvote_ratio"`
	NumComments    int     `json:"num_comments"`
	CreatedUTC     float64 `json:"created_utc"`
	IsSelf         bool    `json:"is_self"`
	SelfText       string  `json:"selftext"`
	URL            string  `json:"url"`
	Permalink      string  `json:"permalink"`
	LinkFlairText  string  `json:"link_flair_text"`
	Stickied       bool    `json:"stickied"`
	Locked         bool    `json:"locked"`
	Spoiler        bool    `json:"spoiler"`
	Over18         bool    `json:"over_18"`
}

type commentData struct {
	ID             string  `json:"id"`
	Author         string  `json:"author"`
	AuthorFullname string  `json:"author_fullname"`
	Body           string  `json:"body"`
	Score          int     `json:"score"`
	CreatedUTC     float64 `json:"created_utc"`
	ParentID       string  `json:"parent_id"`
	IsSubmitter    bool    `json:"is_submitter"`
	Stickied       bool    `json:"stickied"`
	Depth          int     `json:"depth"`
	Controversiality int   `json:"controversiality"`
	Gilded         int     `json:"gilded"`

	// Replies is either an empty string or a nested Listing thing.
	Replies json.RawMessage `json:"replies"`
}

type userData struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	LinkKarma        int     `json:"link_karma"`
	CommentKarma     int     `json:"comment_karma"`
	TotalKarma       int     `json:"total_karma"`
	CreatedUTC       float64 `json:"created_utc"`
	IsGold           bool    `json:"is_gold"`
	IsMod            bool    `json:"is_mod"`
	IsEmployee       bool    `json:"is_employee"`
	HasVerifiedEmail bool    `json:"has_verified_email"`
}

// stripKindPrefix removes a "t1_"/"t2_"/"t3_" fullname marker, leaving the
// bare identifier.
func stripKindPrefix(fullname string) string {
	if i := strings.IndexByte(fullname, '_'); i >= 0 && i <= 3 {
		return fullname[i+1:]
	}
	return fullname
}

// authorID extracts the bare account id from an author fullname. Deleted
// accounts have no fullname, which maps to an empty id.
func authorID(fullname string) string {
	if fullname == "" {
		return ""
	}
	return stripKindPrefix(fullname)
}

func (d postData) toModel() model.Post {
	permalink := d.Permalink
	if permalink != "" && strings.HasPrefix(permalink, "/") {
		permalink = "https://reddit.com" + permalink
	}

	return model.Post{
		ID:          d.ID,
		Title:       d.Title,
		AuthorID:    authorID(d.AuthorFullname),
		AuthorName:  displayAuthor(d.Author),
		Subreddit:   d.Subreddit,
		Score:       d.Score,
		UpvoteRatio: d.UpvoteRatio,
		NumComments: d.NumComments,
		CreatedUTC:  d.CreatedUTC,
		IsSelf:      d.IsSelf,
		SelfText:    d.SelfText,
		URL:         d.URL,
		Permalink:   permalink,
		Flair:       d.LinkFlairText,
		Stickied:    d.Stickied,
		Locked:      d.Locked,
		Spoiler:     d.Spoiler,
		NSFW:        d.Over18,
	}
}

func (d commentData) toModel(postID string) model.Comment {
	// Normalize the parent reference: the fullname prefix disambiguates
	// post vs comment, the bare id is what downstream lookups use.
	parentKind := model.ParentComment
	if strings.HasPrefix(d.ParentID, "t3_") {
		parentKind = model.ParentPost
	}

	return model.Comment{
		ID:               d.ID,
		PostID:           postID,
		AuthorID:         authorID(d.AuthorFullname),
		AuthorName:       displayAuthor(d.Author),
		Body:             d.Body,
		Score:            d.Score,
		CreatedUTC:       d.CreatedUTC,
		ParentID:         stripKindPrefix(d.ParentID),
		ParentKind:       parentKind,
		IsSubmitter:      d.IsSubmitter,
		Stickied:         d.Stickied,
		Depth:            d.Depth,
		Controversiality: d.Controversiality,
		Gilded:           d.Gilded,
	}
}

func (d userData) toModel() model.User {
	return model.User{
		ID:               d.ID,
		Username:         d.Name,
		LinkKarma:        d.LinkKarma,
		CommentKarma:     d.CommentKarma,
		TotalKarma:       d.TotalKarma,
		CreatedUTC:       d.CreatedUTC,
		IsGold:           d.IsGold,
		IsMod:            d.IsMod,
		IsEmployee:       d.IsEmployee,
		HasVerifiedEmail: d.HasVerifiedEmail,
	}
}

func displayAuthor(author string) string {
	if author == "" {
		return "[deleted]"
	}
	return author
}
