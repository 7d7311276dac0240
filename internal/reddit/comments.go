package reddit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/pavelihno/reddit-film-communities/internal/model"
)

// ProgressFunc reports per-post progress while fetching comment trees.
type ProgressFunc func(done, total int)

// FetchComments retrieves the full comment tree of every post and flattens
// it into a single comment batch. Collapsed "more comments" stubs are
// skipped, so very deep threads may be partial.
//
// maxPerPost limits comments taken per post; 0 means no limit. progress may
// be nil.
func (c *Client) FetchComments(ctx context.Context, posts []model.Post, maxPerPost int, progress ProgressFunc) ([]model.Comment, error) {
	var comments []model.Comment

	for i, post := range posts {
		if progress != nil {
			progress(i, len(posts))
		}

		batch, err := c.fetchPostComments(ctx, post.ID, maxPerPost)
		if err != nil {
			return nil, fmt.Errorf("fetching comments for post %s: %w", post.ID, err)
		}
		comments = append(comments, batch...)
	}

	if progress != nil {
		progress(len(posts), len(posts))
	}

	return comments, nil
}

func (c *Client) fetchPostComments(ctx context.Context, postID string, max int) ([]model.Comment, error) {
	// The comments endpoint returns a two-element array: the post listing
	// followed by the top-level comment listing.
	var pages []thing

	res, err := c.r(ctx).
		SetQueryParams(map[string]string{
			"limit":    "500",
			"raw_json": "1",
		}).
		SetResult(&pages).
		Get(fmt.Sprintf("%s/comments/%s.json", c.baseURL, postID))
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("status %d", res.StatusCode())
	}

	if len(pages) < 2 {
		return nil, nil
	}

	var listing listingData
	if err := json.Unmarshal(pages[1].Data, &listing); err != nil {
		return nil, fmt.Errorf("decoding comment listing: %w", err)
	}

	collector := &commentCollector{postID: postID, max: max}
	if err := collector.walk(listing.Children); err != nil {
		return nil, err
	}

	return collector.comments, nil
}

// commentCollector flattens a nested comment tree in document order.
type commentCollector struct {
	postID   string
	max      int
	comments []model.Comment
}

func (cc *commentCollector) full() bool {
	return cc.max > 0 && len(cc.comments) >= cc.max
}

func (cc *commentCollector) walk(children []thing) error {
	for _, child := range children {
		if cc.full() {
			return nil
		}

		// "more" stubs stand in for collapsed subtrees; skip them.
		if child.Kind != "t1" {
			continue
		}

		var d commentData
		if err := json.Unmarshal(child.Data, &d); err != nil {
			return fmt.Errorf("decoding comment: %w", err)
		}

		cc.comments = append(cc.comments, d.toModel(cc.postID))

		replies, err := parseReplies(d.Replies)
		if err != nil {
			return err
		}
		if err := cc.walk(replies); err != nil {
			return err
		}
	}

	return nil
}

// parseReplies unwraps a comment's replies field, which is either an empty
// string or a nested Listing.
func parseReplies(raw json.RawMessage) ([]thing, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte(`""`)) || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var wrapper thing
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, fmt.Errorf("decoding replies: %w", err)
	}

	var listing listingData
	if err := json.Unmarshal(wrapper.Data, &listing); err != nil {
		return nil, fmt.Errorf("decoding replies listing: %w", err)
	}

	return listing.Children, nil
}
