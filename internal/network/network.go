// Package network derives the weighted user-interaction graph from reply
// relationships.
//
// Given a batch of posts and comments it infers directed interactions
// (who replied to whom) and collapses them into weighted edges, one per
// (source user, target user, interaction type) triple. The computation is a
// pure, single-pass, in-memory transformation: nothing is cached or mutated,
// and identical inputs always produce the identical edge list.
package network

import (
	"sort"

	"github.com/pavelihno/reddit-film-communities/internal/model"
)

// InteractionType classifies how one user interacted with another.
type InteractionType string

const (
	// InteractionCommentOnPost is a top-level comment on someone's post.
	InteractionCommentOnPost InteractionType = "comment_on_post"

	// InteractionReplyToComment is a reply to someone's comment.
	InteractionReplyToComment InteractionType = "reply_to_comment"
)

// Interaction is one directed reply event between two distinct users.
type Interaction struct {
	// FromUserID is the author of the replying comment.
	FromUserID string

	// ToUserID is the author of the reply target (post or parent comment).
	ToUserID string

	// Type is the kind of interaction.
	Type InteractionType

	// Timestamp is the replying comment's creation epoch.
	Timestamp float64

	// CommentID is the replying comment.
	CommentID string

	// PostID is the submission the comment belongs to.
	PostID string
}

// Edge is an aggregated, weighted connection between two users.
type Edge struct {
	FromUserID string
	ToUserID   string
	Type       InteractionType

	// Weight is the number of interactions collapsed into this edge,
	// always >= 1.
	Weight int

	// FirstInteraction is the earliest timestamp among the contributing
	// interactions.
	FirstInteraction float64
}

// ExtractInteractions scans comments and emits one Interaction per comment
// whose author and resolved reply-target author are both known and distinct.
//
// Comments are skipped silently when the author was deleted, when the parent
// cannot be found (e.g. a reply to a since-deleted post outside the batch),
// when the parent's author is unknown, or when a user replied to themselves.
// Dropping instead of erroring matches the data-quality semantics of the
// collector: a partial batch still yields the network of what it contains.
func ExtractInteractions(comments []model.Comment, posts []model.Post) []Interaction {
	postAuthors := make(map[string]string, len(posts))
	for _, p := range posts {
		postAuthors[p.ID] = p.AuthorID
	}

	commentAuthors := make(map[string]string, len(comments))
	for _, c := range comments {
		commentAuthors[c.ID] = c.AuthorID
	}

	interactions := make([]Interaction, 0, len(comments))
	for _, c := range comments {
		if c.AuthorID == "" {
			continue
		}

		var toUser string
		var kind InteractionType
		if c.ParentKind == model.ParentPost {
			toUser = postAuthors[c.ParentID]
			kind = InteractionCommentOnPost
		} else {
			toUser = commentAuthors[c.ParentID]
			kind = InteractionReplyToComment
		}

		if toUser == "" || toUser == c.AuthorID {
			continue
		}

		interactions = append(interactions, Interaction{
			FromUserID: c.AuthorID,
			ToUserID:   toUser,
			Type:       kind,
			Timestamp:  c.CreatedUTC,
			CommentID:  c.ID,
			PostID:     c.PostID,
		})
	}

	return interactions
}

// edgeKey is the aggregation key: at most one edge exists per distinct key.
type edgeKey struct {
	from string
	to   string
	kind InteractionType
}

// AggregateEdges groups interactions by (from, to, type) and collapses each
// group into a single weighted edge carrying the earliest timestamp.
//
// The result is sorted by the grouping key so a fixed input always yields a
// byte-identical edge list. An empty input yields an empty, non-nil slice:
// callers never need to special-case "no edges".
func AggregateEdges(interactions []Interaction) []Edge {
	acc := make(map[edgeKey]*Edge, len(interactions))
	for _, in := range interactions {
		key := edgeKey{from: in.FromUserID, to: in.ToUserID, kind: in.Type}
		e, ok := acc[key]
		if !ok {
			acc[key] = &Edge{
				FromUserID:       in.FromUserID,
				ToUserID:         in.ToUserID,
				Type:             in.Type,
				Weight:           1,
				FirstInteraction: in.Timestamp,
			}
			continue
		}
		e.Weight++
		if in.Timestamp < e.FirstInteraction {
			e.FirstInteraction = in.Timestamp
		}
	}

	edges := make([]Edge, 0, len(acc))
	for _, e := range acc {
		edges = append(edges, *e)
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].FromUserID != edges[j].FromUserID {
			return edges[i].FromUserID < edges[j].FromUserID
		}
		if edges[i].ToUserID != edges[j].ToUserID {
			return edges[i].ToUserID < edges[j].ToUserID
		}
		return edges[i].Type < edges[j].Type
	})

	return edges
}

// Build runs extraction and aggregation in one step.
func Build(comments []model.Comment, posts []model.Post) []Edge {
	return AggregateEdges(ExtractInteractions(comments, posts))
}
