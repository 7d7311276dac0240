package reddit

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelihno/reddit-film-communities/internal/model"
)

// commentsPayload wraps a comment listing in the two-element array the
// comments endpoint returns: post listing first, comments second.
func commentsPayload(children ...string) string {
	childJSON := ""
	for i, c := range children {
		if i > 0 {
			childJSON += ","
		}
		childJSON += c
	}
	return fmt.Sprintf(`[
		{"kind":"Listing","data":{"after":"","children":[]}},
		{"kind":"Listing","data":{"after":"","children":[%s]}}
	]`, childJSON)
}

func commentChild(id, authorFullname, parentID string, created float64, replies string) string {
	if replies == "" {
		replies = `""`
	}
	return fmt.Sprintf(`{"kind":"t1","data":{
		"id":%q,
		"author":"someone",
		"author_fullname":%q,
		"body":"comment %s",
		"score":1,
		"created_utc":%g,
		"parent_id":%q,
		"replies":%s
	}}`, id, authorFullname, id, created, parentID, replies)
}

func repliesListing(children ...string) string {
	childJSON := ""
	for i, c := range children {
		if i > 0 {
			childJSON += ","
		}
		childJSON += c
	}
	return fmt.Sprintf(`{"kind":"Listing","data":{"after":"","children":[%s]}}`, childJSON)
}

func TestFetchCommentsFlattensTree(t *testing.T) {
	t.Parallel()

	reply := commentChild("c2", "t2_u2", "t1_c1", 200, "")
	top := commentChild("c1", "t2_u1", "t3_abc", 100, repliesListing(reply))

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/comments/abc.json", r.URL.Path)
		fmt.Fprint(w, commentsPayload(top))
	})

	comments, err := client.FetchComments(t.Context(), []model.Post{{ID: "abc"}}, 0, nil)
	require.NoError(t, err)
	require.Len(t, comments, 2)

	assert.Equal(t, "c1", comments[0].ID)
	assert.Equal(t, "abc", comments[0].PostID)
	assert.Equal(t, "u1", comments[0].AuthorID)
	assert.Equal(t, "abc", comments[0].ParentID)
	assert.Equal(t, model.ParentPost, comments[0].ParentKind)

	assert.Equal(t, "c2", comments[1].ID)
	assert.Equal(t, "c1", comments[1].ParentID)
	assert.Equal(t, model.ParentComment, comments[1].ParentKind)
}

func TestFetchCommentsSkipsMoreStubs(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, commentsPayload(
			commentChild("c1", "t2_u1", "t3_abc", 100, ""),
			`{"kind":"more","data":{"count":120,"children":["c9","c10"]}}`,
			commentChild("c3", "t2_u3", "t3_abc", 300, ""),
		))
	})

	comments, err := client.FetchComments(t.Context(), []model.Post{{ID: "abc"}}, 0, nil)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "c1", comments[0].ID)
	assert.Equal(t, "c3", comments[1].ID)
}

func TestFetchCommentsDeletedAuthor(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, commentsPayload(
			`{"kind":"t1","data":{"id":"c1","author":"[deleted]","body":"[removed]","created_utc":100,"parent_id":"t3_abc","replies":""}}`,
		))
	})

	comments, err := client.FetchComments(t.Context(), []model.Post{{ID: "abc"}}, 0, nil)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Empty(t, comments[0].AuthorID)
	assert.Equal(t, "[deleted]", comments[0].AuthorName)
}

func TestFetchCommentsMaxPerPost(t *testing.T) {
	t.Parallel()

	deep := commentChild("c3", "t2_u3", "t1_c2", 300, "")
	mid := commentChild("c2", "t2_u2", "t1_c1", 200, repliesListing(deep))
	top := commentChild("c1", "t2_u1", "t3_abc", 100, repliesListing(mid))

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, commentsPayload(top))
	})

	comments, err := client.FetchComments(t.Context(), []model.Post{{ID: "abc"}}, 2, nil)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "c1", comments[0].ID)
	assert.Equal(t, "c2", comments[1].ID)
}

func TestFetchCommentsAcrossPosts(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/comments/abc.json":
			fmt.Fprint(w, commentsPayload(commentChild("c1", "t2_u1", "t3_abc", 100, "")))
		case "/comments/def.json":
			fmt.Fprint(w, commentsPayload(commentChild("c2", "t2_u2", "t3_def", 200, "")))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	var calls []int
	progress := func(done, total int) { calls = append(calls, done) }

	posts := []model.Post{{ID: "abc"}, {ID: "def"}}
	comments, err := client.FetchComments(t.Context(), posts, 0, progress)
	require.NoError(t, err)

	require.Len(t, comments, 2)
	assert.Equal(t, "abc", comments[0].PostID)
	assert.Equal(t, "def", comments[1].PostID)
	assert.Equal(t, []int{0, 1, 2}, calls)
}

func TestFetchCommentsErrorNamesPost(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})

	_, err := client.FetchComments(t.Context(), []model.Post{{ID: "abc"}}, 0, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching comments for post abc")
}

func TestParseReplies(t *testing.T) {
	t.Parallel()

	t.Run("EmptyString", func(t *testing.T) {
		t.Parallel()
		children, err := parseReplies([]byte(`""`))
		require.NoError(t, err)
		assert.Empty(t, children)
	})

	t.Run("Null", func(t *testing.T) {
		t.Parallel()
		children, err := parseReplies([]byte(`null`))
		require.NoError(t, err)
		assert.Empty(t, children)
	})

	t.Run("Missing", func(t *testing.T) {
		t.Parallel()
		children, err := parseReplies(nil)
		require.NoError(t, err)
		assert.Empty(t, children)
	})

	t.Run("NestedListing", func(t *testing.T) {
		t.Parallel()
		children, err := parseReplies([]byte(repliesListing(commentChild("c2", "t2_u2", "t1_c1", 200, ""))))
		require.NoError(t, err)
		require.Len(t, children, 1)
		assert.Equal(t, "t1", children[0].Kind)
	})
}
