package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/samber/lo"

	"github.com/pavelihno/reddit-film-communities/internal/model"
)

// FetchUsers retrieves profile data for the given usernames. Names are
// deduplicated first; blanks and "[deleted]" are skipped. A failure on one
// profile (suspended account, 404) is reported to stderr and does not abort
// the batch.
func (c *Client) FetchUsers(ctx context.Context, usernames []string) ([]model.User, error) {
	unique := lo.Uniq(usernames)

	users := make([]model.User, 0, len(unique))
	for _, name := range unique {
		if name == "" || name == "[deleted]" {
			continue
		}

		user, err := c.fetchUser(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			fmt.Fprintf(os.Stderr, "Warning: fetching user %s: %v\n", name, err)
			continue
		}
		users = append(users, user)
	}

	return users, nil
}

func (c *Client) fetchUser(ctx context.Context, username string) (model.User, error) {
	res, err := c.r(ctx).
		SetQueryParams(map[string]string{"raw_json": "1"}).
		SetResult(&thing{}).
		Get(fmt.Sprintf("%s/user/%s/about.json", c.baseURL, username))
	if err != nil {
		return model.User{}, err
	}
	if res.IsError() {
		return model.User{}, fmt.Errorf("status %d", res.StatusCode())
	}

	var d userData
	if err := json.Unmarshal(res.Result().(*thing).Data, &d); err != nil {
		return model.User{}, fmt.Errorf("decoding user profile: %w", err)
	}

	return d.toModel(), nil
}
