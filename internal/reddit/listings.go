package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pavelihno/reddit-film-communities/internal/model"
)

// SortMethod selects the subreddit listing order.
type SortMethod string

const (
	SortHot           SortMethod = "hot"
	SortNew           SortMethod = "new"
	SortTop           SortMethod = "top"
	SortRising        SortMethod = "rising"
	SortControversial SortMethod = "controversial"
)

// TimeFilter restricts top/controversial listings to a window.
type TimeFilter string

const (
	TimeHour  TimeFilter = "hour"
	TimeDay   TimeFilter = "day"
	TimeWeek  TimeFilter = "week"
	TimeMonth TimeFilter = "month"
	TimeYear  TimeFilter = "year"
	TimeAll   TimeFilter = "all"
)

// ListingOptions controls a post fetch. Zero values mean hot/all/100.
type ListingOptions struct {
	Sort       SortMethod
	TimeFilter TimeFilter
	Limit      int
}

func (o *ListingOptions) applyDefaults() {
	if o.Sort == "" {
		o.Sort = SortHot
	}
	if o.TimeFilter == "" {
		o.TimeFilter = TimeAll
	}
	if o.Limit <= 0 {
		o.Limit = 100
	}
}

func (o ListingOptions) validate() error {
	switch o.Sort {
	case SortHot, SortNew, SortTop, SortRising, SortControversial:
	default:
		return fmt.Errorf("invalid sort method: %s", o.Sort)
	}

	switch o.TimeFilter {
	case TimeHour, TimeDay, TimeWeek, TimeMonth, TimeYear, TimeAll:
	default:
		return fmt.Errorf("invalid time filter: %s", o.TimeFilter)
	}

	return nil
}

// FetchPosts retrieves up to opts.Limit posts from a subreddit, following
// the listing cursor across pages.
func (c *Client) FetchPosts(ctx context.Context, subreddit string, opts ListingOptions) ([]model.Post, error) {
	opts.applyDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	posts := make([]model.Post, 0, opts.Limit)
	after := ""

	for len(posts) < opts.Limit {
		remaining := opts.Limit - len(posts)
		if remaining > pageSize {
			remaining = pageSize
		}

		params := map[string]string{
			"limit":    strconv.Itoa(remaining),
			"raw_json": "1",
		}
		if after != "" {
			params["after"] = after
		}
		if opts.Sort == SortTop || opts.Sort == SortControversial {
			params["t"] = string(opts.TimeFilter)
		}

		res, err := c.r(ctx).
			SetQueryParams(params).
			SetResult(&thing{}).
			Get(fmt.Sprintf("%s/r/%s/%s.json", c.baseURL, subreddit, opts.Sort))
		if err != nil {
			return nil, fmt.Errorf("fetching r/%s posts: %w", subreddit, err)
		}
		if res.IsError() {
			return nil, fmt.Errorf("fetching r/%s posts: status %d", subreddit, res.StatusCode())
		}

		var page listingData
		if err := json.Unmarshal(res.Result().(*thing).Data, &page); err != nil {
			return nil, fmt.Errorf("decoding r/%s listing: %w", subreddit, err)
		}

		if len(page.Children) == 0 {
			break
		}

		for _, child := range page.Children {
			if child.Kind != "t3" {
				continue
			}
			var d postData
			if err := json.Unmarshal(child.Data, &d); err != nil {
				return nil, fmt.Errorf("decoding r/%s post: %w", subreddit, err)
			}
			posts = append(posts, d.toModel())
			if len(posts) == opts.Limit {
				break
			}
		}

		if page.After == "" {
			break
		}
		after = page.After
	}

	return posts, nil
}
