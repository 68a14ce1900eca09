package recipe

import (
	"net/url"
	"strconv"
	"strings"
)

// SortKey is the search sort field
type SortKey string

const (
	SortCreatedAt     SortKey = "createdAt"
	SortRating        SortKey = "rating"
	SortEstimatedTime SortKey = "estimatedTime"
)

// SortOrder is the search sort direction
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// Toggle flips the sort direction
func (o SortOrder) Toggle() SortOrder {
	if o == OrderAsc {
		return OrderDesc
	}
	return OrderAsc
}

// SearchParams mirrors RecipeSearchParams. Difficulty and Cuisine hold form
// values and may be Any.
type SearchParams struct {
	Q          string
	Difficulty string
	Cuisine    string
	MaxTime    int
	Tags       string
	SortBy     SortKey
	Order      SortOrder
	Limit      int
	Offset     int
}

// Values returns the outgoing query string. Empty, zero and Any values are
// dropped so the API never sees the sentinel.
func (p SearchParams) Values() url.Values {
	v := url.Values{}
	set := func(key, value string) {
		value = strings.TrimSpace(value)
		if value == "" || strings.EqualFold(value, Any) {
			return
		}
		v.Set(key, value)
	}
	setInt := func(key string, n int) {
		if n > 0 {
			v.Set(key, strconv.Itoa(n))
		}
	}

	set("q", p.Q)
	set("difficulty", p.Difficulty)
	set("cuisine", p.Cuisine)
	setInt("maxTime", p.MaxTime)
	set("tags", p.Tags)
	set("sortBy", string(p.SortBy))
	set("order", string(p.Order))
	setInt("limit", p.Limit)
	// offset 0 is meaningful but is also the API default
	setInt("offset", p.Offset)
	return v
}

// TagList splits the comma separated tag filter
func (p SearchParams) TagList() []string {
	var tags []string
	for _, t := range strings.Split(p.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// WithoutTag returns the params with tag removed from the tag filter
func (p SearchParams) WithoutTag(tag string) SearchParams {
	kept := make([]string, 0)
	for _, t := range p.TagList() {
		if t != tag {
			kept = append(kept, t)
		}
	}
	p.Tags = strings.Join(kept, ",")
	return p
}

// SearchResponse mirrors RecipeSearchResponse
type SearchResponse struct {
	Data   []Recipe `json:"data"`
	Total  int      `json:"total"`
	Limit  int      `json:"limit"`
	Offset int      `json:"offset"`
}

// NextOffset returns the offset of the page after p. ok is false once
// offset+limit reaches the reported total. A page with a non-positive limit
// never has a successor.
func NextOffset(p SearchResponse) (next int, ok bool) {
	if p.Limit <= 0 {
		return 0, false
	}
	next = p.Offset + p.Limit
	if next >= p.Total {
		return 0, false
	}
	return next, true
}
