package apiclient

import (
	"encoding/json"
	"time"

	"github.com/craftyxhub/craftyx-portal/internal/utils"
)

// GenerateRequest asks the AI endpoint for content variants.
type GenerateRequest struct {
	Prompt string `json:"prompt" validate:"required"`
	Type   string `json:"type,omitempty" validate:"omitempty,oneof=title excerpt content tags"`
	Tone   string `json:"tone,omitempty"`
	Count  int    `json:"count,omitempty" validate:"gte=0,lte=10"`
}

// Variant is one generated alternative. The endpoint may send a bare string or an
// object; both decode to Content.
type Variant struct {
	Content string `json:"content" validate:"required"`
	Title   string `json:"title,omitempty"`
}

func (v *Variant) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = Variant{Content: s}
		return nil
	}
	type plain Variant
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*v = Variant(p)
	return nil
}

type generateResponse struct {
	Variants []Variant `json:"variants" validate:"required,dive"`
}

// Post is a blog post as listed by GET /posts.
type Post struct {
	ID          int64      `json:"id" validate:"required"`
	Title       string     `json:"title" validate:"required"`
	Slug        string     `json:"slug,omitempty"`
	Excerpt     string     `json:"excerpt,omitempty"`
	Body        string     `json:"body,omitempty"`
	Status      string     `json:"status,omitempty" validate:"omitempty,oneof=draft published scheduled archived"`
	CategoryID  *int64     `json:"category_id,omitempty"`
	Author      string     `json:"author,omitempty"`
	Views       *int64     `json:"views,omitempty" validate:"omitempty,gte=0"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// ViewCount returns Views, or zero when the API omitted it.
func (p Post) ViewCount() int64 {
	return utils.Value(p.Views)
}

type postsResponse struct {
	Posts []Post `json:"posts" validate:"required,dive"`
}

// PostsQuery filters GET /posts. Zero values are left out of the query string.
type PostsQuery struct {
	Status     string
	CategoryID int64
	Page       int
	PerPage    int
}

type Category struct {
	ID         int64  `json:"id" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Slug       string `json:"slug,omitempty"`
	PostsCount *int64 `json:"posts_count,omitempty" validate:"omitempty,gte=0"`
}

// DashboardStats are the admin dashboard counters. Counters the API omits are zero.
type DashboardStats struct {
	TotalPosts     int64 `json:"totalPosts"`
	PublishedPosts int64 `json:"publishedPosts"`
	DraftPosts     int64 `json:"draftPosts"`
	TotalViews     int64 `json:"totalViews"`
	TotalUsers     int64 `json:"totalUsers"`
	TotalComments  int64 `json:"totalComments"`
}

// dashboardStatsWire keeps optional counters as pointers so a negative value can be
// rejected while a missing one defaults to zero.
type dashboardStatsWire struct {
	TotalPosts     *int64 `json:"totalPosts" validate:"omitempty,gte=0"`
	PublishedPosts *int64 `json:"publishedPosts" validate:"omitempty,gte=0"`
	DraftPosts     *int64 `json:"draftPosts" validate:"omitempty,gte=0"`
	TotalViews     *int64 `json:"totalViews" validate:"omitempty,gte=0"`
	TotalUsers     *int64 `json:"totalUsers" validate:"omitempty,gte=0"`
	TotalComments  *int64 `json:"totalComments" validate:"omitempty,gte=0"`
}

func (w dashboardStatsWire) stats() DashboardStats {
	return DashboardStats{
		TotalPosts:     utils.ValueOr(w.TotalPosts, 0),
		PublishedPosts: utils.ValueOr(w.PublishedPosts, 0),
		DraftPosts:     utils.ValueOr(w.DraftPosts, 0),
		TotalViews:     utils.ValueOr(w.TotalViews, 0),
		TotalUsers:     utils.ValueOr(w.TotalUsers, 0),
		TotalComments:  utils.ValueOr(w.TotalComments, 0),
	}
}
