package entity

import "strings"

// FeaturedMpID is the pseudo subscription that collects manually added articles.
const FeaturedMpID = "MP_WXS_FEATURED_ARTICLES"

// featuredArticleURLMarker must appear in every featured article URL.
const featuredArticleURLMarker = "mp.weixin.qq.com/s/"

// Subscription represents a followed WeChat official account.
type Subscription struct {
	ID           string `json:"id"`
	MpID         string `json:"mp_id,omitempty"`
	Name         string `json:"name,omitempty"`
	MpName       string `json:"mp_name"`
	MpCover      string `json:"mp_cover,omitempty"`
	MpIntro      string `json:"mp_intro,omitempty"`
	Status       int    `json:"status"`
	SyncTime     int64  `json:"sync_time,omitempty"`
	UpdateTime   int64  `json:"update_time,omitempty"`
	RSSURL       string `json:"rss_url,omitempty"`
	ArticleCount int    `json:"article_count,omitempty"`
	FakerID      string `json:"faker_id,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

// IsFeatured reports whether s is the featured-articles pseudo subscription.
func (s *Subscription) IsFeatured() bool {
	return s.ID == FeaturedMpID || s.MpID == FeaturedMpID
}

// DisplayName returns the best available human readable name.
func (s *Subscription) DisplayName() string {
	if s.MpName != "" {
		return s.MpName
	}
	return s.Name
}

// SubscriptionCreate is the payload for adding a subscription by metadata.
type SubscriptionCreate struct {
	MpName  string `json:"mp_name" validate:"required,max=255"`
	MpID    string `json:"mp_id" validate:"required,max=255"`
	Avatar  string `json:"avatar,omitempty" validate:"omitempty,max=500"`
	MpIntro string `json:"mp_intro,omitempty" validate:"omitempty,max=255"`
}

// SubscriptionUpdate is a partial update. Nil fields are left untouched.
type SubscriptionUpdate struct {
	MpName  *string `json:"mp_name,omitempty"`
	MpCover *string `json:"mp_cover,omitempty"`
	MpIntro *string `json:"mp_intro,omitempty"`
	Status  *int    `json:"status,omitempty"`
}

// FeaturedArticleTask tracks an asynchronous "add single article" request.
type FeaturedArticleTask struct {
	TaskID  string     `json:"task_id"`
	URL     string     `json:"url"`
	Status  TaskStatus `json:"status"`
	Message string     `json:"message,omitempty"`
	ID      string     `json:"id,omitempty"`
	Title   string     `json:"title,omitempty"`
}

// ValidateFeaturedArticleURL checks that rawURL points at a WeChat article.
func ValidateFeaturedArticleURL(rawURL string) error {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return &ValidationError{Field: "url", Message: "URL is required"}
	}
	if !strings.Contains(trimmed, featuredArticleURLMarker) {
		return ErrInvalidFeaturedURL
	}
	return ValidateURL(trimmed)
}

// BizAccount is one result of the backend's WeChat official account search.
type BizAccount struct {
	FakeID       string `json:"fakeid"`
	Nickname     string `json:"nickname"`
	Alias        string `json:"alias,omitempty"`
	RoundHeadImg string `json:"round_head_img,omitempty"`
	Signature    string `json:"signature,omitempty"`
	ServiceType  int    `json:"service_type,omitempty"`
}

// SubscriptionCreate converts a search hit into the payload that subscribes to it.
func (b *BizAccount) SubscriptionCreate() SubscriptionCreate {
	return SubscriptionCreate{
		MpName:  b.Nickname,
		MpID:    b.FakeID,
		Avatar:  b.RoundHeadImg,
		MpIntro: b.Signature,
	}
}

// SyncResult is the backend's acknowledgement of a subscription sync.
// The sync itself runs in the background.
type SyncResult struct {
	TimeSpan int `json:"time_span"`
	Total    int `json:"total"`
}
