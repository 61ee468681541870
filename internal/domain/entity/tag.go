package entity

// DefaultTagPageSize is the page size used by the tag list.
const DefaultTagPageSize = 100

// Tag groups subscriptions under a named collection.
type Tag struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Cover     *string `json:"cover,omitempty"`
	Intro     *string `json:"intro,omitempty"`
	MpsID     string  `json:"mps_id,omitempty"`
	Status    int     `json:"status"`
	CreatedAt string  `json:"created_at,omitempty"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

// TagCreate is the payload for creating or replacing a tag.
type TagCreate struct {
	Name   string  `json:"name" validate:"required,max=50"`
	Cover  *string `json:"cover,omitempty"`
	Intro  *string `json:"intro,omitempty"`
	MpsID  string  `json:"mps_id,omitempty"`
	Status *int    `json:"status,omitempty" validate:"omitempty,oneof=0 1"`
}
