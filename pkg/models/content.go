package models

import "time"

// Creator is a listing entry. Likes are non-durable counters.
type Creator struct {
	ID                 int                `json:"id"`
	Name               string             `json:"name"`
	Rating             float64            `json:"rating"`
	Price              float64            `json:"price"`
	IsAd               bool               `json:"isAd"`
	Image              string             `json:"image"`
	Type               string             `json:"type"`
	Likes              int                `json:"likes"`
	IsVerified         bool               `json:"isVerified,omitempty"`
	IsOnline           bool               `json:"isOnline,omitempty"`
	VerificationStatus VerificationStatus `json:"verificationStatus,omitempty"`
}

type Comment struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	Likes     int       `json:"likes"`
}

// Post owns an ordered, append-only list of comments.
type Post struct {
	ID           int       `json:"id"`
	CreatorName  string    `json:"creatorName"`
	CreatorImage string    `json:"creatorImage"`
	Content      string    `json:"content"`
	Likes        int       `json:"likes"`
	Comments     []Comment `json:"comments"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	IsPublic     bool      `json:"isPublic"`
}

// Clone returns a copy that shares no comment storage with p.
func (p Post) Clone() Post {
	if p.Comments != nil {
		c := make([]Comment, len(p.Comments))
		copy(c, p.Comments)
		p.Comments = c
	}
	return p
}
