package model

import "time"

const (
	MaxWishImages     = 9
	MaxWishContentLen = 1000
)

type Wish struct {
	ID        string
	UserID    string
	Content   string
	Images    []string
	Anonymous bool
	QuoteID   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WishView is a wish as seen by one viewer.
type WishView struct {
	Wish
	LikeCount int64
	LikedByMe bool
}

// WishAuthor is the author data behind a non-anonymous wish.
type WishAuthor struct {
	Anonymous bool
	Name      string
	JoinedAt  time.Time
}
