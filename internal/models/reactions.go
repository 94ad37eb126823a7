package models

import "time"

const (
	MinRatingScore = 1
	MaxRatingScore = 5
)

// Rating is one user's 1-5 score for a post. A user rates a post at most
// once; rating again replaces the score.
type Rating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Score     int       `gorm:"not null" json:"score"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_ratings_user_post" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_ratings_user_post;index" json:"post_id"`
	Post      *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidScore reports whether score is within the rating scale.
func ValidScore(score int) bool {
	return score >= MinRatingScore && score <= MaxRatingScore
}

type Bookmark struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_bookmarks_user_post" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_bookmarks_user_post;index" json:"post_id"`
	Post      *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"post,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// RatingSummary aggregates the ratings of one post. Distribution always has
// an entry for every score on the scale.
type RatingSummary struct {
	PostID       uint          `json:"post_id"`
	Average      float64       `json:"average"`
	Count        int64         `json:"count"`
	Distribution map[int]int64 `json:"distribution"`
	// UserScore is the caller's own score, nil when they have not rated.
	UserScore *int `json:"user_score,omitempty"`
}
