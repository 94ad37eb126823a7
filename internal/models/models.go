package models

import (
	"errors"
	"strings"
	"time"
)

// ErrImmutableRecord is returned by GORM hooks on append-only tables.
var ErrImmutableRecord = errors.New("record is immutable")

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

type User struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Username        string     `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email           string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password        string     `gorm:"not null" json:"-"`
	FirstName       *string    `gorm:"column:first_name" json:"first_name"`
	LastName        *string    `gorm:"column:last_name" json:"last_name"`
	Bio             *string    `gorm:"type:text" json:"bio"`
	ProfileImageURL *string    `gorm:"column:profile_image_url" json:"profile_image_url"`
	Role            string     `gorm:"size:20;not null;default:'USER';index" json:"role"` // USER, ADMIN
	Enabled         bool       `gorm:"not null" json:"enabled"`
	LastLoginAt     *time.Time `gorm:"column:last_login_at" json:"last_login_at"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// FullName returns "First Last", falling back to the username.
func (u *User) FullName() string {
	parts := make([]string, 0, 2)
	if u.FirstName != nil && *u.FirstName != "" {
		parts = append(parts, *u.FirstName)
	}
	if u.LastName != nil && *u.LastName != "" {
		parts = append(parts, *u.LastName)
	}
	if len(parts) == 0 {
		return u.Username
	}
	return strings.Join(parts, " ")
}

type PostType string

const (
	PostTypeText  PostType = "TEXT"
	PostTypeLink  PostType = "LINK"
	PostTypeImage PostType = "IMAGE"
)

func (t PostType) Valid() bool {
	switch t {
	case PostTypeText, PostTypeLink, PostTypeImage:
		return true
	}
	return false
}

const excerptLength = 200

type Post struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Title           string    `gorm:"size:200;not null" json:"title"`
	Content         string    `gorm:"type:text" json:"content"`
	URL             *string   `gorm:"column:url" json:"url"`
	PostType        PostType  `gorm:"column:post_type;size:10;not null;default:'TEXT'" json:"post_type"`
	ImageURL        *string   `gorm:"column:image_url" json:"image_url"`
	Category        *string   `gorm:"index" json:"category"`
	Excerpt         string    `gorm:"size:500" json:"excerpt"`
	ViewCount       int64     `gorm:"not null;default:0" json:"view_count"`
	Published       bool      `gorm:"column:is_published;not null;index" json:"published"`
	Featured        bool      `gorm:"column:is_featured;not null" json:"featured"`
	CommentsEnabled bool      `gorm:"not null" json:"comments_enabled"`
	AuthorID        uint      `gorm:"not null;index" json:"author_id"`
	Author          *User     `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
	Comments        []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SetContent replaces the content and recomputes the excerpt.
func (p *Post) SetContent(content string) {
	p.Content = content
	p.Excerpt = MakeExcerpt(content)
}

// MakeExcerpt cuts content to the excerpt length on a rune boundary.
func MakeExcerpt(content string) string {
	r := []rune(content)
	if len(r) <= excerptLength {
		return content
	}
	return string(r[:excerptLength]) + "..."
}

type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// DashboardStats backs the admin dashboard.
type DashboardStats struct {
	TotalUsers        int64            `json:"total_users"`
	TotalAdmins       int64            `json:"total_admins"`
	ActiveUsers       int64            `json:"active_users"`
	NewUsersToday     int64            `json:"new_users_today"`
	NewUsersThisMonth int64            `json:"new_users_this_month"`
	TotalPosts        int64            `json:"total_posts"`
	PublishedPosts    int64            `json:"published_posts"`
	FeaturedPosts     int64            `json:"featured_posts"`
	TotalComments     int64            `json:"total_comments"`
	TodayAdminLogins  int64            `json:"today_admin_logins"`
	CategoryStats     map[string]int64 `json:"category_stats"`
	ActionsByDay      []DailyCount     `json:"actions_by_day"`
	RegistrationChart []DailyCount     `json:"registration_chart"`
	RecentUsers       []User           `json:"recent_users"`
	RecentAdminLogins []LoginAttempt   `json:"recent_admin_logins"`
}

// DailyCount is one bucket of a per-day histogram. Day is formatted 2006-01-02.
type DailyCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}
