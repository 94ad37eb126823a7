package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/blogprojesi/backend/internal/models"
)

type BookmarkService struct {
	db    *gorm.DB
	posts *PostService
}

func NewBookmarkService(db *gorm.DB, posts *PostService) *BookmarkService {
	return &BookmarkService{db: db, posts: posts}
}

// Toggle bookmarks a published post, or removes the bookmark when it
// exists. It reports whether the post is bookmarked afterwards.
func (s *BookmarkService) Toggle(ctx context.Context, user *models.User, postID uint) (bool, error) {
	if _, err := publishedPost(ctx, s.posts, postID); err != nil {
		return false, err
	}

	res := s.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", user.ID, postID).Delete(&models.Bookmark{})
	if res.Error != nil {
		return false, fmt.Errorf("remove bookmark of post %d: %w", postID, res.Error)
	}
	if res.RowsAffected > 0 {
		return false, nil
	}

	bookmark := models.Bookmark{UserID: user.ID, PostID: postID}
	if err := s.db.WithContext(ctx).Create(&bookmark).Error; err != nil {
		// a concurrent toggle added it first
		if isDuplicate(err) {
			return true, nil
		}
		return false, fmt.Errorf("bookmark post %d: %w", postID, err)
	}
	return true, nil
}

func (s *BookmarkService) IsBookmarked(ctx context.Context, user *models.User, postID uint) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Bookmark{}).
		Where("user_id = ? AND post_id = ?", user.ID, postID).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check bookmark of post %d: %w", postID, err)
	}
	return n > 0, nil
}

// Posts returns the posts user bookmarked, most recently bookmarked first.
// Posts that were unpublished since are left out.
func (s *BookmarkService) Posts(ctx context.Context, user *models.User) ([]models.Post, error) {
	var bookmarks []models.Bookmark
	err := s.db.WithContext(ctx).
		Preload("Post").Preload("Post.Author").
		Where("user_id = ?", user.ID).
		Order("created_at DESC, id DESC").
		Find(&bookmarks).Error
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	posts := make([]models.Post, 0, len(bookmarks))
	for _, b := range bookmarks {
		if b.Post != nil && b.Post.Published {
			posts = append(posts, *b.Post)
		}
	}
	return posts, nil
}

func (s *BookmarkService) CountForPost(ctx context.Context, postID uint) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Bookmark{}).Where("post_id = ?", postID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count bookmarks of post %d: %w", postID, err)
	}
	return n, nil
}
