package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/blogprojesi/backend/internal/models"
)

const maxCommentLength = 2000

type CommentService struct {
	db       *gorm.DB
	settings *SettingsService
	audit    *AuditLogService
}

func NewCommentService(db *gorm.DB, settings *SettingsService, audit *AuditLogService) *CommentService {
	return &CommentService{db: db, settings: settings, audit: audit}
}

// Add posts a comment on a published post that accepts comments.
func (s *CommentService) Add(ctx context.Context, postID uint, author *models.User, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalid("comment cannot be empty")
	}
	if len([]rune(content)) > maxCommentLength {
		return nil, invalid("comment must be at most %d characters", maxCommentLength)
	}
	if !s.settings.AreCommentsEnabled(ctx) {
		return nil, invalid("comments are disabled on this site")
	}

	var post models.Post
	err := s.db.WithContext(ctx).First(&post, postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("post %d not found", postID)
	}
	if err != nil {
		return nil, fmt.Errorf("load post %d: %w", postID, err)
	}
	if !post.Published {
		return nil, invalid("comments are only allowed on published posts")
	}
	if !post.CommentsEnabled {
		return nil, invalid("comments are disabled for this post")
	}

	comment := models.Comment{Content: content, UserID: author.ID, PostID: post.ID}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	comment.User = author
	return &comment, nil
}

func (s *CommentService) get(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	err := s.db.WithContext(ctx).First(&comment, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("comment %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load comment %d: %w", id, err)
	}
	return &comment, nil
}

// Update replaces the text of a comment on behalf of its author.
func (s *CommentService) Update(ctx context.Context, id uint, user *models.User, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalid("comment cannot be empty")
	}
	if len([]rune(content)) > maxCommentLength {
		return nil, invalid("comment must be at most %d characters", maxCommentLength)
	}
	comment, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if comment.UserID != user.ID {
		return nil, forbidden("only the author can edit this comment")
	}
	if err := s.db.WithContext(ctx).Model(comment).Update("content", content).Error; err != nil {
		return nil, fmt.Errorf("update comment %d: %w", id, err)
	}
	comment.Content = content
	return comment, nil
}

// Delete removes a comment on behalf of its author.
func (s *CommentService) Delete(ctx context.Context, id uint, user *models.User) error {
	comment, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if comment.UserID != user.ID {
		return forbidden("only the author can delete this comment")
	}
	if err := s.db.WithContext(ctx).Delete(comment).Error; err != nil {
		return fmt.Errorf("delete comment %d: %w", id, err)
	}
	return nil
}

func (s *CommentService) AdminDelete(ctx context.Context, id uint, admin *models.User, ip string) error {
	comment, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(comment).Error; err != nil {
		return fmt.Errorf("delete comment %d: %w", id, err)
	}
	_, err = s.audit.LogCommentDelete(ctx, admin, comment.ID, comment.PostID, ip)
	warnAuditFailure(models.ActionCommentDelete, err)
	return nil
}

// ListForPost returns a post's comments oldest first.
func (s *CommentService) ListForPost(ctx context.Context, postID uint) ([]models.Comment, error) {
	comments := []models.Comment{}
	err := s.db.WithContext(ctx).Preload("User").
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("list comments of post %d: %w", postID, err)
	}
	return comments, nil
}

// ListAll pages through every comment, newest first, for moderation.
func (s *CommentService) ListAll(ctx context.Context, page, size int) (*Page[models.Comment], error) {
	page, size = normalizePage(page, size)
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count comments: %w", err)
	}
	var comments []models.Comment
	err := s.db.WithContext(ctx).Preload("User").
		Order("created_at DESC, id DESC").
		Offset(page * size).Limit(size).
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return newPage(comments, page, size, total), nil
}

func (s *CommentService) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return n, nil
}
