package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/blogprojesi/backend/internal/models"
	"github.com/blogprojesi/backend/internal/utils"
)

type PostService struct {
	db    *gorm.DB
	audit *AuditLogService
}

func NewPostService(db *gorm.DB, audit *AuditLogService) *PostService {
	return &PostService{db: db, audit: audit}
}

type PostInput struct {
	Title           string `json:"title" form:"title"`
	Content         string `json:"content" form:"content"`
	PostType        string `json:"post_type" form:"post_type"`
	URL             string `json:"url" form:"url"`
	ImageURL        string `json:"image_url" form:"image_url"`
	Category        string `json:"category" form:"category"`
	Published       bool   `json:"published" form:"published"`
	CommentsEnabled *bool  `json:"comments_enabled" form:"comments_enabled"`
}

type PostFilter struct {
	Search    string
	Category  string
	Published *bool
	Page      int
	Size      int
}

// apply validates in and copies it onto p.
func (in PostInput) apply(p *models.Post) error {
	title := strings.TrimSpace(in.Title)
	if ok, msg := utils.ValidatePostTitle(title); !ok {
		return invalid("%s", msg)
	}
	postType := models.PostType(strings.ToUpper(strings.TrimSpace(in.PostType)))
	if postType == "" {
		postType = models.PostTypeText
	}
	if !postType.Valid() {
		return invalid("unknown post type %q", in.PostType)
	}
	url := strings.TrimSpace(in.URL)
	imageURL := strings.TrimSpace(in.ImageURL)
	switch postType {
	case models.PostTypeLink:
		if !utils.ValidateURL(url) {
			return invalid("link posts require a valid http(s) URL")
		}
	case models.PostTypeImage:
		if !utils.ValidateURL(imageURL) {
			return invalid("image posts require a valid image URL")
		}
	}
	if url != "" && !utils.ValidateURL(url) {
		return invalid("invalid URL")
	}

	p.Title = title
	p.PostType = postType
	p.SetContent(strings.TrimSpace(in.Content))
	p.URL = optional(url)
	p.ImageURL = optional(imageURL)
	p.Category = optional(strings.TrimSpace(in.Category))
	p.Published = in.Published
	if in.CommentsEnabled != nil {
		p.CommentsEnabled = *in.CommentsEnabled
	}
	return nil
}

func (s *PostService) Create(ctx context.Context, author *models.User, in PostInput) (*models.Post, error) {
	post := models.Post{AuthorID: author.ID, CommentsEnabled: true}
	if err := in.apply(&post); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return &post, nil
}

func (s *PostService) load(ctx context.Context, db *gorm.DB, id uint) (*models.Post, error) {
	var post models.Post
	err := db.WithContext(ctx).Preload("Author").First(&post, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("post %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load post %d: %w", id, err)
	}
	return &post, nil
}

func (s *PostService) Get(ctx context.Context, id uint) (*models.Post, error) {
	return s.load(ctx, s.db, id)
}

func (s *PostService) save(ctx context.Context, post *models.Post) error {
	err := s.db.WithContext(ctx).Model(post).Select(
		"title", "content", "excerpt", "post_type", "url", "image_url",
		"category", "is_published", "comments_enabled", "updated_at",
	).Updates(post).Error
	if err != nil {
		return fmt.Errorf("update post %d: %w", post.ID, err)
	}
	return nil
}

// Update lets the author edit their own post.
func (s *PostService) Update(ctx context.Context, id uint, author *models.User, in PostInput) (*models.Post, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != author.ID {
		return nil, forbidden("only the author can edit this post")
	}
	if err := in.apply(post); err != nil {
		return nil, err
	}
	if err := s.save(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Delete lets the author remove their own post with its comments, ratings
// and bookmarks.
func (s *PostService) Delete(ctx context.Context, id uint, author *models.User) error {
	post, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if post.AuthorID != author.ID {
		return forbidden("only the author can delete this post")
	}
	return s.remove(ctx, post.ID)
}

func (s *PostService) remove(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, dependent := range []any{&models.Comment{}, &models.Rating{}, &models.Bookmark{}} {
			if err := tx.Where("post_id = ?", id).Delete(dependent).Error; err != nil {
				return fmt.Errorf("delete %T of post %d: %w", dependent, id, err)
			}
		}
		if err := tx.Delete(&models.Post{}, id).Error; err != nil {
			return fmt.Errorf("delete post %d: %w", id, err)
		}
		return nil
	})
}

// GetPublished returns a published post and counts the view.
func (s *PostService) GetPublished(ctx context.Context, id uint) (*models.Post, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !post.Published {
		return nil, notFound("post %d not found", id)
	}
	err = s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
	if err != nil {
		return nil, fmt.Errorf("count view of post %d: %w", id, err)
	}
	post.ViewCount++
	return post, nil
}

func (s *PostService) ListPublished(ctx context.Context, f PostFilter) (*Page[models.Post], error) {
	published := true
	f.Published = &published
	return s.List(ctx, f)
}

// List pages through posts, newest first. It backs both the public listing
// and the admin post table.
func (s *PostService) List(ctx context.Context, f PostFilter) (*Page[models.Post], error) {
	page, size := normalizePage(f.Page, f.Size)
	q := s.db.WithContext(ctx).Model(&models.Post{})
	if f.Published != nil {
		q = q.Where("is_published = ?", *f.Published)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}
	var posts []models.Post
	err := q.Preload("Author").Order("created_at DESC, id DESC").Offset(page * size).Limit(size).Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return newPage(posts, page, size, total), nil
}

// Featured returns up to limit published featured posts, newest first.
func (s *PostService) Featured(ctx context.Context, limit int) ([]models.Post, error) {
	if limit <= 0 {
		limit = 5
	}
	var posts []models.Post
	err := s.db.WithContext(ctx).Preload("Author").
		Where("is_published = ? AND is_featured = ?", true, true).
		Order("created_at DESC, id DESC").Limit(limit).Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("list featured posts: %w", err)
	}
	return posts, nil
}

func (s *PostService) AdminUpdate(ctx context.Context, id uint, in PostInput, admin *models.User, ip string) (*models.Post, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(post); err != nil {
		return nil, err
	}
	if err := s.save(ctx, post); err != nil {
		return nil, err
	}
	_, err = s.audit.LogPostAction(ctx, admin, models.ActionPostUpdate, post.ID, "Post updated: "+post.Title, ip)
	warnAuditFailure(models.ActionPostUpdate, err)
	return post, nil
}

func (s *PostService) TogglePublished(ctx context.Context, id uint, admin *models.User, ip string) (*models.Post, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	post.Published = !post.Published
	if err := s.db.WithContext(ctx).Model(post).Update("is_published", post.Published).Error; err != nil {
		return nil, fmt.Errorf("toggle publish of post %d: %w", id, err)
	}

	action, description := models.ActionPostUnpublish, "Post unpublished: "+post.Title
	if post.Published {
		action, description = models.ActionPostPublish, "Post published: "+post.Title
	}
	_, err = s.audit.LogPostAction(ctx, admin, action, post.ID, description, ip)
	warnAuditFailure(action, err)
	return post, nil
}

func (s *PostService) ToggleFeatured(ctx context.Context, id uint, admin *models.User, ip string) (*models.Post, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	post.Featured = !post.Featured
	if err := s.db.WithContext(ctx).Model(post).Update("is_featured", post.Featured).Error; err != nil {
		return nil, fmt.Errorf("toggle feature of post %d: %w", id, err)
	}

	description := "Post unfeatured: " + post.Title
	if post.Featured {
		description = "Post featured: " + post.Title
	}
	_, err = s.audit.LogPostAction(ctx, admin, models.ActionPostFeature, post.ID, description, ip)
	warnAuditFailure(models.ActionPostFeature, err)
	return post, nil
}

func (s *PostService) AdminDelete(ctx context.Context, id uint, admin *models.User, ip string) error {
	post, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.remove(ctx, post.ID); err != nil {
		return err
	}
	_, err = s.audit.LogPostAction(ctx, admin, models.ActionPostDelete, post.ID, "Post deleted: "+post.Title, ip)
	warnAuditFailure(models.ActionPostDelete, err)
	return nil
}

type categoryCount struct {
	Category string
	Count    int64
}

// CountByCategory counts posts per non-empty category.
func (s *PostService) CountByCategory(ctx context.Context) (map[string]int64, error) {
	var rows []categoryCount
	err := s.db.WithContext(ctx).Model(&models.Post{}).
		Select("category, COUNT(*) AS count").
		Where("category IS NOT NULL AND category <> ''").
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count posts by category: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Category] = r.Count
	}
	return out, nil
}
