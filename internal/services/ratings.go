package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blogprojesi/backend/internal/models"
)

type RatingService struct {
	db    *gorm.DB
	posts *PostService
}

func NewRatingService(db *gorm.DB, posts *PostService) *RatingService {
	return &RatingService{db: db, posts: posts}
}

// publishedPost loads a post readers can see; drafts are reported as missing.
func publishedPost(ctx context.Context, posts *PostService, id uint) (*models.Post, error) {
	post, err := posts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !post.Published {
		return nil, notFound("post %d not found", id)
	}
	return post, nil
}

// Rate records user's score for a published post, replacing an earlier one.
func (s *RatingService) Rate(ctx context.Context, user *models.User, postID uint, score int) (*models.Rating, error) {
	if !models.ValidScore(score) {
		return nil, invalid("score must be between %d and %d", models.MinRatingScore, models.MaxRatingScore)
	}
	if _, err := publishedPost(ctx, s.posts, postID); err != nil {
		return nil, err
	}

	rating := models.Rating{UserID: user.ID, PostID: postID, Score: score}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "post_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "updated_at"}),
	}).Create(&rating).Error
	if err != nil {
		return nil, fmt.Errorf("rate post %d: %w", postID, err)
	}

	var saved models.Rating
	err = s.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", user.ID, postID).First(&saved).Error
	if err != nil {
		return nil, fmt.Errorf("reload rating of post %d: %w", postID, err)
	}
	return &saved, nil
}

// Remove deletes user's rating of the post. Removing a missing rating is
// not an error.
func (s *RatingService) Remove(ctx context.Context, user *models.User, postID uint) error {
	err := s.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", user.ID, postID).Delete(&models.Rating{}).Error
	if err != nil {
		return fmt.Errorf("remove rating of post %d: %w", postID, err)
	}
	return nil
}

// UserScore returns user's score for the post, or nil.
func (s *RatingService) UserScore(ctx context.Context, user *models.User, postID uint) (*int, error) {
	var rating models.Rating
	err := s.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", user.ID, postID).First(&rating).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load rating of post %d: %w", postID, err)
	}
	return &rating.Score, nil
}

// Summary aggregates a published post's ratings. The average is rounded to
// one decimal and is 0 without ratings. user may be nil.
func (s *RatingService) Summary(ctx context.Context, postID uint, user *models.User) (*models.RatingSummary, error) {
	if _, err := publishedPost(ctx, s.posts, postID); err != nil {
		return nil, err
	}

	var rows []struct {
		Score int
		Count int64
	}
	err := s.db.WithContext(ctx).Model(&models.Rating{}).
		Select("score, COUNT(*) AS count").
		Where("post_id = ?", postID).
		Group("score").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("rating distribution of post %d: %w", postID, err)
	}

	summary := &models.RatingSummary{PostID: postID, Distribution: make(map[int]int64, models.MaxRatingScore)}
	for score := models.MinRatingScore; score <= models.MaxRatingScore; score++ {
		summary.Distribution[score] = 0
	}
	var sum int64
	for _, r := range rows {
		summary.Distribution[r.Score] = r.Count
		summary.Count += r.Count
		sum += int64(r.Score) * r.Count
	}
	if summary.Count > 0 {
		summary.Average = math.Round(float64(sum)/float64(summary.Count)*10) / 10
	}

	if user != nil {
		if summary.UserScore, err = s.UserScore(ctx, user, postID); err != nil {
			return nil, err
		}
	}
	return summary, nil
}
