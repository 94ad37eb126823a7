package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type ratingRequest struct {
	Score int `json:"score" form:"score"`
}

type bookmarkResponse struct {
	PostID     uint `json:"post_id"`
	Bookmarked bool `json:"bookmarked"`
}

// PostRating godoc
// @Summary Rating summary of a post
// @Description Average (one decimal), count and 1-5 distribution. The caller's own score is included when a user session is present.
// @Tags Ratings
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} dataResponse{data=models.RatingSummary}
// @Failure 404 {object} simpleResponse
// @Router /posts/{id}/rating [get]
func (s *Server) PostRating(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	// optional session: anonymous readers get the summary without user_score
	user, _ := s.sessionUser(c, UserPipeline)
	summary, err := s.Services.Ratings.Summary(c.Request().Context(), id, user)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, summary)
}

// RatePost godoc
// @Summary Rate a post
// @Description Score a published post from 1 to 5. Rating again replaces the earlier score.
// @Tags Ratings
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body ratingRequest true "Score"
// @Success 200 {object} dataResponse{data=models.RatingSummary}
// @Failure 400 {object} simpleResponse
// @Failure 404 {object} simpleResponse
// @Router /posts/{id}/rating [post]
func (s *Server) RatePost(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req ratingRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid payload")
	}
	ctx := c.Request().Context()
	user := currentUser(c)
	if _, err := s.Services.Ratings.Rate(ctx, user, id, req.Score); err != nil {
		return respondError(c, err)
	}
	summary, err := s.Services.Ratings.Summary(ctx, id, user)
	if err != nil {
		return respondError(c, err)
	}
	return okMessage(c, "Rating saved", summary)
}

// RemoveRating godoc
// @Summary Remove your rating of a post
// @Tags Ratings
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} simpleResponse
// @Router /posts/{id}/rating [delete]
func (s *Server) RemoveRating(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := s.Services.Ratings.Remove(c.Request().Context(), currentUser(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, simpleResponse{Success: true, Message: "Rating removed"})
}

// ToggleBookmark godoc
// @Summary Bookmark or un-bookmark a post
// @Tags Bookmarks
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} dataResponse{data=bookmarkResponse}
// @Failure 404 {object} simpleResponse
// @Router /posts/{id}/bookmark [post]
func (s *Server) ToggleBookmark(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	bookmarked, err := s.Services.Bookmarks.Toggle(c.Request().Context(), currentUser(c), id)
	if err != nil {
		return respondError(c, err)
	}
	message := "Bookmark removed"
	if bookmarked {
		message = "Bookmark added"
	}
	return okMessage(c, message, bookmarkResponse{PostID: id, Bookmarked: bookmarked})
}

// Bookmarks godoc
// @Summary List your bookmarked posts
// @Tags Bookmarks
// @Produce json
// @Success 200 {object} dataResponse{data=[]models.Post}
// @Router /bookmarks [get]
func (s *Server) Bookmarks(c echo.Context) error {
	posts, err := s.Services.Bookmarks.Posts(c.Request().Context(), currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, posts)
}
