package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/blogprojesi/backend/internal/services"
)

type commentRequest struct {
	Content string `json:"content" form:"content" example:"Nice post!"`
}

// ListPosts godoc
// @Summary List published posts
// @Tags Posts
// @Produce json
// @Param page query int false "Zero-based page" default(0)
// @Param size query int false "Page size" default(20)
// @Param category query string false "Filter by category"
// @Param search query string false "Search title and content"
// @Success 200 {object} dataResponse
// @Router /posts [get]
func (s *Server) ListPosts(c echo.Context) error {
	page, size := pageParams(c)
	result, err := s.Services.Posts.ListPublished(c.Request().Context(), services.PostFilter{
		Search:   c.QueryParam("search"),
		Category: c.QueryParam("category"),
		Page:     page,
		Size:     size,
	})
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, result)
}

// GetPost godoc
// @Summary Get a published post
// @Description Returns the post and counts one view
// @Tags Posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} dataResponse
// @Failure 404 {object} simpleResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	post, err := s.Services.Posts.GetPublished(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, post)
}

// ListPostComments godoc
// @Summary List a post's comments
// @Tags Posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} dataResponse
// @Router /posts/{id}/comments [get]
func (s *Server) ListPostComments(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	comments, err := s.Services.Comments.ListForPost(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, comments)
}

// CreatePost godoc
// @Summary Create a post
// @Tags Posts
// @Accept json
// @Produce json
// @Param request body services.PostInput true "Post"
// @Success 200 {object} dataResponse
// @Failure 400 {object} simpleResponse
// @Failure 401 {object} simpleResponse
// @Router /posts [post]
func (s *Server) CreatePost(c echo.Context) error {
	var req services.PostInput
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid payload")
	}
	post, err := s.Services.Posts.Create(c.Request().Context(), currentUser(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return okMessage(c, "Post created", post)
}

// UpdatePost godoc
// @Summary Update your own post
// @Tags Posts
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body services.PostInput true "Post"
// @Success 200 {object} dataResponse
// @Failure 403 {object} simpleResponse
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req services.PostInput
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid payload")
	}
	post, err := s.Services.Posts.Update(c.Request().Context(), id, currentUser(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return okMessage(c, "Post updated", post)
}

// DeletePost godoc
// @Summary Delete your own post
// @Tags Posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} simpleResponse
// @Failure 403 {object} simpleResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := s.Services.Posts.Delete(c.Request().Context(), id, currentUser(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, simpleResponse{Success: true, Message: "Post deleted"})
}

// AddComment godoc
// @Summary Comment on a post
// @Tags Posts
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body commentRequest true "Comment"
// @Success 200 {object} dataResponse
// @Failure 400 {object} simpleResponse
// @Router /posts/{id}/comments [post]
func (s *Server) AddComment(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req commentRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid payload")
	}
	comment, err := s.Services.Comments.Add(c.Request().Context(), id, currentUser(c), req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return okMessage(c, "Comment added", comment)
}

// DeleteComment godoc
// @Summary Delete your own comment
// @Tags Posts
// @Produce json
// @Param id path int true "Comment ID"
// @Success 200 {object} simpleResponse
// @Failure 403 {object} simpleResponse
// @Router /comments/{id} [delete]
func (s *Server) DeleteComment(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := s.Services.Comments.Delete(c.Request().Context(), id, currentUser(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, simpleResponse{Success: true, Message: "Comment deleted"})
}

// UpdateComment godoc
// @Summary Edit your own comment
// @Tags Posts
// @Accept json
// @Produce json
// @Param id path int true "Comment ID"
// @Param request body commentRequest true "Comment"
// @Success 200 {object} dataResponse
// @Failure 400 {object} simpleResponse
// @Failure 403 {object} simpleResponse
// @Router /comments/{id} [put]
func (s *Server) UpdateComment(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req commentRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid payload")
	}
	comment, err := s.Services.Comments.Update(c.Request().Context(), id, currentUser(c), req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return okMessage(c, "Comment updated", comment)
}
