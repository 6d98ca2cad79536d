package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oultic/oultic-backend/internal/requestdata"
	"github.com/oultic/oultic-backend/internal/services"
)

type CommentHandler struct {
	commentService services.CommentService
}

func NewCommentHandler(commentService services.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

type createCommentRequest struct {
	Content  string     `json:"content" binding:"required"`
	ParentID *uuid.UUID `json:"parent_id"`
}

func (ch *CommentHandler) Create(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request data"))
		return
	}
	videoID, err := uuid.Parse(c.Param("video_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid video id"))
		return
	}
	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	comment, err := ch.commentService.CreateComment(c.Request.Context(), rd.UserID, videoID, req.ParentID, req.Content)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

type editCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

func (ch *CommentHandler) Edit(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request data"))
		return
	}
	commentID, err := uuid.Parse(c.Param("comment_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid comment id"))
		return
	}
	var req editCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	comment, err := ch.commentService.EditComment(c.Request.Context(), rd.UserID, commentID, req.Content)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"comment": comment})
}

func (ch *CommentHandler) Delete(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request data"))
		return
	}
	commentID, err := uuid.Parse(c.Param("comment_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid comment id"))
		return
	}
	if err := ch.commentService.DeleteComment(c.Request.Context(), rd.UserID, commentID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

func (ch *CommentHandler) ListByVideo(c *gin.Context) {
	videoID, err := uuid.Parse(c.Param("video_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid video id"))
		return
	}
	limit, offset := pagination(c, 50)
	comments, err := ch.commentService.ListByVideo(c.Request.Context(), videoID, limit, offset)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"comments": comments})
}

func (ch *CommentHandler) ListReplies(c *gin.Context) {
	commentID, err := uuid.Parse(c.Param("comment_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid comment id"))
		return
	}
	limit, offset := pagination(c, 50)
	replies, err := ch.commentService.ListReplies(c.Request.Context(), commentID, limit, offset)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"comments": replies})
}

func (ch *CommentHandler) Like(c *gin.Context) {
	commentID, err := uuid.Parse(c.Param("comment_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid comment id"))
		return
	}
	if err := ch.commentService.LikeComment(c.Request.Context(), commentID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"liked": true})
}

type pinRequest struct {
	Pinned bool `json:"pinned"`
}

func (ch *CommentHandler) Pin(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request data"))
		return
	}
	commentID, err := uuid.Parse(c.Param("comment_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid comment id"))
		return
	}
	var req pinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := ch.commentService.PinComment(c.Request.Context(), rd.UserID, commentID, req.Pinned); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"pinned": req.Pinned})
}

type heartRequest struct {
	Hearted bool `json:"hearted"`
}

func (ch *CommentHandler) Heart(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request data"))
		return
	}
	commentID, err := uuid.Parse(c.Param("comment_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid comment id"))
		return
	}
	var req heartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := ch.commentService.HeartComment(c.Request.Context(), rd.UserID, commentID, req.Hearted); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"hearted": req.Hearted})
}
