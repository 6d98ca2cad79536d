package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oultic/oultic-backend/internal/requestdata"
	"github.com/oultic/oultic-backend/internal/services"
	"github.com/oultic/oultic-backend/internal/types"
)

type VideoHandler struct {
	videoService services.VideoService
}

func NewVideoHandler(videoService services.VideoService) *VideoHandler {
	return &VideoHandler{videoService: videoService}
}

func (vh *VideoHandler) Create(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request data"))
		return
	}
	var input services.VideoInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	video, err := vh.videoService.CreateVideo(c.Request.Context(), rd.UserID, input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"video": video})
}

func (vh *VideoHandler) Get(c *gin.Context) {
	videoID, err := uuid.Parse(c.Param("video_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid video id"))
		return
	}
	video, err := vh.videoService.GetVideo(c.Request.Context(), viewerID(c), videoID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"video": video})
}

func (vh *VideoHandler) Update(c *gin.Context) {
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
	var input services.VideoInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	video, err := vh.videoService.UpdateVideo(c.Request.Context(), rd.UserID, videoID, input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"video": video})
}

func (vh *VideoHandler) Delete(c *gin.Context) {
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
	if err := vh.videoService.DeleteVideo(c.Request.Context(), rd.UserID, videoID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

type viewRequest struct {
	WatchMinutes float64 `json:"watch_minutes"`
}

func (vh *VideoHandler) RecordView(c *gin.Context) {
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
	var req viewRequest
	_ = c.ShouldBindJSON(&req)
	if err := vh.videoService.RecordView(c.Request.Context(), rd.UserID, videoID, req.WatchMinutes); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"viewed": true})
}

func (vh *VideoHandler) Like(c *gin.Context) {
	vh.react(c, types.InteractionLike)
}

func (vh *VideoHandler) Dislike(c *gin.Context) {
	vh.react(c, types.InteractionDislike)
}

func (vh *VideoHandler) react(c *gin.Context, kind types.InteractionType) {
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
	if err := vh.videoService.React(c.Request.Context(), rd.UserID, videoID, kind); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"reaction": string(kind)})
}

func (vh *VideoHandler) Share(c *gin.Context) {
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
	if err := vh.videoService.RecordShare(c.Request.Context(), rd.UserID, videoID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"shared": true})
}

func (vh *VideoHandler) ListByCategory(c *gin.Context) {
	limit, offset := pagination(c, 20)
	videos, err := vh.videoService.ListByCategory(c.Request.Context(),
		types.VideoCategory(c.Param("category")), limit, offset)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"videos": videos})
}

func (vh *VideoHandler) ListByChannel(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("channel_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid channel id"))
		return
	}
	limit, offset := pagination(c, 20)
	videos, err := vh.videoService.ListByChannel(c.Request.Context(), viewerID(c), channelID, limit, offset)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"videos": videos})
}

func (vh *VideoHandler) Search(c *gin.Context) {
	limit, offset := pagination(c, 20)
	videos, err := vh.videoService.Search(c.Request.Context(),
		c.Query("q"), types.VideoCategory(c.Query("category")), limit, offset)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"videos": videos})
}

func (vh *VideoHandler) Trending(c *gin.Context) {
	limit, _ := pagination(c, 20)
	videos, err := vh.videoService.GetTrending(c.Request.Context(), limit)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"videos": videos})
}

// viewerID returns the authenticated user's id or uuid.Nil on public routes.
func viewerID(c *gin.Context) uuid.UUID {
	if rd := requestdata.GetRequestData(c.Request.Context()); rd != nil {
		return rd.UserID
	}
	return uuid.Nil
}
