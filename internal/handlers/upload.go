package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oultic/oultic-backend/internal/requestdata"
	"github.com/oultic/oultic-backend/internal/services"
)

type UploadHandler struct {
	uploadService services.UploadService
}

func NewUploadHandler(uploadService services.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

// POST /api/uploads/video, multipart field "file"
func (uh *UploadHandler) UploadVideoFile(c *gin.Context) {
	uh.upload(c, true)
}

// POST /api/uploads/thumbnail, multipart field "file"
func (uh *UploadHandler) UploadThumbnail(c *gin.Context) {
	uh.upload(c, false)
}

func (uh *UploadHandler) upload(c *gin.Context, isVideo bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request data"))
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("missing file field"))
		return
	}
	f, err := header.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	defer f.Close()

	var result *services.UploadResult
	if isVideo {
		result, err = uh.uploadService.SaveVideoFile(c.Request.Context(), rd.UserID, header.Filename, f)
	} else {
		result, err = uh.uploadService.SaveThumbnail(c.Request.Context(), rd.UserID, header.Filename, f)
	}
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}
