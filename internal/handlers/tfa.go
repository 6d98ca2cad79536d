package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oultic/oultic-backend/internal/requestdata"
	"github.com/oultic/oultic-backend/internal/services"
)

type TFAHandler struct {
	tfaService services.TFAService
}

func NewTFAHandler(tfaService services.TFAService) *TFAHandler {
	return &TFAHandler{tfaService: tfaService}
}

func (th *TFAHandler) BeginSetup(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request data"))
		return
	}
	setup, err := th.tfaService.BeginSetup(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, setup)
}

type tfaCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

func (th *TFAHandler) ConfirmSetup(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request data"))
		return
	}
	var req tfaCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	codes, err := th.tfaService.ConfirmSetup(c.Request.Context(), rd.UserID, req.Code)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"backup_codes": codes})
}

func (th *TFAHandler) Disable(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request data"))
		return
	}
	var req tfaCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := th.tfaService.Disable(c.Request.Context(), rd.UserID, req.Code); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"tfa_enabled": false})
}

type tfaLoginRequest struct {
	Ticket string `json:"ticket" binding:"required"`
	Code   string `json:"code" binding:"required"`
}

func (th *TFAHandler) CompleteLogin(c *gin.Context) {
	var req tfaLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	result, err := th.tfaService.CompleteLogin(c.Request.Context(), req.Ticket, req.Code)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}
