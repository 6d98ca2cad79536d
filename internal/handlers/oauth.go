package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oultic/oultic-backend/internal/services"
)

type OAuthHandler struct {
	oauthService services.OAuthService
}

func NewOAuthHandler(oauthService services.OAuthService) *OAuthHandler {
	return &OAuthHandler{oauthService: oauthService}
}

// GET /api/auth/oauth/:provider
func (oh *OAuthHandler) Start(c *gin.Context) {
	provider := c.Param("provider")
	redirectURL, err := oh.oauthService.StartLogin(c.Request.Context(), provider)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, redirectURL)
}

// GET /api/auth/oauth/:provider/callback
func (oh *OAuthHandler) Callback(c *gin.Context) {
	provider := c.Param("provider")
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("missing state or code"))
		return
	}
	result, err := oh.oauthService.HandleCallback(c.Request.Context(), provider, state, code)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}
