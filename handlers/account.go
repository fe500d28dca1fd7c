package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/phishbowl/go-services/internal/account"
	"github.com/phishbowl/go-services/pkg/logger"
)

// AccountHandler exposes self-service account erasure.
type AccountHandler struct {
	eraser *account.Eraser
}

func NewAccountHandler(e *account.Eraser) *AccountHandler {
	return &AccountHandler{eraser: e}
}

func (h *AccountHandler) Register(rg *gin.RouterGroup) {
	rg.DELETE("/account", h.Delete)
}

// Delete removes the signed-in user's scores and account record. Idempotent:
// repeating the call reports zero deletions.
func (h *AccountHandler) Delete(c *gin.Context) {
	_, email := claimStrings(c)
	if email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	res, err := h.eraser.Erase(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, account.ErrInvalidEmail) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Errorf("account erase: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "erasure failed"})
		return
	}
	c.JSON(http.StatusOK, res)
}
