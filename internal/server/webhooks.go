package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	webhookdomain "github.com/lumafi/lumafi/internal/webhook/domain"
)

func (s *Server) handleChainWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		AbortWithError(c, webhookdomain.ErrInvalidPayload)
		return
	}

	receipt, err := s.webhookSvc.Ingest(c.Request.Context(), body, c.GetHeader(SignatureHeader))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, receipt)
}
