package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	userdomain "github.com/lumafi/lumafi/internal/user/domain"
)

func (s *Server) handleCreateUser(c *gin.Context) {
	var body userdomain.CreateUserRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, userdomain.ErrInvalidWallet)
		return
	}

	created, err := s.userSvc.Create(c.Request.Context(), body)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (s *Server) handleGetUserByWallet(c *gin.Context) {
	user, err := s.userSvc.GetByWallet(c.Request.Context(), c.Query("wallet"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (s *Server) handleGetCreditScore(c *gin.Context) {
	userID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, userdomain.ErrNotFound)
		return
	}

	if _, err := s.userSvc.GetByID(c.Request.Context(), userID); err != nil {
		AbortWithError(c, err)
		return
	}

	view, err := s.scoreSvc.GetScore(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}
