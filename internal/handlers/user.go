package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"crm/internal/service"
)

type updateUserRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email" binding:"omitempty,email"`
	Role  *string `json:"role"`
}

func GetMe(svc *service.UserService, logger *zap.Logger) gin.HandlerFunc {
	const route = "GET /users/me"
	return func(c *gin.Context) {
		id, ok := caller(c)
		if !ok {
			return
		}

		me, err := svc.Me(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, me)
	}
}

func GetTeamMembers(svc *service.UserService, logger *zap.Logger) gin.HandlerFunc {
	const route = "GET /users/team-members"
	return func(c *gin.Context) {
		id, ok := caller(c)
		if !ok {
			return
		}

		roster, err := svc.TeamMembers(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, roster)
	}
}

func ListUsers(svc *service.UserService, logger *zap.Logger) gin.HandlerFunc {
	const route = "GET /users"
	return func(c *gin.Context) {
		id, ok := caller(c)
		if !ok {
			return
		}

		users, err := svc.List(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

func GetUser(svc *service.UserService, logger *zap.Logger) gin.HandlerFunc {
	const route = "GET /users/:id"
	return func(c *gin.Context) {
		id, ok := caller(c)
		if !ok {
			return
		}

		user, err := svc.Get(c.Request.Context(), id, c.Param("id"))
		if err != nil {
			respondError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func UpdateUser(svc *service.UserService, logger *zap.Logger) gin.HandlerFunc {
	const route = "PUT /users/:id"
	return func(c *gin.Context) {
		id, ok := caller(c)
		if !ok {
			return
		}

		var req updateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		user, err := svc.Update(c.Request.Context(), id, c.Param("id"), service.UpdateUserInput{
			Name:  req.Name,
			Email: req.Email,
			Role:  req.Role,
		})
		if err != nil {
			respondError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func DeleteUser(svc *service.UserService, logger *zap.Logger) gin.HandlerFunc {
	const route = "DELETE /users/:id"
	return func(c *gin.Context) {
		id, ok := caller(c)
		if !ok {
			return
		}

		if err := svc.Delete(c.Request.Context(), id, c.Param("id")); err != nil {
			respondError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
	}
}
