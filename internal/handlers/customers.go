package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"crm/internal/apperr"
	"crm/internal/models"
	"crm/internal/service"
)

// createCustomerRequest has no createdBy field; the creator always comes
// from the session.
type createCustomerRequest struct {
	Name       string            `json:"name" binding:"required"`
	Email      string            `json:"email" binding:"required,email"`
	Phone      string            `json:"phone"`
	Company    string            `json:"company"`
	Status     string            `json:"status"`
	AssignedTo models.StringList `json:"assignedTo"`
	Notes      string            `json:"notes"`
}

type updateCustomerRequest struct {
	Name       *string            `json:"name"`
	Email      *string            `json:"email" binding:"omitempty,email"`
	Phone      *string            `json:"phone"`
	Company    *string            `json:"company"`
	Status     *string            `json:"status"`
	AssignedTo *models.StringList `json:"assignedTo"`
	Notes      *string            `json:"notes"`
}

func ListCustomers(svc *service.CustomerService, logger *zap.Logger) gin.HandlerFunc {
	const route = "GET /customers"
	return func(c *gin.Context) {
		id, ok := caller(c)
		if !ok {
			return
		}

		q := models.CustomerQuery{
			Status:     c.Query("status"),
			AssignedTo: c.Query("assignedTo"),
		}

		pageStr := c.Query("page")
		limitStr := c.Query("limit")
		if pageStr != "" || limitStr != "" {
			page, limit, err := parsePaginationParams(pageStr, limitStr)
			if err != nil {
				respondError(c, logger, route, apperr.Validation(err.Error()))
				return
			}
			q.Page, q.Limit = page, limit
		}

		customers, err := svc.List(c.Request.Context(), id, q)
		if err != nil {
			respondError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, customers)
	}
}

func GetCustomer(svc *service.CustomerService, logger *zap.Logger) gin.HandlerFunc {
	const route = "GET /customers/:id"
	return func(c *gin.Context) {
		id, ok := caller(c)
		if !ok {
			return
		}

		customer, err := svc.Get(c.Request.Context(), id, c.Param("id"))
		if err != nil {
			respondError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, customer)
	}
}

func CreateCustomer(svc *service.CustomerService, logger *zap.Logger) gin.HandlerFunc {
	const route = "POST /customers"
	return func(c *gin.Context) {
		id, ok := caller(c)
		if !ok {
			return
		}

		var req createCustomerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		customer, err := svc.Create(c.Request.Context(), id, service.CreateCustomerInput{
			Name:       req.Name,
			Email:      req.Email,
			Phone:      req.Phone,
			Company:    req.Company,
			Status:     req.Status,
			AssignedTo: req.AssignedTo,
			Notes:      req.Notes,
		})
		if err != nil {
			respondError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusCreated, customer)
	}
}

func UpdateCustomer(svc *service.CustomerService, logger *zap.Logger) gin.HandlerFunc {
	const route = "PUT /customers/:id"
	return func(c *gin.Context) {
		id, ok := caller(c)
		if !ok {
			return
		}

		var req updateCustomerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		var assigned *[]string
		if req.AssignedTo != nil {
			ids := []string(*req.AssignedTo)
			assigned = &ids
		}

		customer, err := svc.Update(c.Request.Context(), id, c.Param("id"), service.UpdateCustomerInput{
			Name:       req.Name,
			Email:      req.Email,
			Phone:      req.Phone,
			Company:    req.Company,
			Status:     req.Status,
			AssignedTo: assigned,
			Notes:      req.Notes,
		})
		if err != nil {
			respondError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, customer)
	}
}

func DeleteCustomer(svc *service.CustomerService, logger *zap.Logger) gin.HandlerFunc {
	const route = "DELETE /customers/:id"
	return func(c *gin.Context) {
		id, ok := caller(c)
		if !ok {
			return
		}

		if err := svc.Delete(c.Request.Context(), id, c.Param("id")); err != nil {
			respondError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Customer deleted successfully"})
	}
}

func GetCustomerStats(svc *service.CustomerService, logger *zap.Logger) gin.HandlerFunc {
	const route = "GET /customers/stats"
	return func(c *gin.Context) {
		id, ok := caller(c)
		if !ok {
			return
		}

		stats, err := svc.Stats(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}
