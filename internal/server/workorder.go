package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	workorderdomain "github.com/opticore/opticore/internal/workorder/domain"
	"github.com/opticore/opticore/pkg/db/pagination"
)

type createWorkOrderRequest struct {
	CustomerID   string `json:"customer_id"`
	OrderID      string `json:"order_id"`
	Prescription string `json:"prescription"`
	LabNotes     string `json:"lab_notes"`
	DueAt        string `json:"due_at"`
}

func (s *Server) CreateWorkOrder(c *gin.Context) {
	var req createWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	dueAt, err := parseOptionalTime(req.DueAt, false)
	if err != nil {
		AbortWithError(c, newValidationError("due_at", "invalid_due_at", "invalid due_at"))
		return
	}

	resp, err := s.workOrderSvc.Create(c.Request.Context(), workorderdomain.CreateWorkOrderRequest{
		CustomerID:   strings.TrimSpace(req.CustomerID),
		OrderID:      strings.TrimSpace(req.OrderID),
		Prescription: strings.TrimSpace(req.Prescription),
		LabNotes:     strings.TrimSpace(req.LabNotes),
		DueAt:        dueAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListWorkOrders(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status     string `form:"status"`
		CustomerID string `form:"customer_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.workOrderSvc.List(c.Request.Context(), workorderdomain.ListWorkOrderRequest{
		PageToken:  query.PageToken,
		PageSize:   int32(query.PageSize),
		Status:     workorderdomain.Status(strings.TrimSpace(query.Status)),
		CustomerID: strings.TrimSpace(query.CustomerID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetWorkOrderByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.workOrderSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AdvanceWorkOrder(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.workOrderSvc.Advance(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelWorkOrder(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.workOrderSvc.Cancel(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
