package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	quotedomain "github.com/opticore/opticore/internal/quote/domain"
	"github.com/opticore/opticore/pkg/db/pagination"
)

type createQuoteItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type createQuoteRequest struct {
	CustomerID string                   `json:"customer_id"`
	Notes      string                   `json:"notes"`
	ValidDays  int                      `json:"valid_days"`
	Items      []createQuoteItemRequest `json:"items"`
}

func (s *Server) CreateQuote(c *gin.Context) {
	var req createQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	items := make([]quotedomain.CreateQuoteItemRequest, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, quotedomain.CreateQuoteItemRequest{
			ProductID: strings.TrimSpace(item.ProductID),
			Quantity:  item.Quantity,
		})
	}

	resp, err := s.quoteSvc.Create(c.Request.Context(), quotedomain.CreateQuoteRequest{
		CustomerID: strings.TrimSpace(req.CustomerID),
		Notes:      strings.TrimSpace(req.Notes),
		ValidDays:  req.ValidDays,
		Items:      items,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListQuotes(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status     string `form:"status"`
		CustomerID string `form:"customer_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.quoteSvc.List(c.Request.Context(), quotedomain.ListQuoteRequest{
		PageToken:  query.PageToken,
		PageSize:   int32(query.PageSize),
		Status:     quotedomain.Status(strings.TrimSpace(query.Status)),
		CustomerID: strings.TrimSpace(query.CustomerID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetQuoteByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.quoteSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AcceptQuote(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.quoteSvc.Accept(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
