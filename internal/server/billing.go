package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/opticore/opticore/internal/branchctx"
)

type cancelBillingDocumentRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) GetBillingDocumentStatus(c *gin.Context) {
	branchID, ok := branchctx.BranchIDFromContext(c.Request.Context())
	if !ok || branchID == 0 {
		AbortWithError(c, newValidationError("branch_id", "invalid_branch", "missing branch header"))
		return
	}

	folio := strings.TrimSpace(c.Param("folio"))
	status, err := s.billing.GetDocumentStatus(c.Request.Context(), branchID, folio)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"folio":  folio,
		"status": status,
	}})
}

func (s *Server) CancelBillingDocument(c *gin.Context) {
	branchID, ok := branchctx.BranchIDFromContext(c.Request.Context())
	if !ok || branchID == 0 {
		AbortWithError(c, newValidationError("branch_id", "invalid_branch", "missing branch header"))
		return
	}

	var req cancelBillingDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	folio := strings.TrimSpace(c.Param("folio"))
	cancelled, err := s.billing.CancelDocument(c.Request.Context(), branchID, folio, strings.TrimSpace(req.Reason))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"folio":     folio,
		"cancelled": cancelled,
	}})
}
