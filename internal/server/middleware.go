package server

import (
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/opticore/opticore/internal/branchctx"
	"github.com/opticore/opticore/internal/obscontext"
)

const HeaderBranch = "X-Branch-ID"

// BranchContext resolves the active branch from the X-Branch-ID header and
// injects it into the request context. Requests without a header fall back
// to the configured default branch when one is set.
func (s *Server) BranchContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderBranch))

		var branchID int64
		if raw != "" {
			parsed, err := snowflake.ParseString(raw)
			if err != nil || parsed == 0 {
				AbortWithError(c, newValidationError("branch_id", "invalid_branch", "invalid branch header"))
				return
			}
			branchID = int64(parsed)
		} else if s.cfg.DefaultBranchID != 0 {
			branchID = s.cfg.DefaultBranchID
		}

		if branchID == 0 {
			AbortWithError(c, newValidationError("branch_id", "invalid_branch", "missing branch header"))
			return
		}

		ctx := branchctx.WithBranchID(c.Request.Context(), branchID)
		ctx = obscontext.WithBranchID(ctx, strconv.FormatInt(branchID, 10))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
