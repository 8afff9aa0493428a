package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/kshitizz36/Urumi-AI/pkg/domain"
)

type auditListData struct {
	Entries []auditEntryDTO `json:"entries"`
}

// ListAuditHandler implements GET /api/audit (§6): filters storeId,
// action, limit (default 50).
func ListAuditHandler(audit Audit) echo.HandlerFunc {
	return func(c echo.Context) error {
		q := domain.AuditQuery{}
		if v := c.QueryParam("storeId"); v != "" {
			q.StoreID = &v
		}
		if v := c.QueryParam("action"); v != "" {
			q.Action = &v
		}
		if v := c.QueryParam("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return apiErr(http.StatusBadRequest, "validation-error", `"limit" must be a positive integer`)
			}
			q.Limit = n
		}

		entries, err := audit.Query(c.Request().Context(), q)
		if err != nil {
			return respondFromError(err)
		}

		out := make([]auditEntryDTO, 0, len(entries))
		for _, e := range entries {
			out = append(out, toAuditEntryDTO(e))
		}
		return ok(c, http.StatusOK, auditListData{Entries: out})
	}
}
