package handlers

import (
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kshitizz36/Urumi-AI/pkg/domain"
)

func nonEmptyPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type createStoreBody struct {
	Name   string `json:"name"`
	Engine string `json:"engine"`
}

type createStoreData struct {
	Store   storeDTO `json:"store"`
	Message string   `json:"message"`
}

// CreateStoreHandler implements POST /api/stores (§6): validate, audit
// the request, admit, 202 with the reservation on accept.
func CreateStoreHandler(orch Orchestrator, audit Audit) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body createStoreBody
		if err := c.Bind(&body); err != nil {
			return apiErr(http.StatusBadRequest, "validation-error", "malformed request body")
		}

		req := domain.CreateRequest{Name: body.Name, Engine: domain.Engine(body.Engine)}
		if err := req.Validate(); err != nil {
			return respondFromError(err)
		}

		ctx := c.Request().Context()
		sourceIP := c.RealIP()
		if err := audit.Append(ctx, domain.AuditEntry{
			Timestamp: time.Now().UTC(), Action: domain.ActionCreateRequested,
			StoreName: &body.Name, Engine: &req.Engine,
			SourceIP: nonEmptyPtr(sourceIP),
		}); err != nil {
			c.Logger().Errorf("audit append failed: %v", err)
		}

		store, err := orch.Create(ctx, sourceIP, req)
		if err != nil {
			return respondFromError(err)
		}

		return ok(c, http.StatusAccepted, createStoreData{
			Store:   toStoreDTO(store),
			Message: "store provisioning started",
		})
	}
}

type storeData struct {
	Store storeDTO `json:"store"`
}

type storeListData struct {
	Stores []storeDTO `json:"stores"`
}

// ListStoresHandler implements GET /api/stores (§6). Exclusion of
// deleted records is the repository's own contract
// (pkg/store/postgres.Repository.FindAll); this handler maps the result
// to the wire shape and orders it most-recent first by createdAt.
func ListStoresHandler(orch Orchestrator) echo.HandlerFunc {
	return func(c echo.Context) error {
		stores, err := orch.List(c.Request().Context())
		if err != nil {
			return respondFromError(err)
		}

		out := make([]storeDTO, 0, len(stores))
		for _, s := range stores {
			out = append(out, toStoreDTO(s))
		}
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

		return ok(c, http.StatusOK, storeListData{Stores: out})
	}
}

// GetStoreHandler implements GET /api/stores/{id} (§6).
func GetStoreHandler(orch Orchestrator) echo.HandlerFunc {
	return func(c echo.Context) error {
		store, err := orch.Get(c.Request().Context(), c.Param("id"))
		if err != nil {
			return respondFromError(err)
		}
		return ok(c, http.StatusOK, storeData{Store: toStoreDTO(store)})
	}
}

// DeleteStoreHandler implements DELETE /api/stores/{id} (§6): audit the
// request, 200 on success or already-deleted, 404 if unknown.
func DeleteStoreHandler(orch Orchestrator, audit Audit) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id := c.Param("id")

		if err := audit.Append(ctx, domain.AuditEntry{
			Timestamp: time.Now().UTC(), Action: domain.ActionDeleteRequested,
			StoreID:  &id,
			SourceIP: nonEmptyPtr(c.RealIP()),
		}); err != nil {
			c.Logger().Errorf("audit append failed: %v", err)
		}

		store, err := orch.Delete(ctx, id)
		if err != nil {
			return respondFromError(err)
		}
		return ok(c, http.StatusOK, storeData{Store: toStoreDTO(store)})
	}
}
