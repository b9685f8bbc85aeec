package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tenantbook/reservations/libs/httpx"
	"github.com/tenantbook/reservations/services/availability-service/internal/tenant"
)

// AdminHandler edits store configuration. Routes are expected to sit behind
// httpx.WithBasicAuth.
type AdminHandler struct {
	stores tenant.Store
	logger *slog.Logger
}

func NewAdminHandler(stores tenant.Store, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{stores: stores, logger: logger}
}

// ListStores serves GET /api/v1/admin/stores.
func (h *AdminHandler) ListStores(w http.ResponseWriter, r *http.Request) {
	ids, err := h.stores.List(r.Context())
	if err != nil {
		h.logger.Error("list stores failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to list stores")
		return
	}
	if ids == nil {
		ids = []string{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"stores": ids})
}

// GetConfig serves GET /api/v1/admin/stores/{store}/config.
func (h *AdminHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.stores.Get(r.Context(), r.PathValue("store"))
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "store not found")
			return
		}
		h.logger.Error("load store config failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load store config")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, cfg)
}

// PutConfig serves PUT /api/v1/admin/stores/{store}/config. The path id wins
// over an empty body id; a conflicting body id is rejected.
func (h *AdminHandler) PutConfig(w http.ResponseWriter, r *http.Request) {
	storeID := r.PathValue("store")
	if !tenant.ValidStoreID(storeID) {
		httpx.WriteError(w, http.StatusBadRequest, "invalid store id")
		return
	}

	var cfg tenant.StoreConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if cfg.ID == "" {
		cfg.ID = storeID
	}
	if cfg.ID != storeID {
		httpx.WriteError(w, http.StatusBadRequest, "store id does not match path")
		return
	}

	if err := h.stores.Put(r.Context(), cfg); err != nil {
		if errors.Is(err, tenant.ErrInvalidConfig) {
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("save store config failed", "store_id", storeID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to save store config")
		return
	}
	h.logger.Info("store config updated", "store_id", storeID)
	w.WriteHeader(http.StatusNoContent)
}
