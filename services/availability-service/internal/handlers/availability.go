package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tenantbook/reservations/libs/httpx"
	"github.com/tenantbook/reservations/services/availability-service/internal/availability"
	"github.com/tenantbook/reservations/services/availability-service/internal/calendar"
	"github.com/tenantbook/reservations/services/availability-service/internal/menu"
	"github.com/tenantbook/reservations/services/availability-service/internal/reservations"
	"github.com/tenantbook/reservations/services/availability-service/internal/tenant"
)

type AvailabilityHandler struct {
	svc    *reservations.Service
	logger *slog.Logger
}

func NewAvailabilityHandler(svc *reservations.Service, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{svc: svc, logger: logger}
}

type durationResponse struct {
	StoreID      string   `json:"store_id"`
	TotalMinutes int      `json:"total_minutes"`
	Unmatched    []string `json:"unmatched,omitempty"`
}

type publicConfigResponse struct {
	StoreID     string           `json:"store_id"`
	Name        string           `json:"name"`
	Timezone    string           `json:"timezone,omitempty"`
	Menus       []menu.Item      `json:"menus"`
	Options     []menu.Item      `json:"options"`
	VisitAdjust menu.VisitAdjust `json:"visit_adjust"`
	VisitLabels []string         `json:"visit_labels"`
	Rules       tenant.Rules     `json:"rules"`
	SlotStarts  []string         `json:"slot_starts"`
}

type createReservationResponse struct {
	ReservationID string `json:"reservation_id"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	TotalMinutes  int    `json:"total_minutes"`
}

// Week serves GET /api/v1/public/stores/{store}/availability.
func (h *AvailabilityHandler) Week(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfg, ok := h.loadStore(w, r)
	if !ok {
		return
	}
	opts, err := h.svc.Options(cfg)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	start, err := reservations.ParsePeriodStart(strings.TrimSpace(r.URL.Query().Get("start")), opts.Location, h.svc.Now())
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid start")
		return
	}

	wk, err := h.svc.WeekFor(ctx, cfg, selectionFromQuery(r), start)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, wk)
}

// Duration serves GET /api/v1/public/stores/{store}/duration.
func (h *AvailabilityHandler) Duration(w http.ResponseWriter, r *http.Request) {
	storeID := r.PathValue("store")
	total, unmatched, err := h.svc.Duration(r.Context(), storeID, selectionFromQuery(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, durationResponse{StoreID: storeID, TotalMinutes: total, Unmatched: unmatched})
}

// Config serves GET /api/v1/public/stores/{store}/config.
func (h *AvailabilityHandler) Config(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.loadStore(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, publicConfigResponse{
		StoreID:     cfg.ID,
		Name:        cfg.Name,
		Timezone:    cfg.Timezone,
		Menus:       nonNilItems(cfg.Menu.Menus),
		Options:     nonNilItems(cfg.Menu.Options),
		VisitAdjust: cfg.Menu.VisitAdjust,
		VisitLabels: []string{menu.VisitFirst, menu.VisitRepeat},
		Rules:       cfg.Rules,
		SlotStarts:  availability.SlotStarts(),
	})
}

// CreateReservation serves POST /api/v1/public/stores/{store}/reservations.
func (h *AvailabilityHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req reservations.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Email = strings.TrimSpace(req.Email)
	req.StartTime = strings.TrimSpace(req.StartTime)

	res, err := h.svc.Request(r.Context(), r.PathValue("store"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, createReservationResponse{
		ReservationID: res.ID,
		StartTime:     res.StartTime.Format(time.RFC3339),
		EndTime:       res.EndTime.Format(time.RFC3339),
		TotalMinutes:  res.TotalMinutes,
	})
}

func (h *AvailabilityHandler) loadStore(w http.ResponseWriter, r *http.Request) (tenant.StoreConfig, bool) {
	cfg, err := h.svc.Store(r.Context(), r.PathValue("store"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return tenant.StoreConfig{}, false
	}
	return cfg, true
}

func (h *AvailabilityHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"err", err,
		)
	}
	httpx.WriteError(w, status, msg)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, tenant.ErrNotFound):
		return http.StatusNotFound, "store not found"
	case errors.Is(err, reservations.ErrSlotUnavailable):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, reservations.ErrInvalidRequest), errors.Is(err, availability.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, calendar.ErrUpstream):
		return http.StatusBadGateway, "failed to load availability"
	case errors.Is(err, tenant.ErrInvalidConfig):
		return http.StatusInternalServerError, "store configuration is invalid"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// selectionFromQuery reads visit, course, and repeated menu/option values.
func selectionFromQuery(r *http.Request) menu.Selection {
	q := r.URL.Query()
	return menu.Selection{
		VisitCount: strings.TrimSpace(q.Get("visit")),
		Course:     strings.TrimSpace(q.Get("course")),
		Menus:      trimAll(q["menu"]),
		Options:    trimAll(q["option"]),
	}
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func nonNilItems(items []menu.Item) []menu.Item {
	if items == nil {
		return []menu.Item{}
	}
	return items
}
