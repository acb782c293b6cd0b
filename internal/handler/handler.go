package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/hlog"

	"promotions-service/internal/models"
	"promotions-service/internal/service"
	"promotions-service/internal/validation"
)

// Handler provides HTTP handlers for the API.
type Handler struct {
	service     *service.Service
	maxBodySize int64
}

// NewHandlerOptions holds options for creating a handler.
type NewHandlerOptions struct {
	MaxBodySize int64
}

// DefaultHandlerOptions returns default handler options.
func DefaultHandlerOptions() NewHandlerOptions {
	return NewHandlerOptions{
		MaxBodySize: 1 << 20, // 1MB default
	}
}

// NewHandler creates a new handler instance.
func NewHandler(svc *service.Service) *Handler {
	return NewHandlerWithOptions(svc, DefaultHandlerOptions())
}

// NewHandlerWithOptions creates a new handler instance with custom options.
func NewHandlerWithOptions(svc *service.Service, opts NewHandlerOptions) *Handler {
	return &Handler{
		service:     svc,
		maxBodySize: opts.MaxBodySize,
	}
}

// RegisterRoutes mounts the promotion routes and the health check on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Route("/promotions", func(r chi.Router) {
		r.Get("/", h.ListPromotions)
		r.Post("/", h.CreatePromotion)
		r.Get("/{id}", h.GetPromotion)
		r.Put("/{id}", h.UpdatePromotion)
		r.Delete("/{id}", h.DeletePromotion)
	})
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("health check failed")
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// CreatePromotion handles POST /promotions
func (h *Handler) CreatePromotion(w http.ResponseWriter, r *http.Request) {
	body, ok := h.decodeBody(w, r)
	if !ok {
		return
	}

	var promotion models.Promotion
	if err := promotion.Deserialize(body); err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	if err := h.service.CreatePromotion(r.Context(), &promotion); err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/promotions/%d", promotion.ID))
	h.respondJSON(w, http.StatusCreated, promotion.Serialize())
}

// ListPromotions handles GET /promotions, filtering by any query parameters.
func (h *Handler) ListPromotions(w http.ResponseWriter, r *http.Request) {
	params := validation.QueryParams(r.URL.Query())

	promotions, err := h.service.FindPromotions(r.Context(), params)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	results := make([]map[string]any, 0, len(promotions))
	for _, p := range promotions {
		results = append(results, p.Serialize())
	}
	h.respondJSON(w, http.StatusOK, results)
}

// GetPromotion handles GET /promotions/{id}
func (h *Handler) GetPromotion(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	promotion, err := h.service.GetPromotion(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if promotion == nil {
		h.respondError(w, http.StatusNotFound, fmt.Sprintf("Promotion with id '%d' was not found.", id))
		return
	}

	h.respondJSON(w, http.StatusOK, promotion.Serialize())
}

// UpdatePromotion handles PUT /promotions/{id}
func (h *Handler) UpdatePromotion(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	promotion, err := h.service.GetPromotion(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if promotion == nil {
		h.respondError(w, http.StatusNotFound, fmt.Sprintf("Promotion with id '%d' was not found.", id))
		return
	}

	body, ok := h.decodeBody(w, r)
	if !ok {
		return
	}

	if err := promotion.Deserialize(body); err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	if err := h.service.UpdatePromotion(r.Context(), promotion); err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, promotion.Serialize())
}

// DeletePromotion handles DELETE /promotions/{id}
func (h *Handler) DeletePromotion(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	if err := h.service.DeletePromotion(r.Context(), id); err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// decodeBody reads a JSON document of any shape from the request body. It
// writes the error response itself and returns false on failure.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request) (any, bool) {
	// Limit request body size to prevent abuse
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()

	var body any
	if err := decoder.Decode(&body); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return nil, false
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return nil, false
	}

	return body, true
}

// respondServiceError maps err to a status code: validation failures are the
// caller's fault, anything else is logged and reported as a server error.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var dve *models.DataValidationError
	if errors.As(err, &dve) {
		h.respondError(w, http.StatusBadRequest, dve.Error())
		return
	}

	hlog.FromRequest(r).Error().Err(err).Msg("request failed")
	h.respondError(w, http.StatusInternalServerError, "internal server error")
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
