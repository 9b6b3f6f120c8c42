package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mebleko/backend-oferta/internal/common"
	"github.com/mebleko/backend-oferta/internal/discount"
	"github.com/mebleko/backend-oferta/internal/draft"
	"github.com/mebleko/backend-oferta/internal/erp"
	"github.com/mebleko/backend-oferta/internal/obs"
	"github.com/mebleko/backend-oferta/internal/quote"
	"github.com/mebleko/backend-oferta/internal/store"
)

// Handler exposes the quote editing session over HTTP.
type Handler struct {
	Manager  *Manager
	Validate *validator.Validate

	// SubmitGuard, when set, wraps the submit endpoint (e.g. a rate limiter).
	SubmitGuard func(http.Handler) http.Handler
}

// Routes mounts the session endpoints on the router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/quotes/{quoteID}/sessions", h.Open)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.Show)
		r.Delete("/", h.Close)
		r.Post("/variant-discount", h.ApplyVariantDiscount)
		r.Post("/order-discount", h.ApplyOrderDiscount)
		r.Post("/selection", h.SelectVariant)
		r.Put("/delivery-method", h.SetDeliveryMethod)
		r.Put("/order-config", h.SetOrderConfig)
		r.Put("/client", h.UpdateClient)
		r.Get("/draft", h.PreviewDraft)
		if h.SubmitGuard != nil {
			r.With(h.SubmitGuard).Post("/submit", h.Submit)
		} else {
			r.Post("/submit", h.Submit)
		}
	})
}

type variantDiscountPayload struct {
	VariantID int64           `json:"variantId" validate:"required"`
	Percent   decimal.Decimal `json:"percent"`
	ReasonID  *int64          `json:"reasonId"`
	Visible   bool            `json:"visible"`
}

type orderDiscountPayload struct {
	Percent          decimal.Decimal `json:"percent"`
	ReasonID         *int64          `json:"reasonId"`
	IncludeFinishing bool            `json:"includeFinishing"`
}

type selectionPayload struct {
	VariantID int64 `json:"variantId" validate:"required"`
}

type deliveryMethodPayload struct {
	DeliveryMethod string `json:"deliveryMethod" validate:"required"`
}

type orderConfigPayload struct {
	OrderSourceID *int64 `json:"orderSourceId"`
	OrderStatusID *int64 `json:"orderStatusId"`
	PaymentMethod string `json:"paymentMethod"`
}

type clientPayload struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone"`
	Street      string `json:"street"`
	City        string `json:"city"`
	PostalCode  string `json:"postalCode"`
	InvoiceName string `json:"invoiceName"`
	InvoiceNIP  string `json:"invoiceNip"`
}

// Open loads a fresh snapshot and starts an editing session.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	quoteID, ok := common.ParseInt64(chi.URLParam(r, "quoteID"))
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid quote id", nil)
		return
	}
	s, err := h.Manager.Open(r.Context(), quoteID)
	if err != nil {
		h.renderError(w, err)
		return
	}
	obs.SessionsActive.Set(float64(h.Manager.Len()))
	snapshot, state := s.Snapshot()
	common.JSON(w, http.StatusCreated, map[string]any{
		"sessionId": s.ID,
		"state":     state,
		"quote":     snapshot,
	})
}

// Show renders the session's current quote state and costs.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	snapshot, state := s.Snapshot()
	common.JSON(w, http.StatusOK, map[string]any{
		"sessionId": s.ID,
		"state":     state,
		"quote":     snapshot,
		"costs":     snapshot.Costs,
	})
}

// Close discards the session.
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	if err := h.Manager.Close(id); err != nil {
		h.renderError(w, err)
		return
	}
	obs.SessionsActive.Set(float64(h.Manager.Len()))
	common.JSON(w, http.StatusOK, map[string]any{"closed": true})
}

// ApplyVariantDiscount applies a discount to one variant.
func (h *Handler) ApplyVariantDiscount(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var payload variantDiscountPayload
	if !h.decode(w, r, &payload) {
		return
	}
	res, err := s.ApplyVariantDiscount(r.Context(), payload.VariantID, payload.Percent, payload.ReasonID, payload.Visible)
	if err != nil {
		obs.DiscountApplyTotal.WithLabelValues("variant", "error").Inc()
		h.renderError(w, err)
		return
	}
	obs.DiscountApplyTotal.WithLabelValues("variant", "ok").Inc()
	common.JSON(w, http.StatusOK, map[string]any{"data": res})
}

// ApplyOrderDiscount applies a uniform discount across the whole quote.
func (h *Handler) ApplyOrderDiscount(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var payload orderDiscountPayload
	if !h.decode(w, r, &payload) {
		return
	}
	res, affected, err := s.ApplyOrderDiscount(r.Context(), payload.Percent, payload.ReasonID, payload.IncludeFinishing)
	if err != nil {
		obs.DiscountApplyTotal.WithLabelValues("order", "error").Inc()
		h.renderError(w, err)
		return
	}
	obs.DiscountApplyTotal.WithLabelValues("order", "ok").Inc()
	common.JSON(w, http.StatusOK, map[string]any{"data": res, "affectedCount": affected})
}

// SelectVariant switches the selected variant of a product group.
func (h *Handler) SelectVariant(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var payload selectionPayload
	if !h.decode(w, r, &payload) {
		return
	}
	res, err := s.SelectVariant(r.Context(), payload.VariantID)
	if err != nil {
		obs.VariantSelectTotal.WithLabelValues("error").Inc()
		h.renderError(w, err)
		return
	}
	obs.VariantSelectTotal.WithLabelValues("ok").Inc()
	common.JSON(w, http.StatusOK, map[string]any{"data": res})
}

// SetDeliveryMethod switches the fulfillment method.
func (h *Handler) SetDeliveryMethod(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var payload deliveryMethodPayload
	if !h.decode(w, r, &payload) {
		return
	}
	res, err := s.SetDeliveryMethod(r.Context(), payload.DeliveryMethod)
	if err != nil {
		h.renderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": res})
}

// SetOrderConfig records the order source/status/payment choices.
func (h *Handler) SetOrderConfig(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var payload orderConfigPayload
	if !h.decode(w, r, &payload) {
		return
	}
	res, err := s.SetOrderConfig(r.Context(), payload.OrderSourceID, payload.OrderStatusID, payload.PaymentMethod)
	if err != nil {
		h.renderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": res})
}

// UpdateClient replaces the client snapshot for the draft.
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var payload clientPayload
	if !h.decode(w, r, &payload) {
		return
	}
	res, err := s.UpdateClient(r.Context(), quote.Client{
		Name:        payload.Name,
		Email:       payload.Email,
		Phone:       payload.Phone,
		Street:      payload.Street,
		City:        payload.City,
		PostalCode:  payload.PostalCode,
		InvoiceName: payload.InvoiceName,
		InvoiceNIP:  payload.InvoiceNIP,
	})
	if err != nil {
		h.renderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": res})
}

// PreviewDraft validates the configuration and returns the draft without
// submitting it.
func (h *Handler) PreviewDraft(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	d, err := s.BuildDraft()
	if err != nil {
		h.renderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": d})
}

// Submit builds the draft and sends it to the order platform.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	res, err := s.Submit(r.Context())
	if err != nil {
		h.renderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": res})
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid session id", nil)
		return uuid.UUID{}, false
	}
	return id, true
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return nil, false
	}
	s, err := h.Manager.Get(id)
	if err != nil {
		h.renderError(w, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dst); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "payload validation failed", err.Error())
			return false
		}
	}
	return true
}

func (h *Handler) renderError(w http.ResponseWriter, err error) {
	var vErr *draft.ValidationError
	switch {
	case errors.As(err, &vErr):
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", vErr.Error(), map[string]any{"fields": vErr.Fields})
	case errors.Is(err, discount.ErrPercentOutOfRange), errors.Is(err, discount.ErrReasonRequired):
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "session not found", nil)
	case errors.Is(err, store.ErrQuoteNotFound),
		errors.Is(err, quote.ErrProductNotFound),
		errors.Is(err, quote.ErrVariantNotFound),
		errors.Is(err, quote.ErrReasonNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrSubmitInFlight), errors.Is(err, ErrAlreadySubmitted):
		common.JSONError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case errors.Is(err, ErrSessionClosed):
		common.JSONError(w, http.StatusGone, "SESSION_CLOSED", err.Error(), nil)
	case errors.Is(err, erp.ErrRejected):
		common.JSONError(w, http.StatusUnprocessableEntity, "UPSTREAM_REJECTED", err.Error(), nil)
	case errors.Is(err, erp.ErrUnavailable):
		common.JSONError(w, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM", err.Error(), nil)
	}
}
