package session_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mebleko/backend-oferta/internal/draft"
	"github.com/mebleko/backend-oferta/internal/quote"
	"github.com/mebleko/backend-oferta/internal/session"
	"github.com/mebleko/backend-oferta/internal/store"
)

type notFoundSource struct{}

func (notFoundSource) LoadQuoteSnapshot(context.Context, int64) (*quote.Quote, error) {
	return nil, fmt.Errorf("quote 404: %w", store.ErrQuoteNotFound)
}

func (notFoundSource) ListDiscountReasons(context.Context) ([]quote.DiscountReason, error) {
	return nil, nil
}

func newRouter(m *session.Manager) http.Handler {
	h := &session.Handler{Manager: m, Validate: validator.New()}
	r := chi.NewRouter()
	r.Route("/api/v1", func(v chi.Router) {
		h.Routes(v)
	})
	return r
}

func postJSON(t *testing.T, router http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestOpenSessionUnknownQuote(t *testing.T) {
	m := &session.Manager{Source: notFoundSource{}, Logger: zerolog.Nop()}
	rr := postJSON(t, newRouter(m), "/api/v1/quotes/99/sessions", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestOpenSessionInvalidQuoteID(t *testing.T) {
	m := &session.Manager{Source: notFoundSource{}, Logger: zerolog.Nop()}
	rr := postJSON(t, newRouter(m), "/api/v1/quotes/abc/sessions", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUnknownSessionIs404(t *testing.T) {
	m := &session.Manager{Source: &stubSource{quote: snapshot()}, Logger: zerolog.Nop()}
	router := newRouter(m)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/00000000-0000-0000-0000-000000000001/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSessionFlowOverHTTP(t *testing.T) {
	submitter := &stubSubmitter{receipt: draft.Receipt{OrderID: 42, QuoteNumber: "OF/2026/007"}}
	m := &session.Manager{
		Source:    &stubSource{quote: snapshot()},
		Submitter: submitter,
		Logger:    zerolog.Nop(),
	}
	router := newRouter(m)

	rr := postJSON(t, router, "/api/v1/quotes/7/sessions", nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	sessionID, ok := decodeBody(t, rr)["sessionId"].(string)
	require.True(t, ok)

	base := "/api/v1/sessions/" + sessionID

	// a 10% discount on the selected variant
	rr = postJSON(t, router, base+"/variant-discount", map[string]any{
		"variantId": 11,
		"percent":   "10",
		"reasonId":  1,
		"visible":   true,
	})
	require.Equal(t, http.StatusOK, rr.Code)

	// out-of-range percent is a validation error
	rr = postJSON(t, router, base+"/variant-discount", map[string]any{
		"variantId": 11,
		"percent":   "150",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	// draft preview is rejected until the order is configured
	req := httptest.NewRequest(http.MethodGet, base+"/draft", nil)
	preview := httptest.NewRecorder()
	router.ServeHTTP(preview, req)
	require.Equal(t, http.StatusUnprocessableEntity, preview.Code)

	// configure the order
	body, _ := json.Marshal(map[string]any{"orderSourceId": 0, "orderStatusId": 1, "paymentMethod": "Przelew"})
	cfgReq := httptest.NewRequest(http.MethodPut, base+"/order-config", bytes.NewReader(body))
	cfgReq.Header.Set("Content-Type", "application/json")
	cfgRes := httptest.NewRecorder()
	router.ServeHTTP(cfgRes, cfgReq)
	require.Equal(t, http.StatusOK, cfgRes.Code)

	// submit
	rr = postJSON(t, router, base+"/submit", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, submitter.drafts, 1)
	require.Equal(t, int64(0), submitter.drafts[0].OrderSourceID)

	// second submit conflicts
	rr = postJSON(t, router, base+"/submit", nil)
	require.Equal(t, http.StatusConflict, rr.Code)

	// close, then the session is gone
	delReq := httptest.NewRequest(http.MethodDelete, base+"/", nil)
	delRes := httptest.NewRecorder()
	router.ServeHTTP(delRes, delReq)
	require.Equal(t, http.StatusOK, delRes.Code)

	getReq := httptest.NewRequest(http.MethodGet, base+"/", nil)
	getRes := httptest.NewRecorder()
	router.ServeHTTP(getRes, getReq)
	require.Equal(t, http.StatusNotFound, getRes.Code)
}

func TestSelectionUnknownVariantIs404(t *testing.T) {
	m := &session.Manager{Source: &stubSource{quote: snapshot()}, Logger: zerolog.Nop()}
	router := newRouter(m)

	rr := postJSON(t, router, "/api/v1/quotes/7/sessions", nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	sessionID := decodeBody(t, rr)["sessionId"].(string)

	rr = postJSON(t, router, "/api/v1/sessions/"+sessionID+"/selection", map[string]any{"variantId": 999})
	require.Equal(t, http.StatusNotFound, rr.Code)
}
