package punchout_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/omnisupply/procurement-api/internal/punchout"
)

func newTestRouter(t *testing.T) (*chi.Mux, *punchout.Service) {
	t.Helper()
	svc := &punchout.Service{
		Store:         punchout.NewMemoryStore(time.Hour),
		SharedSecret:  "s3cret",
		StartPageURL:  "https://shop.omnisupply.io/punchout/start",
		PayloadDomain: "omnisupply.io",
		Currency:      "USD",
		Logger:        zerolog.Nop(),
	}
	h := &punchout.Handler{Svc: svc}

	r := chi.NewRouter()
	r.Post("/punchout/setup", h.Setup)
	r.Route("/punchout/sessions/{token}", func(sess chi.Router) {
		sess.Get("/", h.GetSession)
		sess.Put("/cart", h.UpdateCart)
		sess.Post("/order", h.Transfer)
	})
	return r, svc
}

func TestSetupEndpointReturnsCXML(t *testing.T) {
	r, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/punchout/setup", strings.NewReader(validSetupXML))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Header().Get("Content-Type"), "text/xml")
	require.Contains(t, rr.Body.String(), `<Status code="200" text="OK"/>`)
}

func TestSetupEndpointWrongSecretStillHTTP200(t *testing.T) {
	r, _ := newTestRouter(t)
	body := strings.Replace(validSetupXML, "s3cret", "wrong", 1)
	req := httptest.NewRequest(http.MethodPost, "/punchout/setup", strings.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	// Buyer systems parse the document for the outcome; transport stays 200.
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `<Status code="401" text="Unauthorized">`)
}

func TestSetupEndpointMalformedXML(t *testing.T) {
	r, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/punchout/setup", strings.NewReader("garbage <"))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "MALFORMED_XML")
}

func setupSession(t *testing.T, r *chi.Mux, svc *punchout.Service) string {
	t.Helper()
	outcome, err := svc.Setup(context.Background(), []byte(validSetupXML))
	require.NoError(t, err)
	return outcome.SessionToken
}

func TestGetSessionEndpoint(t *testing.T) {
	r, svc := newTestRouter(t)
	token := setupSession(t, r, svc)

	req := httptest.NewRequest(http.MethodGet, "/punchout/sessions/"+token, nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"valid":true`)

	req = httptest.NewRequest(http.MethodGet, "/punchout/sessions/nope", nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Contains(t, rr.Body.String(), "SESSION_NOT_FOUND")
}

func TestUpdateCartEndpointValidation(t *testing.T) {
	r, svc := newTestRouter(t)
	token := setupSession(t, r, svc)

	cases := []struct {
		name string
		body string
	}{
		{"missing part id", `{"items":[{"quantity":1,"unit_price":"1.00"}]}`},
		{"zero quantity", `{"items":[{"supplier_part_id":"X","quantity":0,"unit_price":"1.00"}]}`},
		{"negative price", `{"items":[{"supplier_part_id":"X","quantity":1,"unit_price":"-1"}]}`},
		{"bad json", `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/punchout/sessions/"+token+"/cart", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)
			require.Equal(t, http.StatusBadRequest, rr.Code)
			require.Contains(t, rr.Body.String(), "VALIDATION_ERROR")
		})
	}
}

func TestUpdateCartEndpointReplacesWholesale(t *testing.T) {
	r, svc := newTestRouter(t)
	token := setupSession(t, r, svc)

	first := `{"items":[
		{"supplier_part_id":"A","quantity":1,"unit_price":"1.00"},
		{"supplier_part_id":"B","quantity":2,"unit_price":"2.00"}
	]}`
	req := httptest.NewRequest(http.MethodPut, "/punchout/sessions/"+token+"/cart", strings.NewReader(first))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	second := `{"items":[{"supplier_part_id":"C","quantity":5,"unit_price":"3.50"}]}`
	req = httptest.NewRequest(http.MethodPut, "/punchout/sessions/"+token+"/cart", strings.NewReader(second))
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	sess, err := svc.Lookup(context.Background(), token)
	require.NoError(t, err)
	require.Len(t, sess.CartItems, 1)
	require.Equal(t, "C", sess.CartItems[0].SupplierPartID)
}

func TestTransferEndpoint(t *testing.T) {
	r, svc := newTestRouter(t)
	token := setupSession(t, r, svc)

	// Empty cart is rejected with 422 and the session survives.
	req := httptest.NewRequest(http.MethodPost, "/punchout/sessions/"+token+"/order", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Contains(t, rr.Body.String(), "EMPTY_CART")

	require.NoError(t, svc.ReplaceCart(context.Background(), token, []punchout.LineItem{{
		SupplierPartID: "A", Quantity: 1, UnitPrice: decimal.RequireFromString("1.50"), UnitOfMeasure: "EA",
	}}))

	req = httptest.NewRequest(http.MethodPost, "/punchout/sessions/"+token+"/order", nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Header().Get("Content-Type"), "text/xml")
	require.Contains(t, rr.Body.String(), "<PunchOutOrderMessage>")

	// Session is consumed by the successful transfer.
	req = httptest.NewRequest(http.MethodPost, "/punchout/sessions/"+token+"/order", nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)
}
