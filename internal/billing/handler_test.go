package billing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-backoffice/internal/platform/httpx"
)

func newTestRouter() http.Handler {
	r := chi.NewRouter()
	NewHandler(nil, NewService(newStubLookups(), nil, nil)).MountRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestQuoteEndpoint(t *testing.T) {
	rec := do(t, newTestRouter(), http.MethodPost, "/billing/quote", `{
		"items": [{
			"product_ref": "LAPTOP-14",
			"name": "Laptop 14in",
			"quantity": 2,
			"unit_price": "899.99",
			"discount_value": "10",
			"discount_type": "PERCENTAGE",
			"tax_ref": "GST18",
			"currency_ref": "INR"
		}]
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		ID     string `json:"id"`
		Totals struct {
			GrandTotal string `json:"grand_total"`
		} `json:"totals"`
		Formatted   string `json:"formatted_grand_total"`
		Submittable bool   `json:"submittable"`
		Violations  []any  `json:"violations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.ID)
	assert.Equal(t, "1911.58", body.Totals.GrandTotal)
	assert.Equal(t, "₹1,911.58", body.Formatted)
	assert.True(t, body.Submittable)
	assert.NotNil(t, body.Violations)
}

func TestQuoteEndpointValidationProblem(t *testing.T) {
	rec := do(t, newTestRouter(), http.MethodPost, "/billing/quote", `{
		"items": [{"name": "Cable", "quantity": 0, "unit_price": "5", "tax_ref": "VAT99"}]
	}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, http.StatusUnprocessableEntity, problem.Status)
	assert.Contains(t, problem.Errors, "items[0].quantity")
}

func TestQuoteEndpointRejectsMalformedBody(t *testing.T) {
	router := newTestRouter()

	rec := do(t, router, http.MethodPost, "/billing/quote", `{"items": [`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/billing/quote", `{"unexpected": true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResolveItemEndpoint(t *testing.T) {
	router := newTestRouter()

	rec := do(t, router, http.MethodPost, "/billing/items/resolve", `{"product_ref": "LAPTOP-14"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res struct {
		Item struct {
			Name        string `json:"name"`
			CurrencyRef string `json:"currency_ref"`
		} `json:"item"`
		Bill struct {
			Ref    string `json:"ref"`
			Locked bool   `json:"locked"`
		} `json:"bill_currency"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "Laptop 14in", res.Item.Name)
	assert.Equal(t, "INR", res.Bill.Ref)
	assert.True(t, res.Bill.Locked)

	rec = do(t, router, http.MethodPost, "/billing/items/resolve", `{"product_ref": "GHOST"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodPost, "/billing/items/resolve",
		`{"product_ref": "MONITOR-27", "bill_currency": {"ref": "INR", "locked": true}}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "INR", problem.Errors["bill_currency"])
	assert.Equal(t, "USD", problem.Errors["item_currency"])
}

func TestLookupEndpoints(t *testing.T) {
	router := newTestRouter()

	rec := do(t, router, http.MethodGet, "/billing/taxes/GST18", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"percent":"18"`)

	rec = do(t, router, http.MethodGet, "/billing/currencies/jpy", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"scale":0`)

	rec = do(t, router, http.MethodGet, "/billing/products/LAPTOP-14", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"hsn_code":"8471"`)

	for _, path := range []string{"/billing/taxes/NOPE", "/billing/currencies/ZZZ", "/billing/products/NOPE"} {
		rec = do(t, router, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}
