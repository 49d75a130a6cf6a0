package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/counter-pos/internal/domain/sale"
)

type payload struct {
	SaleType     string      `json:"saleType"`
	Detail       string      `json:"detail"`
	Profit       json.Number `json:"profit"`
	ProductLines []struct {
		ProductID int64       `json:"productId"`
		Quantity  json.Number `json:"quantity"`
		Subtotal  json.Number `json:"subtotal"`
	} `json:"productLines"`
	ComboLines []map[string]json.Number `json:"comboLines"`
}

func testOrder() *sale.Order {
	return &sale.Order{
		Reference: uuid.MustParse("6f1c1d5e-2b7a-4c55-9a53-0d6f2b8f4e11"),
		SaleType:  "cash",
		Detail:    "table 4",
		Products: []sale.ProductItem{{
			ProductID: 1,
			Quantity:  decimal.RequireFromString("2.5"),
			Subtotal:  decimal.RequireFromString("12.75"),
		}},
		Combos: []sale.ComboItem{{
			ComboID:  9,
			Quantity: 3,
			Subtotal: decimal.RequireFromString("60.00"),
		}},
	}
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(Options{BaseURL: url, Token: "secret"})
	require.NoError(t, err)
	return c
}

func TestSubmit_Accepted(t *testing.T) {
	var (
		got     payload
		headers http.Header
		path    string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		headers = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		d := json.NewDecoder(bytes.NewReader(body))
		d.UseNumber()
		_ = d.Decode(&got)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"message":"Venta creada","ventaID":1234}`))
	}))
	defer srv.Close()

	receipt, err := newTestClient(t, srv.URL+"/").Submit(context.Background(), testOrder())
	require.NoError(t, err)

	assert.Equal(t, "/api/sales/create", path)
	assert.Equal(t, "secret", headers.Get("Authorization"))
	assert.Equal(t, "6f1c1d5e-2b7a-4c55-9a53-0d6f2b8f4e11", headers.Get("Idempotency-Key"))
	assert.Equal(t, "application/json", headers.Get("Content-Type"))

	assert.Equal(t, "1234", receipt.SaleID)
	assert.Equal(t, "Venta creada", receipt.Message)
	assert.Equal(t, testOrder().Reference, receipt.Reference)

	assert.Equal(t, "cash", got.SaleType)
	assert.Equal(t, "table 4", got.Detail)
	assert.Equal(t, json.Number("0"), got.Profit)
	require.Len(t, got.ProductLines, 1)
	assert.Equal(t, int64(1), got.ProductLines[0].ProductID)
	assert.Equal(t, json.Number("2.5"), got.ProductLines[0].Quantity)
	assert.Equal(t, json.Number("12.75"), got.ProductLines[0].Subtotal)
	require.Len(t, got.ComboLines, 1)
	// Combo lines carry only the id and the count.
	assert.Equal(t, map[string]json.Number{"comboId": "9", "quantity": "3"}, got.ComboLines[0])
}

func TestSubmit_RejectedReasonVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Stock insuficiente para el producto 1"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Submit(context.Background(), testOrder())

	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusBadRequest, rejected.StatusCode)
	assert.Equal(t, "Stock insuficiente para el producto 1", rejected.Reason)
	assert.NotErrorIs(t, err, ErrUnreachable)
}

func TestSubmit_RejectedWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<html>oops</html>`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Submit(context.Background(), testOrder())

	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "status 500", rejected.Reason)
}

func TestSubmit_OnlyCreatedIsAccepted(t *testing.T) {
	for _, tt := range []struct {
		name   string
		code   int
		body   string
		reason string
	}{
		{"ok with message", http.StatusOK, `{"message":"Pendiente"}`, "Pendiente"},
		{"accepted", http.StatusAccepted, ``, "status 202"},
		{"no content", http.StatusNoContent, ``, "status 204"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			receipt, err := newTestClient(t, srv.URL).Submit(context.Background(), testOrder())

			require.Nil(t, receipt)
			var rejected *RejectedError
			require.ErrorAs(t, err, &rejected)
			assert.Equal(t, tt.code, rejected.StatusCode)
			assert.Equal(t, tt.reason, rejected.Reason)
		})
	}
}

func TestSubmit_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	receipt, err := newTestClient(t, url).Submit(context.Background(), testOrder())

	assert.Nil(t, receipt)
	require.ErrorIs(t, err, ErrUnreachable)
}

func TestNewClient_RequiresAbsoluteURL(t *testing.T) {
	_, err := NewClient(Options{BaseURL: "ledger.local"})
	require.Error(t, err)

	_, err = NewClient(Options{BaseURL: "http://ledger.local:5000"})
	require.NoError(t, err)
}

func TestDecodeResponse(t *testing.T) {
	for _, tt := range []struct {
		name string
		body string
		want response
	}{
		{"string id", `{"saleId":"A-1","message":"ok"}`, response{SaleID: "A-1", Message: "ok"}},
		{"numeric id", `{"id":7}`, response{SaleID: "7"}},
		{"first message wins", `{"message":"a","error":"b"}`, response{Message: "a"}},
		{"nested values skipped", `{"saleId":{"x":1},"message":"m"}`, response{Message: "m"}},
		{"not an object", `["x"]`, response{}},
		{"empty", ``, response{}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeResponse([]byte(tt.body)))
		})
	}
}
