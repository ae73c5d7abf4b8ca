package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	app "github.com/brickvest/coinvest_layer/internal/app"
	"github.com/brickvest/coinvest_layer/internal/app/storage/memory"
	"github.com/brickvest/coinvest_layer/internal/config"
)

// newTestApp wires a real application against a stub platform backend. No
// wallet bridges are configured, so wallet-gated workflows fail cleanly.
func newTestApp(t *testing.T, backend http.Handler) *app.Application {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	cfg := config.Config{
		BackendURL:    srv.URL,
		ChainRPCURL:   srv.URL,
		RentWindow:    "5-10",
		ReminderSpec:  "0 9 * * *",
		HTTPTimeout:   5 * time.Second,
		ListenAddress: ":0",
	}
	application, err := app.New(cfg, memory.New(), nil)
	require.NoError(t, err)
	return application
}

func stubBackend(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/property/1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]interface{}{
			"isSuccess": true,
			"code":      "OK",
			"message":   "ok",
			"response": map[string]interface{}{
				"id":          1,
				"name":        "Mapo Duplex",
				"status":      "FUNDING",
				"price":       "300000000",
				"monthlyRent": "1500000",
			},
		}))
	})
	mux.HandleFunc("/rent-payment/my", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]interface{}{
			"isSuccess": true,
			"code":      "OK",
			"message":   "ok",
			"response":  []interface{}{},
		}))
	})
	return mux
}

func TestGetPropertyEndpoint(t *testing.T) {
	h := NewHandler(newTestApp(t, stubBackend(t)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/properties/1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	// decimal amounts marshal as quoted strings
	var prop struct {
		ID    int64
		Name  string
		Price string
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prop))
	require.Equal(t, int64(1), prop.ID)
	require.Equal(t, "Mapo Duplex", prop.Name)
}

func TestQuoteEndpointDerivesAmounts(t *testing.T) {
	h := NewHandler(newTestApp(t, stubBackend(t)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/properties/1/quote?percentage=20", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var quote struct {
		ShareCount       int
		InvestmentAmount string
		MonthlyReturn    string
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	require.Equal(t, 4, quote.ShareCount)
	require.Equal(t, "60000000", quote.InvestmentAmount)
	require.Equal(t, "300000", quote.MonthlyReturn)
}

func TestQuoteEndpointRejectsBadPercentage(t *testing.T) {
	h := NewHandler(newTestApp(t, stubBackend(t)))

	for _, q := range []string{"percentage=7", "percentage=abc", ""} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/properties/1/quote?"+q, nil))
		require.Equal(t, http.StatusBadRequest, rec.Code, "query %q", q)
	}
}

func TestInvestWithoutWalletMapsToConflict(t *testing.T) {
	h := NewHandler(newTestApp(t, stubBackend(t)))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/properties/1/invest", strings.NewReader(`{"percentage":20}`))
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body["error"], "wallet")
}

func TestInvalidPropertyIDRejected(t *testing.T) {
	h := NewHandler(newTestApp(t, stubBackend(t)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/properties/abc", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPendingCommitsEmptyList(t *testing.T) {
	h := NewHandler(newTestApp(t, stubBackend(t)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/commits/pending", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestCommitRetryUnknownKeyIs404(t *testing.T) {
	h := NewHandler(newTestApp(t, stubBackend(t)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/commits/nope/retry", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	h := NewHandler(newTestApp(t, stubBackend(t)))

	cases := []struct {
		method, path string
	}{
		{http.MethodDelete, "/properties"},
		{http.MethodGet, "/auth/login"},
		{http.MethodPut, "/properties/1"},
		{http.MethodPost, "/fundings/my"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestWalletStatusWhenDisconnected(t *testing.T) {
	h := NewHandler(newTestApp(t, stubBackend(t)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wallet", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body["connected"])
}

func TestWalletConnectRejectsUnknownProvider(t *testing.T) {
	h := NewHandler(newTestApp(t, stubBackend(t)))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/wallet/connect", strings.NewReader(`{"provider":"phantom"}`))
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
