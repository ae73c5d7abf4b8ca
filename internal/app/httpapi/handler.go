// Package httpapi exposes the workflow services over a small REST surface.
package httpapi

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	app "github.com/brickvest/coinvest_layer/internal/app"
	"github.com/brickvest/coinvest_layer/internal/app/domain/property"
	"github.com/brickvest/coinvest_layer/internal/app/storage"
	"github.com/brickvest/coinvest_layer/internal/backend"
	"github.com/brickvest/coinvest_layer/internal/errors"
	"github.com/brickvest/coinvest_layer/internal/wallet"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
}

// NewHandler returns a mux exposing the core REST API.
func NewHandler(application *app.Application) http.Handler {
	h := &handler{app: application}
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", h.login)
	mux.HandleFunc("/auth/register", h.register)
	mux.HandleFunc("/auth/logout", h.logout)
	mux.HandleFunc("/properties", h.properties)
	mux.HandleFunc("/properties/", h.propertyResources)
	mux.HandleFunc("/fundings/my", h.myFundings)
	mux.HandleFunc("/fundings/income", h.fundingIncome)
	mux.HandleFunc("/rents/my", h.myRents)
	mux.HandleFunc("/rent-payments/my", h.myRentPayments)
	mux.HandleFunc("/wallet", h.wallet)
	mux.HandleFunc("/wallet/connect", h.walletConnect)
	mux.HandleFunc("/commits/pending", h.pendingCommits)
	mux.HandleFunc("/commits/", h.commitResources)
	return mux
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	userID, err := h.app.Auth.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"userId": userID})
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.Auth.Register(r.Context(), payload.Username, payload.Password); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := h.app.Auth.Logout(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) properties(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		props, err := h.app.Backend.Properties(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, props)

	case http.MethodPost:
		var payload backend.CreatePropertyRequest
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		prop, err := h.app.Backend.CreateProperty(r.Context(), payload)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, prop)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) propertyResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/properties"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	// The two listing aliases share the collection prefix.
	if len(parts) == 1 {
		switch parts[0] {
		case "sales":
			h.listProperties(w, r, h.app.Backend.SaleProperties)
			return
		case "my":
			h.listProperties(w, r, h.app.Backend.MyProperties)
			return
		}
	}

	propertyID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, stderrors.New("property id must be numeric"))
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		prop, err := h.app.Backend.GetProperty(r.Context(), propertyID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, prop)
		return
	}

	switch parts[1] {
	case "invest":
		h.invest(w, r, propertyID)
	case "quote":
		h.quote(w, r, propertyID)
	case "fundings":
		h.propertyFundings(w, r, propertyID)
	case "rent":
		h.propertyRent(w, r, propertyID, parts[2:])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) listProperties(w http.ResponseWriter, r *http.Request, list func(context.Context) ([]property.Property, error)) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	props, err := list(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, props)
}

func (h *handler) invest(w http.ResponseWriter, r *http.Request, propertyID int64) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Percentage int `json:"percentage"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	f, err := h.app.Funding.Invest(r.Context(), propertyID, payload.Percentage)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (h *handler) quote(w http.ResponseWriter, r *http.Request, propertyID int64) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	percentage, err := strconv.Atoi(r.URL.Query().Get("percentage"))
	if err != nil {
		writeError(w, http.StatusBadRequest, stderrors.New("percentage query parameter must be numeric"))
		return
	}
	q, err := h.app.Funding.Quote(r.Context(), propertyID, percentage)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *handler) propertyFundings(w http.ResponseWriter, r *http.Request, propertyID int64) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	fundings, err := h.app.Funding.PropertyFundings(r.Context(), propertyID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fundings)
}

func (h *handler) propertyRent(w http.ResponseWriter, r *http.Request, propertyID int64, rest []string) {
	if len(rest) == 0 {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		payment, err := h.app.Rent.PayRent(r.Context(), propertyID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, payment)
		return
	}

	switch rest[0] {
	case "eligibility":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		eligibility, err := h.app.Rent.Eligibility(r.Context(), propertyID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, eligibility)

	case "apply":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var payload struct {
			StartDate  string `json:"startDate"`
			EndDate    string `json:"endDate"`
			PaymentDay int    `json:"paymentDay"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		start, err := time.Parse("2006-01-02", payload.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, stderrors.New("startDate must be YYYY-MM-DD"))
			return
		}
		end, err := time.Parse("2006-01-02", payload.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, stderrors.New("endDate must be YYYY-MM-DD"))
			return
		}
		lease, err := h.app.Rent.ApplyForRent(r.Context(), propertyID, start, end, payload.PaymentDay)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, lease)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) myFundings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	fundings, err := h.app.Funding.MyFundings(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fundings)
}

func (h *handler) fundingIncome(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	income, err := h.app.Rent.FundingIncome(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, income)
}

func (h *handler) myRents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rents, err := h.app.Rent.MyRents(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rents)
}

func (h *handler) myRentPayments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	grouped, err := h.app.Rent.PaymentsByProperty(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grouped)
}

func (h *handler) wallet(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		account, ok := h.app.Wallet.Account()
		if !ok {
			writeJSON(w, http.StatusOK, map[string]bool{"connected": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"connected": true,
			"address":   account.Address,
			"chainId":   account.ChainID,
		})

	case http.MethodDelete:
		if err := h.app.Wallet.Disconnect(r.Context()); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) walletConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Provider string `json:"provider"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	providerType, ok := wallet.ParseType(payload.Provider)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown wallet provider %q", payload.Provider))
		return
	}
	account, err := h.app.Wallet.Connect(r.Context(), providerType)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"address": account.Address,
		"chainId": account.ChainID,
	})
}

func (h *handler) pendingCommits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	commits, err := h.app.Store.ListUnresolvedCommits(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if commits == nil {
		commits = []storage.PendingCommit{}
	}
	writeJSON(w, http.StatusOK, commits)
}

func (h *handler) commitResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/commits"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || parts[1] != "retry" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	key := parts[0]

	marker, err := h.app.Store.GetPendingCommit(r.Context(), key)
	if stderrors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	switch marker.Workflow {
	case storage.WorkflowFunding:
		f, err := h.app.Funding.ResumePending(r.Context(), key)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, f)
	case storage.WorkflowRentPayment:
		payment, err := h.app.Rent.ResumePending(r.Context(), key)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payment)
	default:
		writeError(w, http.StatusConflict, stderrors.New("unknown workflow on pending commit"))
	}
}

// writeServiceError maps the error taxonomy onto HTTP statuses. Partial
// failures report 502 with the commit key so the caller can retry.
func writeServiceError(w http.ResponseWriter, err error) {
	switch errors.KindOf(err) {
	case errors.KindValidation:
		writeError(w, http.StatusBadRequest, err)
	case errors.KindAuth:
		writeError(w, http.StatusUnauthorized, err)
	case errors.KindWallet:
		writeError(w, http.StatusConflict, err)
	case errors.KindPartial:
		var appErr *errors.Error
		payload := map[string]string{"error": err.Error()}
		if stderrors.As(err, &appErr) && appErr.CommitKey != "" {
			payload["commitKey"] = appErr.CommitKey
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(payload)
	case errors.KindChain, errors.KindBackend:
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
