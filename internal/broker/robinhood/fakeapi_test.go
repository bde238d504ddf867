package robinhood

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const accountNumber = "5QR24141"

// fakeAPI is an in-memory Robinhood API.
type fakeAPI struct {
	server *httptest.Server

	mu          sync.Mutex
	password    string
	mfaRequired bool
	expiresIn   int
	logins      []url.Values
	refreshes   int
	authHeaders []string

	accountType  string
	positions    []positionResponse
	instruments  map[string]instrumentResponse
	orders       map[string]orderResponse
	placed       []orderRequest
	rejectOrders bool
	cancelled    []string
	quotes       map[string]quoteResponse
	historicals  []historical
	hours        map[string]marketHoursResponse
	pageSize     int
	nextID       int
}

func newFakeAPI() *fakeAPI {
	f := &fakeAPI{
		password:    "secret",
		expiresIn:   86400,
		accountType: "cash",
		instruments: make(map[string]instrumentResponse),
		orders:      make(map[string]orderResponse),
		quotes:      make(map[string]quoteResponse),
		hours:       make(map[string]marketHoursResponse),
		pageSize:    100,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth2/token/", f.token)
	mux.HandleFunc("GET /accounts/{$}", f.authed(f.accounts))
	mux.HandleFunc("GET /portfolios/{number}/{$}", f.authed(f.portfolio))
	mux.HandleFunc("GET /positions/{$}", f.authed(f.listPositions))
	mux.HandleFunc("GET /instruments/{$}", f.authed(f.searchInstruments))
	mux.HandleFunc("GET /instruments/{id}/{$}", f.authed(f.instrument))
	mux.HandleFunc("POST /orders/{$}", f.authed(f.placeOrder))
	mux.HandleFunc("GET /orders/{$}", f.authed(f.listOrders))
	mux.HandleFunc("GET /orders/{id}/{$}", f.authed(f.getOrder))
	mux.HandleFunc("POST /orders/{id}/cancel/{$}", f.authed(f.cancelOrder))
	mux.HandleFunc("GET /quotes/{$}", f.authed(f.listQuotes))
	mux.HandleFunc("GET /quotes/historicals/{$}", f.authed(f.listHistoricals))
	mux.HandleFunc("GET /markets/{code}/hours/{date}/{$}", f.authed(f.marketHours))

	f.server = httptest.NewServer(mux)

	return f
}

func (f *fakeAPI) close() {
	f.server.Close()
}

func (f *fakeAPI) url(path string) string {
	return f.server.URL + path
}

func (f *fakeAPI) addInstrument(id, symbol string, tradeable bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.instruments[id] = instrumentResponse{
		ID:        id,
		URL:       f.url("/instruments/" + id + "/"),
		Symbol:    symbol,
		Tradeable: tradeable,
	}
}

func (f *fakeAPI) setOrder(o orderResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.orders[o.ID] = o
}

func (f *fakeAPI) order(id string) orderResponse {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.orders[id]
}

func (f *fakeAPI) placedOrders() []orderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]orderRequest(nil), f.placed...)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (f *fakeAPI) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")

		f.mu.Lock()
		f.authHeaders = append(f.authHeaders, header)
		f.mu.Unlock()

		if !strings.HasPrefix(header, "Bearer token-") {
			writeJSON(w, http.StatusUnauthorized, apiError{Detail: "Authentication credentials were not provided."})

			return
		}

		next(w, r)
	}
}

func (f *fakeAPI) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Detail: err.Error()})

		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if r.PostForm.Get("grant_type") == "refresh_token" {
		f.refreshes++
		writeJSON(w, http.StatusOK, tokenResponse{
			AccessToken:  fmt.Sprintf("token-%d", f.refreshes+1),
			RefreshToken: "refresh-1",
			TokenType:    "Bearer",
			ExpiresIn:    86400,
		})

		return
	}

	f.logins = append(f.logins, r.PostForm)

	if r.PostForm.Get("password") != f.password {
		writeJSON(w, http.StatusBadRequest, tokenResponse{Detail: "Unable to log in with provided credentials."})

		return
	}

	if f.mfaRequired && r.PostForm.Get("mfa_code") == "" {
		writeJSON(w, http.StatusOK, tokenResponse{MFARequired: true, MFAType: "sms"})

		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  "token-1",
		RefreshToken: "refresh-1",
		TokenType:    "Bearer",
		ExpiresIn:    f.expiresIn,
	})
}

func (f *fakeAPI) accounts(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	accountType := f.accountType
	f.mu.Unlock()

	w.Header().Set("X-RateLimit-Limit", "100")
	w.Header().Set("X-RateLimit-Remaining", "42")
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(epoch.Add(time.Minute).Unix(), 10))

	account := accountResponse{
		URL:           f.url("/accounts/" + accountNumber + "/"),
		AccountNumber: accountNumber,
		Type:          accountType,
		Cash:          "1000.5000",
		BuyingPower:   "2000.0000",
	}
	if accountType == "margin" {
		account.MarginBalances = &marginBalances{MarginLimit: "5000.0000"}
	}

	writeJSON(w, http.StatusOK, page[accountResponse]{Results: []accountResponse{account}})
}

func (f *fakeAPI) portfolio(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("number") != accountNumber {
		writeJSON(w, http.StatusNotFound, apiError{Detail: "Not found."})

		return
	}

	writeJSON(w, http.StatusOK, portfolioResponse{Equity: "15000.2500", MarketValue: "13999.7500"})
}

func (f *fakeAPI) listPositions(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	writeJSON(w, http.StatusOK, page[positionResponse]{Results: f.positions})
}

func (f *fakeAPI) searchInstruments(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	symbol := r.URL.Query().Get("symbol")

	var results []instrumentResponse
	for _, instrument := range f.instruments {
		if instrument.Symbol == symbol {
			results = append(results, instrument)
		}
	}

	writeJSON(w, http.StatusOK, page[instrumentResponse]{Results: results})
}

func (f *fakeAPI) instrument(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	instrument, ok := f.instruments[r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{Detail: "Not found."})

		return
	}

	writeJSON(w, http.StatusOK, instrument)
}

func (f *fakeAPI) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Detail: err.Error()})

		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.placed = append(f.placed, req)

	if f.rejectOrders {
		writeJSON(w, http.StatusBadRequest, apiError{Detail: "Not enough buying power."})

		return
	}

	f.nextID++
	o := orderResponse{
		ID:                 fmt.Sprintf("ord-%d", f.nextID),
		RefID:              req.RefID,
		Instrument:         req.Instrument,
		State:              "queued",
		Side:               req.Side,
		Type:               req.Type,
		Trigger:            req.Trigger,
		TimeInForce:        req.TimeInForce,
		Quantity:           req.Quantity,
		CumulativeQuantity: "0.00000000",
		Price:              req.Price,
		StopPrice:          req.StopPrice,
		CreatedAt:          epoch,
		UpdatedAt:          epoch,
	}
	f.orders[o.ID] = o

	writeJSON(w, http.StatusCreated, o)
}

func (f *fakeAPI) sortedOrders() []orderResponse {
	result := make([]orderResponse, 0, len(f.orders))
	for _, o := range f.orders {
		result = append(result, o)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result
}

func (f *fakeAPI) listOrders(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	all := f.sortedOrders()
	cursor, _ := strconv.Atoi(r.URL.Query().Get("cursor"))
	end := min(cursor+f.pageSize, len(all))

	result := page[orderResponse]{Results: all[cursor:end]}
	if end < len(all) {
		result.Next = f.url("/orders/?cursor=" + strconv.Itoa(end))
	}

	writeJSON(w, http.StatusOK, result)
}

func (f *fakeAPI) getOrder(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	o, ok := f.orders[r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{Detail: "Not found."})

		return
	}

	writeJSON(w, http.StatusOK, o)
}

func (f *fakeAPI) cancelOrder(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := r.PathValue("id")
	f.cancelled = append(f.cancelled, id)

	o, ok := f.orders[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{Detail: "Not found."})

		return
	}

	o.State = "cancelled"
	o.UpdatedAt = epoch.Add(time.Second)
	f.orders[id] = o

	writeJSON(w, http.StatusOK, struct{}{})
}

func (f *fakeAPI) listQuotes(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var results []*quoteResponse
	for _, symbol := range strings.Split(r.URL.Query().Get("symbols"), ",") {
		q, ok := f.quotes[symbol]
		if !ok {
			results = append(results, nil)

			continue
		}

		results = append(results, &q)
	}

	writeJSON(w, http.StatusOK, page[*quoteResponse]{Results: results})
}

func (f *fakeAPI) listHistoricals(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	query := r.URL.Query()
	if query.Get("interval") == "" || query.Get("span") == "" {
		writeJSON(w, http.StatusBadRequest, apiError{Detail: "interval and span are required"})

		return
	}

	writeJSON(w, http.StatusOK, page[historicalsResponse]{Results: []historicalsResponse{
		{Symbol: query.Get("symbols"), Historicals: f.historicals},
	}})
}

func (f *fakeAPI) marketHours(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	hours, ok := f.hours[r.PathValue("date")]
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{Detail: "Not found."})

		return
	}

	writeJSON(w, http.StatusOK, hours)
}
