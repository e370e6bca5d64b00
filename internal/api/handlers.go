/*
Package api
File: handlers.go
Description:
    Contains the HTTP handlers for the REST API.
    These are the view layer's entry points into the economy engine:
    they decode the request, call one engine action and return JSON.

    Key Responsibilities:
    - Input Validation (Is the JSON valid?)
    - Forwarding actions (click, buy, reload) to the engine
    - Click throttling (x/time/rate)
*/

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/everforgeworks/diggis-clicker/internal/game"
)

// Economy is the part of the engine the handlers drive.
type Economy interface {
	StateSource
	Click()
	Purchase(key string) (game.Receipt, error)
	Catalog() []game.Upgrade
	Price(key string) float64
	Reload() game.State
}

// Request DTOs

type BuyRequest struct {
	Key string `json:"key"`
}

// Response DTOs

type BuyResponse struct {
	Success bool          `json:"success"`
	Reason  string        `json:"reason,omitempty"` // "unknown_upgrade" or "insufficient_funds"
	Receipt *game.Receipt `json:"receipt,omitempty"`
	State   game.State    `json:"state"`
}

type PriceResponse struct {
	Key   string  `json:"key"`
	Price float64 `json:"price"`
}

// CatalogItem is one shop card: the definition plus its current price.
type CatalogItem struct {
	Key         string        `json:"key"`
	Category    game.Category `json:"category"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	BasePrice   float64       `json:"base_price"`
	Effect      float64       `json:"effect"`
	Price       float64       `json:"price"`
}

// Server wires the handlers to an engine and a hub.
type Server struct {
	eco     Economy
	hub     *Hub
	limiter *rate.Limiter
	log     *slog.Logger
}

func NewServer(eco Economy, hub *Hub, limiter *rate.Limiter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	return &Server{eco: eco, hub: hub, limiter: limiter, log: logger}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()

	// Information endpoints
	r.HandleFunc("/api/state", s.handleGetState).Methods(http.MethodGet)
	r.HandleFunc("/api/catalog", s.handleGetCatalog).Methods(http.MethodGet)
	r.HandleFunc("/api/price/{key}", s.handleGetPrice).Methods(http.MethodGet)

	// Action endpoints
	r.HandleFunc("/api/click", s.handleClick).Methods(http.MethodPost)
	r.HandleFunc("/api/buy", s.handleBuy).Methods(http.MethodPost)
	r.HandleFunc("/api/reload", s.handleReload).Methods(http.MethodPost)

	// Real-time push
	if s.hub != nil {
		r.HandleFunc("/ws", s.hub.ServeWs)
	}

	return corsMiddleware(r)
}

// handleGetState returns the full economy snapshot.
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.eco.Snapshot())
}

// handleGetCatalog returns the shop in catalog order with current prices.
func (s *Server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	upgrades := s.eco.Catalog()
	items := make([]CatalogItem, 0, len(upgrades))
	for _, u := range upgrades {
		items = append(items, CatalogItem{
			Key:         u.Key,
			Category:    u.Category,
			Title:       u.Title,
			Description: u.Description,
			BasePrice:   orZero(u.BasePrice),
			Effect:      orZero(u.Effect),
			Price:       orZero(s.eco.Price(u.Key)),
		})
	}
	s.writeJSON(w, http.StatusOK, items)
}

// handleGetPrice returns the current price of one upgrade; 0 for unknown keys.
func (s *Server) handleGetPrice(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	s.writeJSON(w, http.StatusOK, PriceResponse{Key: key, Price: orZero(s.eco.Price(key))})
}

// handleClick registers one click.
func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		http.Error(w, "Too many clicks", http.StatusTooManyRequests)
		return
	}
	s.eco.Click()
	s.writeJSON(w, http.StatusOK, s.eco.Snapshot())
}

// handleBuy attempts a purchase. A rejected purchase is a normal outcome
// and is answered with 200 and success=false.
func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	var req BuyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	resp := BuyResponse{}
	receipt, err := s.eco.Purchase(req.Key)
	switch {
	case err == nil:
		resp.Success = true
		resp.Receipt = &receipt
	case errors.Is(err, game.ErrUnknownUpgrade):
		resp.Reason = "unknown_upgrade"
	case errors.Is(err, game.ErrInsufficientFunds):
		resp.Reason = "insufficient_funds"
	default:
		s.log.Error("purchase failed", "key", req.Key, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	resp.State = s.eco.Snapshot()
	s.writeJSON(w, http.StatusOK, resp)
}

// handleReload discards in-memory progress in favour of what is persisted.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.eco.Reload())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Error("error encoding response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

// orZero keeps NaN and Inf from a malformed catalog entry out of JSON.
func orZero(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// corsMiddleware lets a browser client on another origin talk to the server.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
