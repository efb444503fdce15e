package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/dgnsrekt/optionschain/internal/chain"
	"github.com/dgnsrekt/optionschain/internal/snapshot"
)

type Server struct {
	store        *snapshot.Store
	earliestPath string
	logger       *zap.Logger
}

// NewServer serves the snapshots in store and the earliest-expiring file at
// earliestPath.
func NewServer(store *snapshot.Store, earliestPath string, logger *zap.Logger) *Server {
	return &Server{
		store:        store,
		earliestPath: earliestPath,
		logger:       logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type snapshotInfo struct {
	Name       string    `json:"name"`
	Exchange   string    `json:"exchange"`
	Ticker     string    `json:"ticker"`
	CapturedAt time.Time `json:"captured_at"`
	Size       int64     `json:"size"`
}

type contractView struct {
	ContractID        string      `json:"contract_id"`
	Type              string      `json:"type"`
	Strike            json.Number `json:"strike"`
	Expiration        string      `json:"expiration"`
	Volume            int64       `json:"volume"`
	OpenInterest      int64       `json:"open_interest"`
	ImpliedVolatility json.Number `json:"implied_volatility"`
	Bid               json.Number `json:"bid"`
	Ask               json.Number `json:"ask"`
	Source            string      `json:"source"`
}

type chainResponse struct {
	Snapshot  *snapshotInfo  `json:"snapshot,omitempty"`
	Count     int            `json:"count"`
	Contracts []contractView `json:"contracts"`
}

func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.List()
	if err != nil {
		s.logger.Error("listing snapshots", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "listing snapshots failed")
		return
	}

	// limit is checked against the OpenAPI schema before reaching here
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n < len(entries) {
			entries = entries[len(entries)-n:]
		}
	}

	infos := make([]snapshotInfo, 0, len(entries))
	for _, e := range entries {
		infos = append(infos, info(e))
	}
	writeJSON(w, r, http.StatusOK, infos)
}

func (s *Server) GetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	exchange := chi.URLParam(r, "exchange")
	ticker := chi.URLParam(r, "ticker")

	entry, err := s.store.Latest(exchange, ticker)
	if err != nil {
		s.respondLoadError(w, r, err)
		return
	}

	contracts, err := snapshot.Load(entry.Path)
	if err != nil {
		s.respondLoadError(w, r, err)
		return
	}

	meta := info(entry)
	writeJSON(w, r, http.StatusOK, chainResponse{
		Snapshot:  &meta,
		Count:     len(contracts),
		Contracts: views(contracts),
	})
}

func (s *Server) GetEarliest(w http.ResponseWriter, r *http.Request) {
	contracts, err := snapshot.Load(s.earliestPath)
	if err != nil {
		s.respondLoadError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, chainResponse{
		Count:     len(contracts),
		Contracts: views(contracts),
	})
}

func (s *Server) respondLoadError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, snapshot.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	s.logger.Error("loading snapshot", zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, "loading snapshot failed")
}

func info(e snapshot.Entry) snapshotInfo {
	return snapshotInfo{
		Name:       e.Name,
		Exchange:   e.Exchange,
		Ticker:     e.Ticker,
		CapturedAt: e.CapturedAt,
		Size:       e.Size,
	}
}

func views(contracts []chain.Contract) []contractView {
	out := make([]contractView, 0, len(contracts))
	for _, c := range contracts {
		out = append(out, contractView{
			ContractID:        c.ContractID,
			Type:              string(c.Type),
			Strike:            json.Number(c.Strike.StringFixed(2)),
			Expiration:        c.Expiration,
			Volume:            c.Volume,
			OpenInterest:      c.OpenInterest,
			ImpliedVolatility: json.Number(c.ImpliedVolatility.StringFixed(2)),
			Bid:               json.Number(c.Bid.StringFixed(2)),
			Ask:               json.Number(c.Ask.StringFixed(2)),
			Source:            string(c.Source),
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Error: msg})
}
