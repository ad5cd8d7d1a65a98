// Package statusapi exposes the mirrored auction state and the bidding
// actions over JSON for presentation layers. Read responses always
// carry the channel health so a UI can flag a stale view instead of
// presenting a frozen last-known state as live.
package statusapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mquinn/livelot/internal/channel"
	"github.com/mquinn/livelot/internal/clock"
	"github.com/mquinn/livelot/internal/models"
	"github.com/mquinn/livelot/internal/store"
)

// LotView is one lot decorated with the derived values a bidder's screen
// needs.
type LotView struct {
	models.Lot
	MinimumBid       int64               `json:"minimum_bid"`
	PendingAmount    *int64              `json:"pending_amount,omitempty"`
	TimerState       clock.LotTimerState `json:"timer_state"`
	TimeRemainingSec int                 `json:"time_remaining_sec"`
}

// LotsResponse is the list payload.
type LotsResponse struct {
	Lots     []LotView `json:"lots"`
	Degraded bool      `json:"degraded"`
	AsOf     time.Time `json:"as_of"`
}

// ChannelsResponse reports subscription health.
type ChannelsResponse struct {
	Subscriptions []channel.Subscription `json:"subscriptions"`
	Degraded      bool                   `json:"degraded"`
}

// Handler serves the status endpoints.
type Handler struct {
	store      *store.Store
	supervisor *channel.Supervisor
	clk        clockwork.Clock
}

// NewHandler creates the status handler.
func NewHandler(st *store.Store, sup *channel.Supervisor, clk clockwork.Clock) *Handler {
	return &Handler{store: st, supervisor: sup, clk: clk}
}

// RegisterRoutes attaches the status endpoints to mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("GET /v1/lots", h.handleLots)
	mux.HandleFunc("GET /v1/lots/{id}", h.handleLot)
	mux.HandleFunc("GET /v1/channels", h.handleChannels)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleLots(w http.ResponseWriter, r *http.Request) {
	now := h.clk.Now()
	lots := h.store.Lots()
	views := make([]LotView, 0, len(lots))
	for _, lot := range lots {
		views = append(views, h.viewFor(lot, now))
	}

	writeJSON(w, http.StatusOK, LotsResponse{
		Lots:     views,
		Degraded: h.supervisor.Degraded(),
		AsOf:     now,
	})
}

func (h *Handler) handleLot(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid lot id", http.StatusBadRequest)
		return
	}

	lot, ok := h.store.Lot(id)
	if !ok {
		http.Error(w, "lot not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, h.viewFor(lot, h.clk.Now()))
}

func (h *Handler) handleChannels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ChannelsResponse{
		Subscriptions: h.supervisor.Subscriptions(),
		Degraded:      h.supervisor.Degraded(),
	})
}

func (h *Handler) viewFor(lot models.Lot, now time.Time) LotView {
	view := LotView{
		Lot:              lot,
		MinimumBid:       minimumFor(h.store, lot),
		TimerState:       clock.StateFor(lot, now),
		TimeRemainingSec: int(clock.TimeRemaining(lot, now).Seconds()),
	}
	if amount, ok := h.store.PendingAmount(lot.ID); ok {
		view.PendingAmount = &amount
	}
	return view
}

func minimumFor(st *store.Store, lot models.Lot) int64 {
	minimum, err := st.MinimumBidFor(lot.ID)
	if err != nil {
		return lot.StartingBid
	}
	return minimum
}

func decodeJSON(r *http.Request, out any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to write status response")
	}
}
