package clients

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mquinn/livelot/internal/models"
)

func TestSubmitBidAccepted(t *testing.T) {
	lotID := uuid.New()
	extended := time.Date(2025, 6, 1, 20, 5, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/bids", r.URL.Path)
		require.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))

		var req struct {
			LotID  uuid.UUID `json:"lotId"`
			Amount int64     `json:"amount"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, lotID, req.LotID)
		assert.Equal(t, int64(120), req.Amount)

		json.NewEncoder(w).Encode(BidResult{
			Accepted:       true,
			Amount:         120,
			NewClosingTime: &extended,
		})
	}))
	defer srv.Close()

	client := NewBidClient(srv.URL, "token-1", 5*time.Second)
	result, err := client.SubmitBid(t.Context(), lotID, 120)
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	require.NotNil(t, result.NewClosingTime)
	assert.True(t, result.NewClosingTime.Equal(extended))
}

func TestSubmitBidRejected(t *testing.T) {
	cases := []struct {
		name   string
		reason RejectReason
	}{
		{name: "lot closed in flight", reason: RejectLotNotActive},
		{name: "outbid in flight", reason: RejectAmountTooLow},
		{name: "session expired", reason: RejectSessionInvalid},
		{name: "unknown failure", reason: RejectUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(BidResult{Accepted: false, Reason: tc.reason})
			}))
			defer srv.Close()

			client := NewBidClient(srv.URL, "", 5*time.Second)
			result, err := client.SubmitBid(t.Context(), uuid.New(), 120)
			require.NoError(t, err)
			assert.False(t, result.Accepted)
			assert.Equal(t, tc.reason, result.Reason)
		})
	}
}

func TestSubmitBidTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	client := NewBidClient(srv.URL, "", 50*time.Millisecond)
	_, err := client.SubmitBid(t.Context(), uuid.New(), 120)
	require.ErrorIs(t, err, ErrSubmitTimeout)
}

func TestSubmitBidServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewBidClient(srv.URL, "", time.Second)
	_, err := client.SubmitBid(t.Context(), uuid.New(), 120)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSubmitTimeout)
}

func TestSetLotStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/operator/status", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "A1", req["lotCode"])
		assert.Equal(t, "sold", req["newStatus"])

		json.NewEncoder(w).Encode(OperatorResult{
			Success: true,
			Winner:  &Winner{BidderID: "bidder-9", Amount: 450},
		})
	}))
	defer srv.Close()

	client := NewOperatorClient(srv.URL, "")
	result, err := client.SetLotStatus(t.Context(), "A1", models.LotStatusSold, "op-1")
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.NotNil(t, result.Winner)
	assert.Equal(t, int64(450), result.Winner.Amount)
}

func TestTimerControl(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "extend", req["action"])
		assert.Equal(t, float64(5), req["durationMinutes"])

		sent := 42
		json.NewEncoder(w).Encode(TimerResult{Success: true, Message: "extended", NotificationsSent: &sent})
	}))
	defer srv.Close()

	client := NewTimerClient(srv.URL, "")
	minutes := 5
	result, err := client.Control(t.Context(), TimerExtend, &minutes)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "extended", result.Message)
}

func TestFetchLots(t *testing.T) {
	lots := []models.Lot{
		{ID: uuid.New(), Code: "A1", Status: models.LotStatusActive, StartingBid: 100},
		{ID: uuid.New(), Code: "B2", Status: models.LotStatusSold, StartingBid: 200},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/lots", r.URL.Path)
		json.NewEncoder(w).Encode(lots)
	}))
	defer srv.Close()

	client := NewCatalogClient(srv.URL, "")
	got, err := client.FetchLots(t.Context())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A1", got[0].Code)
	assert.Equal(t, models.LotStatusSold, got[1].Status)
}
