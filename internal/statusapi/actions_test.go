package statusapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mquinn/livelot/internal/auction"
	"github.com/mquinn/livelot/internal/clients"
	"github.com/mquinn/livelot/internal/models"
)

type fakeActions struct {
	outcome auction.BidOutcome
	bidErr  error

	lastLotID  uuid.UUID
	lastAmount int64

	statusResult clients.OperatorResult
	lastLotCode  string
	lastStatus   models.LotStatus

	timerResult clients.TimerResult
	lastAction  clients.TimerAction
}

func (f *fakeActions) PlaceBid(ctx context.Context, lotID uuid.UUID, amount int64) (auction.BidOutcome, error) {
	f.lastLotID = lotID
	f.lastAmount = amount
	return f.outcome, f.bidErr
}

func (f *fakeActions) RequestLotStatus(ctx context.Context, lotCode string, newStatus models.LotStatus, operatorID string) (clients.OperatorResult, error) {
	f.lastLotCode = lotCode
	f.lastStatus = newStatus
	return f.statusResult, nil
}

func (f *fakeActions) ControlTimer(ctx context.Context, action clients.TimerAction, durationMinutes *int) (clients.TimerResult, error) {
	f.lastAction = action
	return f.timerResult, nil
}

type fakeChannelControl struct {
	resets int
}

func (f *fakeChannelControl) ResetAttempts() { f.resets++ }

func newActionsServer(app *fakeActions, channels *fakeChannelControl) *httptest.Server {
	mux := http.NewServeMux()
	NewActionsHandler(app, channels).RegisterRoutes(mux)
	return httptest.NewServer(mux)
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func TestHandlePlaceBid(t *testing.T) {
	app := &fakeActions{outcome: auction.BidOutcome{Status: auction.BidAccepted}}
	srv := newActionsServer(app, &fakeChannelControl{})
	defer srv.Close()

	lotID := uuid.New()
	resp := postJSON(t, srv.URL+"/v1/lots/"+lotID.String()+"/bids", placeBidRequest{Amount: 150})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body BidResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, auction.BidAccepted, body.Status)
	assert.Equal(t, lotID, app.lastLotID)
	assert.Equal(t, int64(150), app.lastAmount)
}

func TestHandlePlaceBidTooLow(t *testing.T) {
	app := &fakeActions{outcome: auction.BidOutcome{Status: auction.BidTooLow, MinimumBid: 105}}
	srv := newActionsServer(app, &fakeChannelControl{})
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/lots/"+uuid.NewString()+"/bids", placeBidRequest{Amount: 50})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body BidResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, auction.BidTooLow, body.Status)
	assert.Equal(t, int64(105), body.MinimumBid)
}

func TestHandlePlaceBidSessionInvalid(t *testing.T) {
	app := &fakeActions{bidErr: auction.ErrSessionInvalid}
	srv := newActionsServer(app, &fakeChannelControl{})
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/lots/"+uuid.NewString()+"/bids", placeBidRequest{Amount: 150})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandlePlaceBidBadLotID(t *testing.T) {
	srv := newActionsServer(&fakeActions{}, &fakeChannelControl{})
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/lots/not-a-uuid/bids", placeBidRequest{Amount: 150})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleSetLotStatus(t *testing.T) {
	app := &fakeActions{statusResult: clients.OperatorResult{Success: true}}
	srv := newActionsServer(app, &fakeChannelControl{})
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/operator/status", setLotStatusRequest{
		LotCode:    "A12",
		NewStatus:  "sold",
		OperatorID: "op-1",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "A12", app.lastLotCode)
	assert.Equal(t, models.LotStatusSold, app.lastStatus)
}

func TestHandleSetLotStatusMissingFields(t *testing.T) {
	srv := newActionsServer(&fakeActions{}, &fakeChannelControl{})
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/operator/status", setLotStatusRequest{LotCode: "A12"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleTimer(t *testing.T) {
	app := &fakeActions{timerResult: clients.TimerResult{Success: true, Message: "started"}}
	srv := newActionsServer(app, &fakeChannelControl{})
	defer srv.Close()

	minutes := 10
	resp := postJSON(t, srv.URL+"/v1/timer", timerRequest{Action: "start", DurationMinutes: &minutes})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, clients.TimerStart, app.lastAction)
}

func TestHandleChannelReset(t *testing.T) {
	channels := &fakeChannelControl{}
	srv := newActionsServer(&fakeActions{}, channels)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/channels/reset", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, channels.resets)
}
