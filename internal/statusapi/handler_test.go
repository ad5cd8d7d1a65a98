package statusapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mquinn/livelot/internal/channel"
	"github.com/mquinn/livelot/internal/models"
	"github.com/mquinn/livelot/internal/store"
)

func newTestHandler(t *testing.T) (*Handler, *store.Store, *clockwork.FakeClock) {
	t.Helper()
	fake := clockwork.NewFakeClock()
	st := store.New(fake)
	sup := channel.New(nil, nil, nil, fake, channel.DefaultConfig(), nil)
	t.Cleanup(sup.Close)
	return NewHandler(st, sup, fake), st, fake
}

func TestHandleLots(t *testing.T) {
	h, st, fake := newTestHandler(t)

	closing := fake.Now().Add(90 * time.Second)
	cur := int64(300)
	lot := models.Lot{
		ID:          uuid.New(),
		Code:        "A1",
		Status:      models.LotStatusActive,
		StartingBid: 100,
		CurrentBid:  &cur,
		ClosingTime: &closing,
	}
	st.ReplaceLots([]models.Lot{lot})

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/lots", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LotsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Lots, 1)

	got := resp.Lots[0]
	assert.Equal(t, int64(315), got.MinimumBid)
	assert.Equal(t, 90, got.TimeRemainingSec)
	assert.Equal(t, "counting", string(got.TimerState))
	assert.Nil(t, got.PendingAmount)
	assert.False(t, resp.Degraded, "no subscriptions yet, nothing to flag")
}

func TestHandleLotShowsPendingAmount(t *testing.T) {
	h, st, _ := newTestHandler(t)

	lot := models.Lot{ID: uuid.New(), Code: "A1", Status: models.LotStatusActive, StartingBid: 100}
	st.ReplaceLots([]models.Lot{lot})
	_, err := st.ProposeLocalBid(lot.ID, 120)
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/lots/"+lot.ID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var view LotView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.NotNil(t, view.PendingAmount)
	assert.Equal(t, int64(120), *view.PendingAmount)
}

func TestHandleLotNotFound(t *testing.T) {
	h, _, _ := newTestHandler(t)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/lots/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/lots/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleChannels(t *testing.T) {
	h, _, _ := newTestHandler(t)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/channels", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChannelsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Subscriptions)
}

func TestHealthz(t *testing.T) {
	h, _, _ := newTestHandler(t)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
