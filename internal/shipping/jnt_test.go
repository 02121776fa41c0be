package shipping

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hoaglog2004/Argaty-sub000/internal/domain"
	"github.com/hoaglog2004/Argaty-sub000/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testReceiver = domain.ReceiverInfo{
	City:     "Ho Chi Minh",
	District: "District 1",
	Ward:     "Ben Nghe",
}

func TestJNTQuoter_UsesCarrierFee(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/shipping/quote", r.URL.Path)

		var req quoteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Ho Chi Minh", req.City)

		json.NewEncoder(w).Encode(quoteResponse{Fee: 45000})
	}))
	defer srv.Close()

	quoter := NewJNTQuoter(srv.URL, time.Second)

	fee, err := quoter.Quote(context.Background(), 200000, testReceiver, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(45000), fee)
}

func TestJNTQuoter_FreeShippingSkipsCarrier(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	quoter := NewJNTQuoter(srv.URL, time.Second)

	fee, err := quoter.Quote(context.Background(), service.FreeShippingThreshold, testReceiver, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), fee)
	assert.False(t, called)
}

func TestJNTQuoter_FallsBackOnCarrierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	quoter := NewJNTQuoter(srv.URL, time.Second)

	fee, err := quoter.Quote(context.Background(), 200000, testReceiver, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(service.BaseShippingFee), fee)
}

func TestJNTQuoter_FallsBackWhenCarrierUnreachable(t *testing.T) {
	quoter := NewJNTQuoter("http://127.0.0.1:1", 100*time.Millisecond)

	fee, err := quoter.Quote(context.Background(), 200000, testReceiver, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(service.BaseShippingFee), fee)
}

func TestJNTQuoter_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	quoter := NewJNTQuoter(srv.URL, time.Second)

	for i := 0; i < 5; i++ {
		fee, err := quoter.Quote(context.Background(), 200000, testReceiver, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(service.BaseShippingFee), fee)
	}

	// the breaker tripped after 3 consecutive failures; later quotes went
	// straight to the fallback without touching the carrier
	assert.Equal(t, 3, hits)
}

func TestJNTQuoter_RejectsNegativeFee(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(quoteResponse{Fee: -100})
	}))
	defer srv.Close()

	quoter := NewJNTQuoter(srv.URL, time.Second)

	fee, err := quoter.Quote(context.Background(), 200000, testReceiver, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(service.BaseShippingFee), fee)
}
