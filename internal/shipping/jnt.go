package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/hoaglog2004/Argaty-sub000/internal/domain"
	"github.com/hoaglog2004/Argaty-sub000/internal/service"
	"github.com/sony/gobreaker/v2"
)

// JNTQuoter asks the J&T Express pricing endpoint for a delivery fee. The
// call sits behind a circuit breaker: when the carrier is slow or down the
// breaker opens and checkouts fall back to the flat-rate rule instead of
// piling up on a dead upstream.
type JNTQuoter struct {
	baseURL  string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker[int64]
	fallback service.ShippingQuoter
}

func NewJNTQuoter(baseURL string, timeout time.Duration) *JNTQuoter {
	settings := gobreaker.Settings{
		Name:     "jnt-shipping",
		Interval: time.Minute,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("circuit breaker %s: %s -> %s", name, from, to)
		},
	}

	return &JNTQuoter{
		baseURL:  baseURL,
		client:   &http.Client{Timeout: timeout},
		breaker:  gobreaker.NewCircuitBreaker[int64](settings),
		fallback: service.FlatRateQuoter{},
	}
}

type quoteRequest struct {
	City      string `json:"city"`
	District  string `json:"district"`
	Ward      string `json:"ward"`
	ItemCount int32  `json:"item_count"`
}

type quoteResponse struct {
	Fee int64 `json:"fee"`
}

// Quote returns the carrier's fee, or the flat-rate fallback when the
// carrier cannot answer. Orders above the free-shipping threshold never
// reach the carrier at all.
func (q *JNTQuoter) Quote(ctx context.Context, subtotal int64, dest domain.ReceiverInfo, itemCount int32) (int64, error) {
	if subtotal >= service.FreeShippingThreshold {
		return 0, nil
	}

	fee, err := q.breaker.Execute(func() (int64, error) {
		return q.fetchQuote(ctx, dest, itemCount)
	})
	if err != nil {
		log.Printf("carrier quote failed, using flat rate: %v", err)
		return q.fallback.Quote(ctx, subtotal, dest, itemCount)
	}
	return fee, nil
}

func (q *JNTQuoter) fetchQuote(ctx context.Context, dest domain.ReceiverInfo, itemCount int32) (int64, error) {
	body, err := json.Marshal(quoteRequest{
		City:      dest.City,
		District:  dest.District,
		Ward:      dest.Ward,
		ItemCount: itemCount,
	})
	if err != nil {
		return 0, fmt.Errorf("marshal quote request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, q.baseURL+"/api/shipping/quote", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build quote request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call carrier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("carrier returned status %d", resp.StatusCode)
	}

	var quote quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return 0, fmt.Errorf("decode carrier response: %w", err)
	}
	if quote.Fee < 0 {
		return 0, fmt.Errorf("carrier returned negative fee %d", quote.Fee)
	}
	return quote.Fee, nil
}
