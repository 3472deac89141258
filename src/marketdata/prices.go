package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"panicpod/src/model"
)

const coinGeckoIDs = "bitcoin,ethereum,zetachain"

type simplePriceResponse map[string]struct {
	USD float64 `json:"usd"`
}

// PriceService fetches USD unit prices from CoinGecko. Responses are cached
// for the configured TTL, and a fetch failure falls back to the last good
// snapshot so a flaky price API never blocks planning.
type PriceService struct {
	http *resty.Client
	ttl  time.Duration
	log  *logger.Entry
	now  func() time.Time

	mu        sync.Mutex
	cached    model.PriceSnapshot
	fetchedAt time.Time
}

func NewPriceService(cfg Config, log *logger.Entry) *PriceService {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}

	httpClient := resty.New().
		SetBaseURL(cfg.CoinGeckoAPIURL).
		SetTimeout(time.Duration(cfg.HTTPTimeoutS) * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &PriceService{
		http: httpClient,
		ttl:  time.Duration(cfg.PriceCacheTTLS) * time.Second,
		log:  log,
		now:  time.Now,
	}
}

func (s *PriceService) Prices(ctx context.Context) (model.PriceSnapshot, error) {
	s.mu.Lock()
	if !s.fetchedAt.IsZero() && s.now().Sub(s.fetchedAt) < s.ttl {
		cached := s.cached
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	snapshot, err := s.fetch(ctx)
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.fetchedAt.IsZero() {
			s.log.WithError(err).Warn("price fetch failed, serving stale snapshot")
			return s.cached, nil
		}
		return model.PriceSnapshot{}, err
	}

	s.mu.Lock()
	s.cached = snapshot
	s.fetchedAt = s.now()
	s.mu.Unlock()
	return snapshot, nil
}

func (s *PriceService) fetch(ctx context.Context) (model.PriceSnapshot, error) {
	var out simplePriceResponse
	resp, err := s.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ids":           coinGeckoIDs,
			"vs_currencies": "usd",
		}).
		SetResult(&out).
		Get("/simple/price")
	if err != nil {
		return model.PriceSnapshot{}, fmt.Errorf("coingecko request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return model.PriceSnapshot{}, fmt.Errorf("coingecko HTTP %d: %s", resp.StatusCode(), resp.String())
	}

	return model.PriceSnapshot{
		Bitcoin:  decimal.NewFromFloat(out["bitcoin"].USD),
		Ethereum: decimal.NewFromFloat(out["ethereum"].USD),
		Zeta:     decimal.NewFromFloat(out["zetachain"].USD),
	}, nil
}
