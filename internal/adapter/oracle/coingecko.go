package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultBaseURL = "https://api.coingecko.com/api/v3"

var (
	ErrUnknownPair = errors.New("oracle: unknown currency pair")
	ErrNoQuote     = errors.New("oracle: no quote returned")
)

// coinIDs maps ticker symbols to CoinGecko coin ids.
var coinIDs = map[string]string{
	"SOL": "solana",
}

// CoinGecko reads spot prices from the CoinGecko simple price API. Quotes
// are reused for ttl to stay under the public rate limit.
type CoinGecko struct {
	baseURL string
	http    *http.Client
	ttl     time.Duration

	mu     sync.Mutex
	cached map[string]cachedRate
}

type cachedRate struct {
	rate decimal.Decimal
	at   time.Time
}

func NewCoinGecko(baseURL string, ttl time.Duration) *CoinGecko {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &CoinGecko{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
		ttl:     ttl,
		cached:  make(map[string]cachedRate),
	}
}

func (o *CoinGecko) ExchangeRate(ctx context.Context, pair string) (decimal.Decimal, error) {
	base, quote, ok := strings.Cut(strings.ToUpper(pair), "/")
	id, known := coinIDs[base]
	if !ok || !known || quote == "" {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownPair, pair)
	}

	o.mu.Lock()
	if c, hit := o.cached[pair]; hit && o.ttl > 0 && time.Since(c.at) < o.ttl {
		o.mu.Unlock()
		return c.rate, nil
	}
	o.mu.Unlock()

	vs := strings.ToLower(quote)
	q := url.Values{}
	q.Set("ids", id)
	q.Set("vs_currencies", vs)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.http.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("coingecko request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("coingecko returned status %d", resp.StatusCode)
	}

	var body map[string]map[string]json.Number
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode coingecko response: %w", err)
	}

	raw, ok := body[id][vs]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNoQuote, pair)
	}

	rate, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid coingecko price %q: %w", raw, err)
	}

	o.mu.Lock()
	o.cached[pair] = cachedRate{rate: rate, at: time.Now()}
	o.mu.Unlock()

	return rate, nil
}
