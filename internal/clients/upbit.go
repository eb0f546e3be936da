package clients

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/jeongwoo-hong/jwcoin/internal/domain"
	"github.com/jeongwoo-hong/jwcoin/pkg/retrier"
)

const (
	// DefaultUpbitBaseURL is the public Upbit REST endpoint.
	DefaultUpbitBaseURL = "https://api.upbit.com"

	upbitRequestTimeout = 10 * time.Second
)

// UpbitClient is a minimal REST client for the Upbit exchange: account
// state, market data, and market order execution. Authenticated requests
// carry a JWT signed with the API secret; the token is a fixed HS256
// construction over a SHA-512 query hash, assembled here directly since no
// dedicated SDK exists for this venue.
type UpbitClient struct {
	accessKey  string
	secretKey  string
	baseURL    string
	httpClient *http.Client
	retrier    *retrier.Retrier
}

// NewUpbitClient creates a client with the given credentials. An empty
// baseURL selects the production endpoint.
func NewUpbitClient(accessKey, secretKey, baseURL string) *UpbitClient {
	if baseURL == "" {
		baseURL = DefaultUpbitBaseURL
	}
	return &UpbitClient{
		accessKey: accessKey,
		secretKey: secretKey,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: upbitRequestTimeout,
		},
		retrier: retrier.New(
			retrier.WithMaxRetries(3),
			retrier.WithInitialInterval(500*time.Millisecond),
		),
	}
}

type upbitAccount struct {
	Currency    string `json:"currency"`
	Balance     string `json:"balance"`
	AvgBuyPrice string `json:"avg_buy_price"`
}

// AccountStatus reads balances and the exchange-reported average buy price
// for the pair, plus the current market price.
func (c *UpbitClient) AccountStatus(ctx context.Context, pair domain.Pair) (domain.AccountStatus, error) {
	var accounts []upbitAccount
	if err := c.get(ctx, "/v1/accounts", nil, true, &accounts); err != nil {
		return domain.AccountStatus{}, errors.Wrap(err, "fetch accounts")
	}

	var status domain.AccountStatus
	for _, acc := range accounts {
		switch acc.Currency {
		case pair.Quote:
			status.CashBalance = parseDecimal(acc.Balance)
		case pair.Base:
			status.BaseBalance = parseDecimal(acc.Balance)
			status.AvgBuyPrice = parseDecimal(acc.AvgBuyPrice)
		}
	}

	price, err := c.Ticker(ctx, pair)
	if err != nil {
		return domain.AccountStatus{}, err
	}
	status.LastPrice = price
	return status, nil
}

// Ticker returns the last traded price for the pair.
func (c *UpbitClient) Ticker(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	var tickers []struct {
		TradePrice float64 `json:"trade_price"`
	}
	query := url.Values{"markets": {pair.Market()}}
	if err := c.get(ctx, "/v1/ticker", query, false, &tickers); err != nil {
		return decimal.Zero, errors.Wrap(err, "fetch ticker")
	}
	if len(tickers) == 0 {
		return decimal.Zero, errors.Errorf("no ticker data for %s", pair.Market())
	}
	return decimal.NewFromFloat(tickers[0].TradePrice), nil
}

// Orderbook returns the aggregated order book for the pair.
func (c *UpbitClient) Orderbook(ctx context.Context, pair domain.Pair) (domain.Orderbook, error) {
	var books []struct {
		TotalBidSize float64 `json:"total_bid_size"`
		TotalAskSize float64 `json:"total_ask_size"`
		Units        []struct {
			AskPrice float64 `json:"ask_price"`
			BidPrice float64 `json:"bid_price"`
			AskSize  float64 `json:"ask_size"`
			BidSize  float64 `json:"bid_size"`
		} `json:"orderbook_units"`
	}
	query := url.Values{"markets": {pair.Market()}}
	if err := c.get(ctx, "/v1/orderbook", query, false, &books); err != nil {
		return domain.Orderbook{}, errors.Wrap(err, "fetch orderbook")
	}
	if len(books) == 0 {
		return domain.Orderbook{}, errors.Errorf("no orderbook data for %s", pair.Market())
	}

	book := domain.Orderbook{
		TotalBidSize: decimal.NewFromFloat(books[0].TotalBidSize),
		TotalAskSize: decimal.NewFromFloat(books[0].TotalAskSize),
	}
	for _, u := range books[0].Units {
		book.Units = append(book.Units, domain.OrderbookUnit{
			AskPrice: decimal.NewFromFloat(u.AskPrice),
			BidPrice: decimal.NewFromFloat(u.BidPrice),
			AskSize:  decimal.NewFromFloat(u.AskSize),
			BidSize:  decimal.NewFromFloat(u.BidSize),
		})
	}
	return book, nil
}

// CandleInterval selects the candle endpoint.
type CandleInterval string

const (
	CandleDays   CandleInterval = "days"
	CandleHourly CandleInterval = "minutes/60"
)

// Candles returns up to count candles for the pair, oldest first.
func (c *UpbitClient) Candles(ctx context.Context, pair domain.Pair, interval CandleInterval, count int) ([]domain.Candle, error) {
	var raw []struct {
		CandleDateTimeUTC string  `json:"candle_date_time_utc"`
		OpeningPrice      float64 `json:"opening_price"`
		HighPrice         float64 `json:"high_price"`
		LowPrice          float64 `json:"low_price"`
		TradePrice        float64 `json:"trade_price"`
		AccTradeVolume    float64 `json:"candle_acc_trade_volume"`
	}
	query := url.Values{
		"market": {pair.Market()},
		"count":  {fmt.Sprintf("%d", count)},
	}
	if err := c.get(ctx, "/v1/candles/"+string(interval), query, false, &raw); err != nil {
		return nil, errors.Wrapf(err, "fetch %s candles", interval)
	}

	// Upbit returns newest first; indicators want chronological order.
	candles := make([]domain.Candle, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		r := raw[i]
		ts, _ := time.Parse("2006-01-02T15:04:05", r.CandleDateTimeUTC)
		candles = append(candles, domain.Candle{
			Time:   ts,
			Open:   decimal.NewFromFloat(r.OpeningPrice),
			High:   decimal.NewFromFloat(r.HighPrice),
			Low:    decimal.NewFromFloat(r.LowPrice),
			Close:  decimal.NewFromFloat(r.TradePrice),
			Volume: decimal.NewFromFloat(r.AccTradeVolume),
		})
	}
	return candles, nil
}

// BuyMarket places a market buy spending the given cash amount.
// Returns the exchange order id.
func (c *UpbitClient) BuyMarket(ctx context.Context, pair domain.Pair, cost decimal.Decimal) (string, error) {
	body := url.Values{
		"market":   {pair.Market()},
		"side":     {"bid"},
		"ord_type": {"price"},
		"price":    {cost.String()},
	}
	return c.placeOrder(ctx, body)
}

// SellMarket places a market sell of the given base-asset volume.
func (c *UpbitClient) SellMarket(ctx context.Context, pair domain.Pair, volume decimal.Decimal) (string, error) {
	body := url.Values{
		"market":   {pair.Market()},
		"side":     {"ask"},
		"ord_type": {"market"},
		"volume":   {volume.String()},
	}
	return c.placeOrder(ctx, body)
}

func (c *UpbitClient) placeOrder(ctx context.Context, body url.Values) (string, error) {
	payload, err := json.Marshal(valuesToMap(body))
	if err != nil {
		return "", errors.Wrap(err, "marshal order body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/orders", strings.NewReader(string(payload)))
	if err != nil {
		return "", errors.Wrap(err, "create order request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.authToken(body))

	var order struct {
		UUID string `json:"uuid"`
	}
	if err := c.do(req, &order); err != nil {
		return "", errors.Wrap(err, "place order")
	}
	return order.UUID, nil
}

// get performs a read request with retries. Orders never go through here:
// retrying a write could double-place it.
func (c *UpbitClient) get(ctx context.Context, path string, query url.Values, authed bool, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return c.retrier.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return retrier.Permanent(errors.Wrap(err, "create request"))
		}
		if authed {
			req.Header.Set("Authorization", "Bearer "+c.authToken(query))
		}
		return c.do(req, out)
	})
}

func (c *UpbitClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "HTTP request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("upbit API returned status %d: %s", resp.StatusCode, string(body))
	}
	return errors.Wrap(json.Unmarshal(body, out), "unmarshal response")
}

// authToken builds the Upbit JWT: header.payload.signature with HS256,
// where authenticated query parameters are bound via a SHA-512 hash.
func (c *UpbitClient) authToken(query url.Values) string {
	claims := map[string]string{
		"access_key": c.accessKey,
		"nonce":      uuid.NewString(),
	}
	if len(query) > 0 {
		sum := sha512.Sum512([]byte(query.Encode()))
		claims["query_hash"] = hex.EncodeToString(sum[:])
		claims["query_hash_alg"] = "SHA512"
	}

	header, _ := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	payload, _ := json.Marshal(claims)

	enc := base64.RawURLEncoding
	signingInput := enc.EncodeToString(header) + "." + enc.EncodeToString(payload)

	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(signingInput))

	return signingInput + "." + enc.EncodeToString(mac.Sum(nil))
}

func valuesToMap(v url.Values) map[string]string {
	m := make(map[string]string, len(v))
	for key := range v {
		m[key] = v.Get(key)
	}
	return m
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
