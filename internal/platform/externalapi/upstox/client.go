package upstox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"market_data/internal/feature/candles/domain/entity"
	"market_data/internal/feature/candles/usecase"
	"market_data/internal/platform/externalapi/upstox/dto"
)

var (
	// ErrUnsupportedInterval はUpstoxが受け付けない時間足コードです。
	ErrUnsupportedInterval = errors.New("upstox: unsupported interval")
	// ErrEmptyResponse は空のレスポンスまたは data が空の場合に返されます。
	ErrEmptyResponse = errors.New("upstox: empty response")
	// ErrMalformedResponse はレスポンスの解釈に失敗した場合に返されます。
	ErrMalformedResponse = errors.New("upstox: malformed response")
)

// Client はUpstoxのmarket-quote APIからOHLCスナップショットを取得するMarketRepository実装です。
type Client struct {
	cfg    Config
	client *http.Client
}

// ClientがMarketRepositoryを実装していることをコンパイル時に検証します。
var _ usecase.MarketRepository = (*Client)(nil)

// NewClient は指定された設定とHTTPクライアントでClientを生成します。
func NewClient(cfg Config, client *http.Client) *Client {
	return &Client{cfg: cfg, client: client}
}

// FetchQuotes は symbols のOHLCスナップショットを1リクエストで取得します。
// 戻り値はレスポンスのキー（表示用シンボル）の昇順です。
func (c *Client) FetchQuotes(ctx context.Context, symbols []string, upstreamInterval string) ([]entity.Quote, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("upstox: no instrument keys")
	}
	if !supported(upstreamInterval) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedInterval, upstreamInterval)
	}

	q := url.Values{}
	q.Set("instrument_key", strings.Join(symbols, ","))
	q.Set("interval", upstreamInterval)
	u := fmt.Sprintf("%s/market-quote/ohlc?%s", strings.TrimRight(c.cfg.BaseURL, "/"), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AuthToken)
	}

	start := time.Now()
	res, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()
	slog.Debug("upstox quote request", "symbols", len(symbols), "interval", upstreamInterval, "status", res.StatusCode, "elapsed", time.Since(start))

	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("upstox http %d", res.StatusCode)
	}

	var body dto.OHLCResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if body.Status == "error" {
		msg := "unknown error"
		if len(body.Errors) > 0 {
			msg = body.Errors[0].ErrorCode + " " + body.Errors[0].Message
		}
		return nil, fmt.Errorf("upstox: %s", msg)
	}
	if len(body.Data) == 0 {
		return nil, ErrEmptyResponse
	}

	keys := make([]string, 0, len(body.Data))
	for k := range body.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	quotes := make([]entity.Quote, 0, len(keys))
	for _, k := range keys {
		v := body.Data[k]
		if v.LastPrice == nil {
			return nil, fmt.Errorf("%w: %q has no last_price", ErrMalformedResponse, k)
		}
		quotes = append(quotes, entity.Quote{
			Symbol:          k,
			InstrumentToken: v.InstrumentToken,
			LastPrice:       *v.LastPrice,
			Prev:            toOHLC(v.PrevOHLC),
			Live:            toOHLC(v.LiveOHLC),
		})
	}
	return quotes, nil
}

func toOHLC(o *dto.OHLC) *entity.OHLC {
	if o == nil {
		return nil
	}
	out := &entity.OHLC{
		Open:   o.Open,
		High:   o.High,
		Low:    o.Low,
		Close:  o.Close,
		Volume: o.Volume,
	}
	if o.Ts > 0 {
		out.Timestamp = time.UnixMilli(o.Ts).UTC()
	}
	return out
}

// supported はupstreamIntervalが既知の時間足コードかを判定します。
func supported(code string) bool {
	if code == "" {
		return false
	}
	for _, iv := range entity.Intervals() {
		if iv.UpstreamCode() == code {
			return true
		}
	}
	return false
}
