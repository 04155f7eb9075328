// Package finance reads tracked assets, daily OHLCV history and price forecasts.
package finance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/tradevortex-client/apiclient"
	tverrors "github.com/jrsteele09/tradevortex-client/internal/errors"
)

const dateLayout = "2006-01-02"

// AssetType groups symbols on the backend
type AssetType string

const (
	StockKR AssetType = "stock_kr"
	StockUS AssetType = "stock_us"
	Crypto  AssetType = "crypto"
	Forex   AssetType = "forex"
)

type Symbol struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Price is a decimal the backend serialises as a string ("71200.00")
type Price float64

func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*p = 0
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("price %q: %w", data, err)
	}
	*p = Price(f)
	return nil
}

// Date is a calendar day without a time zone
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

// Candle is one day of OHLCV data
type Candle struct {
	ID     int64  `json:"id"`
	Asset  string `json:"asset"`
	Date   Date   `json:"date"`
	Open   Price  `json:"open"`
	High   Price  `json:"high"`
	Low    Price  `json:"low"`
	Close  Price  `json:"close"`
	Volume int64  `json:"volume"`
}

type Forecast struct {
	Asset  string    `json:"asset"`
	Values []float64 `json:"forecast"`
}

type Service struct {
	client *apiclient.Client
}

func NewService(client *apiclient.Client) *Service {
	return &Service{client: client}
}

// Symbols lists tracked assets grouped by type
func (s *Service) Symbols(ctx context.Context) (map[AssetType][]Symbol, error) {
	var out map[AssetType][]Symbol
	if err := s.client.DoJSON(ctx, apiclient.Get("finance/assets/get_symbols/", nil), &out); err != nil {
		return nil, fmt.Errorf("[finance Symbols] %w", err)
	}
	return out, nil
}

// History returns daily candles for symbol between from and to inclusive,
// newest first. A zero to means today.
func (s *Service) History(ctx context.Context, symbol string, from, to time.Time) ([]Candle, error) {
	if symbol == "" {
		return nil, fmt.Errorf("[finance History] %w: symbol is required", tverrors.ErrInvalidRequest)
	}
	if from.IsZero() {
		return nil, fmt.Errorf("[finance History] %w: start date is required", tverrors.ErrInvalidRequest)
	}
	q := url.Values{"symbol": {symbol}, "start_date": {from.Format(dateLayout)}}
	if !to.IsZero() {
		if to.Before(from) {
			return nil, fmt.Errorf("[finance History] %w: end date before start date", tverrors.ErrInvalidRequest)
		}
		q.Set("end_date", to.Format(dateLayout))
	}
	var candles []Candle
	if err := s.client.DoJSON(ctx, apiclient.Get("finance/ohlcv/history/", q), &candles); err != nil {
		return nil, fmt.Errorf("[finance History] %s: %w", symbol, err)
	}
	return candles, nil
}

func (s *Service) Forecast(ctx context.Context, symbol string) (*Forecast, error) {
	if symbol == "" {
		return nil, fmt.Errorf("[finance Forecast] %w: symbol is required", tverrors.ErrInvalidRequest)
	}
	var out Forecast
	if err := s.client.DoJSON(ctx, apiclient.Get("finance/forecast/", url.Values{"symbol": {symbol}}), &out); err != nil {
		return nil, fmt.Errorf("[finance Forecast] %s: %w", symbol, err)
	}
	return &out, nil
}
