package channels

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Notification is a server push on the per-user channel, e.g. assistant run progress
type Notification struct {
	Message string `json:"message"`
}

// Tick is a real-time ticker update relayed from the exchange
type Tick struct {
	Symbol            string  `json:"symbol"`
	TradePrice        float64 `json:"trade_price"`
	Timestamp         string  `json:"timestamp"`
	SignedChangePrice float64 `json:"signed_change_price"`
	SignedChangeRate  float64 `json:"signed_change_rate"`
	TradeVolume       float64 `json:"trade_volume"`
}

// Notifications subscribes to the user's notification channel
func (d *Dialer) Notifications(ctx context.Context, userID int64, fn func(Notification)) (*Channel, error) {
	return subscribeJSON(ctx, d, "notify_"+strconv.FormatInt(userID, 10)+"/", fn)
}

// MarketTicks subscribes to a market symbol, e.g. KRW-BTC
func (d *Dialer) MarketTicks(ctx context.Context, symbol string, fn func(Tick)) (*Channel, error) {
	return subscribeJSON(ctx, d, "upbit/"+strings.ToUpper(symbol)+"/", fn)
}

// subscribeJSON decodes every frame into T; frames that do not decode are logged and skipped
func subscribeJSON[T any](ctx context.Context, d *Dialer, path string, fn func(T)) (*Channel, error) {
	logger := d.logger
	return d.Subscribe(ctx, path, func(raw []byte) {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			warnUndecodable(logger, path, err)
			return
		}
		fn(v)
	})
}

func warnUndecodable(logger zerolog.Logger, path string, err error) {
	logger.Warn().Err(err).Str("channel", path).Msg("Dropping undecodable frame")
}
