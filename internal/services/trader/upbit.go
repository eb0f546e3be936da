// Package trader turns decisions into market orders within the exchange's
// minimum order constraints.
package trader

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jeongwoo-hong/jwcoin/internal/domain"
)

// minOrderNotional is the smallest order the exchange accepts, in quote
// currency (5,000 KRW on Upbit).
var minOrderNotional = decimal.NewFromInt(5000)

// buyCashRatio leaves headroom for the taker fee when spending the cash
// balance on a market buy.
var buyCashRatio = decimal.NewFromFloat(0.9995)

// Exchange is the order-execution surface the trader needs.
type Exchange interface {
	AccountStatus(ctx context.Context, pair domain.Pair) (domain.AccountStatus, error)
	BuyMarket(ctx context.Context, pair domain.Pair, cost decimal.Decimal) (string, error)
	SellMarket(ctx context.Context, pair domain.Pair, volume decimal.Decimal) (string, error)
}

// UpbitTrader executes buy and sell decisions as market orders.
type UpbitTrader struct {
	exchange Exchange
	pair     domain.Pair
	logger   *zap.Logger
}

func NewUpbitTrader(exchange Exchange, pair domain.Pair, logger *zap.Logger) *UpbitTrader {
	return &UpbitTrader{
		exchange: exchange,
		pair:     pair,
		logger:   logger,
	}
}

// Execute places the market order for the given action. It returns true when
// an order was actually sent; a buy or sell below the exchange minimum is
// skipped and reported as not executed.
func (t *UpbitTrader) Execute(ctx context.Context, action string) (bool, error) {
	switch action {
	case domain.ActionBuy:
		return t.buy(ctx)
	case domain.ActionSell:
		return t.sell(ctx)
	case domain.ActionHold:
		return false, nil
	default:
		return false, errors.Errorf("unknown action %q", action)
	}
}

func (t *UpbitTrader) buy(ctx context.Context) (bool, error) {
	status, err := t.exchange.AccountStatus(ctx, t.pair)
	if err != nil {
		return false, errors.Wrap(err, "fetch account status")
	}

	cost := status.CashBalance.Mul(buyCashRatio).RoundDown(0)
	if cost.LessThan(minOrderNotional) {
		t.logger.Info("buy skipped, cash below exchange minimum",
			zap.String("cash", status.CashBalance.String()),
			zap.String("minimum", minOrderNotional.String()))
		return false, nil
	}

	orderID, err := t.exchange.BuyMarket(ctx, t.pair, cost)
	if err != nil {
		return false, errors.Wrap(err, "market buy")
	}

	t.logger.Info("market buy placed",
		zap.String("order_id", orderID),
		zap.String("cost", cost.String()))
	return true, nil
}

func (t *UpbitTrader) sell(ctx context.Context) (bool, error) {
	status, err := t.exchange.AccountStatus(ctx, t.pair)
	if err != nil {
		return false, errors.Wrap(err, "fetch account status")
	}

	notional := status.BaseBalance.Mul(status.LastPrice)
	if notional.LessThan(minOrderNotional) {
		t.logger.Info("sell skipped, position below exchange minimum",
			zap.String("volume", status.BaseBalance.String()),
			zap.String("notional", notional.String()))
		return false, nil
	}

	orderID, err := t.exchange.SellMarket(ctx, t.pair, status.BaseBalance)
	if err != nil {
		return false, errors.Wrap(err, "market sell")
	}

	t.logger.Info("market sell placed",
		zap.String("order_id", orderID),
		zap.String("volume", status.BaseBalance.String()))
	return true, nil
}
