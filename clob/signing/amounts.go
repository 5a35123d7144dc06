package signing

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/betbot/clobauth/clob/types"
)

var one = decimal.NewFromInt(1)

// RoundConfigFor 返回 tick size 对应的舍入配置
func RoundConfigFor(tick types.TickSize) (types.RoundConfig, error) {
	rc, ok := types.RoundingConfig[tick]
	if !ok {
		return types.RoundConfig{}, &types.ValidationError{Field: "tick_size", Reason: fmt.Sprintf("unsupported tick size %q", tick)}
	}
	return rc, nil
}

// ValidatePrice 价格必须在 (0, 1) 内；向零截断到 tick 精度后须落在 [tick, 1-tick]
func ValidatePrice(price decimal.Decimal, tick types.TickSize) (decimal.Decimal, error) {
	rc, err := RoundConfigFor(tick)
	if err != nil {
		return decimal.Zero, err
	}
	if !price.IsPositive() || price.GreaterThanOrEqual(one) {
		return decimal.Zero, &types.ValidationError{Field: "price", Reason: fmt.Sprintf("%s not in (0, 1)", price)}
	}
	t, err := tick.Decimal()
	if err != nil {
		return decimal.Zero, err
	}
	truncated := price.RoundDown(rc.Price)
	if truncated.LessThan(t) || truncated.GreaterThan(one.Sub(t)) {
		return decimal.Zero, &types.ValidationError{
			Field:  "price",
			Reason: fmt.Sprintf("%s outside [%s, %s] for tick size %s", price, t, one.Sub(t), tick),
		}
	}
	return truncated, nil
}

// fitAmount 截断到 places 位小数；先在 places+4 位向上取整以吸收除法尾数
func fitAmount(d decimal.Decimal, places int32) decimal.Decimal {
	return d.RoundUp(places + 4).RoundDown(places)
}

// ToBaseUnits 按抵押品精度转换为整数单位
func ToBaseUnits(d decimal.Decimal) *big.Int {
	return d.Shift(CollateralTokenDecimals).BigInt()
}

// OrderAmounts 计算限价单的 maker/taker 金额（整数单位）
//
// BUY: taker 为份额，maker 为份额 * 价格；SELL 反之。
func OrderAmounts(side types.Side, size, price decimal.Decimal, tick types.TickSize) (maker, taker *big.Int, err error) {
	if !side.Valid() {
		return nil, nil, &types.ValidationError{Field: "side", Reason: fmt.Sprintf("unknown side %q", side)}
	}
	rc, err := RoundConfigFor(tick)
	if err != nil {
		return nil, nil, err
	}
	if !size.IsPositive() {
		return nil, nil, &types.ValidationError{Field: "size", Reason: fmt.Sprintf("%s must be positive", size)}
	}
	rawPrice, err := ValidatePrice(price, tick)
	if err != nil {
		return nil, nil, err
	}

	shares := size.RoundDown(rc.Size)
	if !shares.IsPositive() {
		return nil, nil, &types.ValidationError{Field: "size", Reason: fmt.Sprintf("%s rounds to zero", size)}
	}
	notional := fitAmount(shares.Mul(rawPrice), rc.Amount)

	if side == types.SideBuy {
		maker, taker = ToBaseUnits(notional), ToBaseUnits(shares)
	} else {
		maker, taker = ToBaseUnits(shares), ToBaseUnits(notional)
	}
	if maker.Sign() <= 0 || taker.Sign() <= 0 {
		return nil, nil, &types.ValidationError{Field: "size", Reason: "order amounts round to zero"}
	}
	return maker, taker, nil
}

// MarketOrderAmounts 计算市价单的 maker/taker 金额（整数单位）
//
// BUY: amount 为抵押品金额，taker = amount / price；SELL: amount 为份额，taker = amount * price。
func MarketOrderAmounts(side types.Side, amount, price decimal.Decimal, tick types.TickSize) (maker, taker *big.Int, err error) {
	if !side.Valid() {
		return nil, nil, &types.ValidationError{Field: "side", Reason: fmt.Sprintf("unknown side %q", side)}
	}
	rc, err := RoundConfigFor(tick)
	if err != nil {
		return nil, nil, err
	}
	if !amount.IsPositive() {
		return nil, nil, &types.ValidationError{Field: "amount", Reason: fmt.Sprintf("%s must be positive", amount)}
	}
	rawPrice, err := ValidatePrice(price, tick)
	if err != nil {
		return nil, nil, err
	}

	rawMaker := amount.RoundDown(rc.Size)
	if !rawMaker.IsPositive() {
		return nil, nil, &types.ValidationError{Field: "amount", Reason: fmt.Sprintf("%s rounds to zero", amount)}
	}
	var rawTaker decimal.Decimal
	if side == types.SideBuy {
		rawTaker = fitAmount(rawMaker.Div(rawPrice), rc.Amount)
	} else {
		rawTaker = fitAmount(rawMaker.Mul(rawPrice), rc.Amount)
	}

	maker, taker = ToBaseUnits(rawMaker), ToBaseUnits(rawTaker)
	if taker.Sign() <= 0 {
		return nil, nil, &types.ValidationError{Field: "amount", Reason: "order amounts round to zero"}
	}
	return maker, taker, nil
}
