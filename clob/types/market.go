package types

// 市场元数据，仅包含签名所需的最小集合（tick size、neg risk、手续费率）

// TickSizeResponse GET /tick-size 响应
type TickSizeResponse struct {
	MinimumTickSize float64 `json:"minimum_tick_size"`
}

// NegRiskResponse GET /neg-risk 响应
type NegRiskResponse struct {
	NegRisk bool `json:"neg_risk"`
}

// FeeRateResponse GET /fee-rate 响应
type FeeRateResponse struct {
	BaseFee int `json:"base_fee"`
}

// MarketMeta 单个 token 的签名参数
type MarketMeta struct {
	TickSize   TickSize `json:"tick_size"`
	NegRisk    bool     `json:"neg_risk"`
	FeeRateBps int      `json:"fee_rate_bps"`
}

// RoundConfig 舍入配置（小数位数）
type RoundConfig struct {
	Price  int32 // 价格小数位数
	Size   int32 // 数量小数位数
	Amount int32 // 金额小数位数
}

// RoundingConfig 根据 tick size 返回舍入配置
var RoundingConfig = map[TickSize]RoundConfig{
	TickSize01:    {Price: 1, Size: 2, Amount: 3},
	TickSize001:   {Price: 2, Size: 2, Amount: 4},
	TickSize0001:  {Price: 3, Size: 2, Amount: 5},
	TickSize00001: {Price: 4, Size: 2, Amount: 6},
}

// TickSizeFromFloat 将服务端返回的浮点 tick size 映射为枚举
func TickSizeFromFloat(v float64) (TickSize, bool) {
	switch {
	case v == 0.1:
		return TickSize01, true
	case v == 0.01:
		return TickSize001, true
	case v == 0.001:
		return TickSize0001, true
	case v == 0.0001:
		return TickSize00001, true
	}
	return "", false
}
