package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/betbot/clobauth/clob/types"
	"github.com/betbot/clobauth/pkg/ratelimit"
)

// GetTickSize 获取 token 的最小价格精度（按 token 缓存）
func (c *Client) GetTickSize(ctx context.Context, tokenID string) (types.TickSize, error) {
	return c.tickSizes.GetOrLoad(tokenID, func() (types.TickSize, error) {
		var resp types.TickSizeResponse
		req := request{method: http.MethodGet, path: EndpointTickSize, limitKey: ratelimit.KeyMetaGet, query: map[string]string{"token_id": tokenID}}
		if _, err := c.http.do(ctx, req, &resp); err != nil {
			return "", fmt.Errorf("获取 tick size 失败: %w", err)
		}
		tick, ok := types.TickSizeFromFloat(resp.MinimumTickSize)
		if !ok {
			return "", &types.ValidationError{Field: "tick_size", Reason: fmt.Sprintf("unsupported tick size %v for token %s", resp.MinimumTickSize, tokenID)}
		}
		return tick, nil
	})
}

// GetNegRisk 获取 token 是否属于 neg risk 市场（按 token 缓存）
func (c *Client) GetNegRisk(ctx context.Context, tokenID string) (bool, error) {
	return c.negRisk.GetOrLoad(tokenID, func() (bool, error) {
		var resp types.NegRiskResponse
		req := request{method: http.MethodGet, path: EndpointNegRisk, limitKey: ratelimit.KeyMetaGet, query: map[string]string{"token_id": tokenID}}
		if _, err := c.http.do(ctx, req, &resp); err != nil {
			return false, fmt.Errorf("获取 neg risk 失败: %w", err)
		}
		return resp.NegRisk, nil
	})
}

// GetFeeRateBps 获取 token 的基础手续费率（按 token 缓存）
func (c *Client) GetFeeRateBps(ctx context.Context, tokenID string) (int, error) {
	return c.feeRates.GetOrLoad(tokenID, func() (int, error) {
		var resp types.FeeRateResponse
		req := request{method: http.MethodGet, path: EndpointFeeRate, limitKey: ratelimit.KeyMetaGet, query: map[string]string{"token_id": tokenID}}
		if _, err := c.http.do(ctx, req, &resp); err != nil {
			return 0, fmt.Errorf("获取手续费率失败: %w", err)
		}
		return resp.BaseFee, nil
	})
}

// MarketMeta 一次性获取签名所需的元数据
func (c *Client) MarketMeta(ctx context.Context, tokenID string) (*types.MarketMeta, error) {
	tick, err := c.GetTickSize(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	negRisk, err := c.GetNegRisk(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	fee, err := c.GetFeeRateBps(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	return &types.MarketMeta{TickSize: tick, NegRisk: negRisk, FeeRateBps: fee}, nil
}

// resolveOptions 补全下单选项：未指定的 tick size 和 neg risk 从市场元数据获取
func (c *Client) resolveOptions(ctx context.Context, tokenID string, opts *types.PartialCreateOrderOptions) (types.CreateOrderOptions, error) {
	var out types.CreateOrderOptions
	if opts != nil && opts.TickSize != "" {
		out.TickSize = opts.TickSize
	} else {
		tick, err := c.GetTickSize(ctx, tokenID)
		if err != nil {
			return out, err
		}
		out.TickSize = tick
	}
	if opts != nil && opts.NegRisk != nil {
		out.NegRisk = *opts.NegRisk
	} else {
		negRisk, err := c.GetNegRisk(ctx, tokenID)
		if err != nil {
			return out, err
		}
		out.NegRisk = negRisk
	}
	return out, nil
}

// resolveFeeRate 市场手续费非 0 时调用方给出的不同费率视为错误；市场费率为 0 时沿用调用方的值
func (c *Client) resolveFeeRate(ctx context.Context, tokenID string, requested *int) (int, error) {
	market, err := c.GetFeeRateBps(ctx, tokenID)
	if err != nil {
		return 0, err
	}
	if market > 0 && requested != nil && *requested > 0 && *requested != market {
		return 0, &types.ValidationError{Field: "fee_rate_bps", Reason: fmt.Sprintf("%d does not match the market fee rate %d", *requested, market)}
	}
	if market == 0 && requested != nil {
		return *requested, nil
	}
	return market, nil
}
