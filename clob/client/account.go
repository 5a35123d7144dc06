package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/betbot/clobauth/clob/types"
	"github.com/betbot/clobauth/pkg/ratelimit"
)

// GetOrder 查询单个订单（L2）；订单 ID 是签名路径的一部分
func (c *Client) GetOrder(ctx context.Context, orderID string) (*types.OpenOrder, error) {
	if orderID == "" || strings.ContainsAny(orderID, "/?#% ") {
		return nil, &types.ValidationError{Field: "order_id", Reason: fmt.Sprintf("invalid order id %q", orderID)}
	}
	var out types.OpenOrder
	req := request{
		method:   http.MethodGet,
		path:     EndpointGetOrder + orderID,
		route:    EndpointGetOrder,
		limitKey: ratelimit.KeyDataGet,
	}
	if err := c.l2Do(ctx, "get_order", req, nil, &out); err != nil {
		return nil, fmt.Errorf("查询订单失败: %w (orderID=%s)", err, orderID)
	}
	return &out, nil
}

// GetBalanceAllowance 查询余额和授权额度（L2）
func (c *Client) GetBalanceAllowance(ctx context.Context, params *types.BalanceAllowanceParams) (*types.BalanceAllowanceResponse, error) {
	return c.balanceAllowance(ctx, "get_balance_allowance", EndpointGetBalanceAllowance, params)
}

// UpdateBalanceAllowance 让交易所重新读取链上余额和授权（L2）
func (c *Client) UpdateBalanceAllowance(ctx context.Context, params *types.BalanceAllowanceParams) (*types.BalanceAllowanceResponse, error) {
	return c.balanceAllowance(ctx, "update_balance_allowance", EndpointUpdateBalanceAllowance, params)
}

func (c *Client) balanceAllowance(ctx context.Context, op, path string, params *types.BalanceAllowanceParams) (*types.BalanceAllowanceResponse, error) {
	query, err := params.Query()
	if err != nil {
		return nil, err
	}
	// 代理钱包的余额按 funder 计算，交易所需要知道签名类型
	if _, ok := query["signature_type"]; !ok && c.orderSigner != nil {
		query["signature_type"] = strconv.Itoa(int(c.orderSigner.SignatureType()))
	}
	var out types.BalanceAllowanceResponse
	req := request{method: http.MethodGet, path: path, query: query, limitKey: ratelimit.KeyBalance}
	if err := c.l2Do(ctx, op, req, nil, &out); err != nil {
		return nil, fmt.Errorf("%s 失败: %w", op, err)
	}
	return &out, nil
}
