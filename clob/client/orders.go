package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/betbot/clobauth/clob/types"
	"github.com/betbot/clobauth/pkg/ratelimit"
)

// CreateOrder 构建并签名限价单（L1）
//
// 未指定的 tick size / neg risk 从市场元数据获取，手续费率按市场费率确定。
func (c *Client) CreateOrder(ctx context.Context, args *types.OrderArgs, opts *types.PartialCreateOrderOptions) (*types.SignedOrder, error) {
	if err := c.assertL1(); err != nil {
		return nil, err
	}
	if args == nil {
		return nil, &types.ValidationError{Field: "order", Reason: "nil"}
	}
	resolved, err := c.resolveOptions(ctx, args.TokenID, opts)
	if err != nil {
		return nil, err
	}
	fee, err := c.resolveFeeRate(ctx, args.TokenID, args.FeeRateBps)
	if err != nil {
		return nil, err
	}
	a := *args
	a.FeeRateBps = &fee

	order, err := c.orderSigner.SignOrder(ctx, &a, resolved)
	c.metrics.RecordSignature("order", err)
	if err != nil {
		return nil, err
	}
	c.recordOrder(order, resolved)
	return order, nil
}

// CreateMarketOrder 构建并签名市价单（L1）；BUY 的 Amount 为抵押品金额，SELL 为份额
func (c *Client) CreateMarketOrder(ctx context.Context, args *types.MarketOrderArgs, opts *types.PartialCreateOrderOptions) (*types.SignedOrder, error) {
	if err := c.assertL1(); err != nil {
		return nil, err
	}
	if args == nil {
		return nil, &types.ValidationError{Field: "order", Reason: "nil"}
	}
	resolved, err := c.resolveOptions(ctx, args.TokenID, opts)
	if err != nil {
		return nil, err
	}
	fee, err := c.resolveFeeRate(ctx, args.TokenID, args.FeeRateBps)
	if err != nil {
		return nil, err
	}
	a := *args
	a.FeeRateBps = &fee

	order, err := c.orderSigner.SignMarketOrder(ctx, &a, resolved)
	c.metrics.RecordSignature("order", err)
	if err != nil {
		return nil, err
	}
	c.recordOrder(order, resolved)
	return order, nil
}

func (c *Client) recordOrder(order *types.SignedOrder, opts types.CreateOrderOptions) {
	st := types.SignatureType(order.SignatureType)
	c.metrics.RecordOrderSigned(string(order.Side), st.String())
	c.log.WithFields(logrus.Fields{
		"token":        order.TokenID,
		"side":         order.Side,
		"maker_amount": order.MakerAmount,
		"taker_amount": order.TakerAmount,
		"tick_size":    opts.TickSize,
		"neg_risk":     opts.NegRisk,
	}).Debug("order signed")
}

func (c *Client) newOrderPayload(order *types.SignedOrder, orderType types.OrderType, owner string) (types.NewOrder, error) {
	if order == nil {
		return types.NewOrder{}, &types.ValidationError{Field: "order", Reason: "nil"}
	}
	if orderType == "" {
		orderType = types.OrderTypeGTC
	}
	return types.NewOrder{Order: *order, Owner: owner, OrderType: orderType}, nil
}

// PostOrder 提交已签名订单（L2）；orderType 为空时按 GTC
//
// owner 与认证头使用同一份凭证快照。
func (c *Client) PostOrder(ctx context.Context, order *types.SignedOrder, orderType types.OrderType) (*types.OrderResponse, error) {
	auth, err := c.l2Snapshot()
	if err != nil {
		return nil, err
	}
	payload, err := c.newOrderPayload(order, orderType, auth.creds.Key)
	if err != nil {
		return nil, err
	}
	var resp types.OrderResponse
	req := request{method: http.MethodPost, path: EndpointPostOrder, limitKey: ratelimit.KeyOrderPost}
	if err := c.l2DoAs(ctx, "post_order", auth, req, payload, &resp); err != nil {
		return nil, fmt.Errorf("提交订单失败: %w", err)
	}
	return &resp, nil
}

// PostOrders 批量提交已签名订单（L2）
func (c *Client) PostOrders(ctx context.Context, args []types.PostOrdersArgs) ([]types.OrderResponse, error) {
	auth, err := c.l2Snapshot()
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, &types.ValidationError{Field: "orders", Reason: "empty"}
	}
	payload := make([]types.NewOrder, 0, len(args))
	for _, a := range args {
		p, err := c.newOrderPayload(a.Order, a.OrderType, auth.creds.Key)
		if err != nil {
			return nil, err
		}
		payload = append(payload, p)
	}
	var resp []types.OrderResponse
	req := request{method: http.MethodPost, path: EndpointPostOrders, limitKey: ratelimit.KeyOrdersPost}
	if err := c.l2DoAs(ctx, "post_orders", auth, req, payload, &resp); err != nil {
		return nil, fmt.Errorf("批量提交订单失败: %w", err)
	}
	return resp, nil
}

// Cancel 取消单个订单（L2）
func (c *Client) Cancel(ctx context.Context, orderID string) (*types.CancelResponse, error) {
	if orderID == "" {
		return nil, &types.ValidationError{Field: "order_id", Reason: "required"}
	}
	var resp types.CancelResponse
	req := request{method: http.MethodDelete, path: EndpointCancelOrder, limitKey: ratelimit.KeyOrderDelete}
	body := map[string]string{"orderID": orderID}
	if err := c.l2Do(ctx, "cancel", req, body, &resp); err != nil {
		return nil, fmt.Errorf("取消订单失败: %w (orderID=%s)", err, orderID)
	}
	return &resp, nil
}

// CancelOrders 批量取消订单（L2）
func (c *Client) CancelOrders(ctx context.Context, orderIDs []string) (*types.CancelResponse, error) {
	if len(orderIDs) == 0 {
		return nil, &types.ValidationError{Field: "order_ids", Reason: "empty"}
	}
	var resp types.CancelResponse
	req := request{method: http.MethodDelete, path: EndpointCancelOrders, limitKey: ratelimit.KeyOrdersDelete}
	if err := c.l2Do(ctx, "cancel_orders", req, orderIDs, &resp); err != nil {
		return nil, fmt.Errorf("批量取消订单失败: %w", err)
	}
	return &resp, nil
}

// CancelAll 取消所有挂单（L2）
func (c *Client) CancelAll(ctx context.Context) (*types.CancelResponse, error) {
	var resp types.CancelResponse
	req := request{method: http.MethodDelete, path: EndpointCancelAll, limitKey: ratelimit.KeyOrdersDelete}
	if err := c.l2Do(ctx, "cancel_all", req, nil, &resp); err != nil {
		return nil, fmt.Errorf("取消全部订单失败: %w", err)
	}
	return &resp, nil
}
