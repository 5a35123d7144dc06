package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/betbot/clobauth/clob/client"
	"github.com/betbot/clobauth/clob/signing"
	"github.com/betbot/clobauth/clob/types"
)

// orderFlags sign-order 与 post-order 共用
type orderFlags struct {
	tokenID    string
	side       string
	price      string
	size       string
	amount     string
	tickSize   string
	negRisk    string
	feeRateBps int
	expiration int64
	orderType  string
}

func (f *orderFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.tokenID, "token", "", "token ID")
	cmd.Flags().StringVar(&f.side, "side", "BUY", "BUY 或 SELL")
	cmd.Flags().StringVar(&f.price, "price", "", "价格；市价单为最差可接受价格")
	cmd.Flags().StringVar(&f.size, "size", "", "限价单份额")
	cmd.Flags().StringVar(&f.amount, "amount", "", "市价单数量：BUY 为抵押品金额，SELL 为份额")
	cmd.Flags().StringVar(&f.tickSize, "tick-size", "", "tick size，为空时从市场获取")
	cmd.Flags().StringVar(&f.negRisk, "neg-risk", "", "true/false，为空时从市场获取")
	cmd.Flags().IntVar(&f.feeRateBps, "fee-rate-bps", -1, "手续费率（基点），-1 表示使用市场费率")
	cmd.Flags().Int64Var(&f.expiration, "expiration", 0, "过期时间戳（秒），仅 GTD")
	cmd.Flags().StringVar(&f.orderType, "order-type", "", "GTC/GTD/FOK/FAK；市价单默认 FOK")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("price")
}

func (f *orderFlags) market() bool {
	return f.amount != ""
}

func (f *orderFlags) options() (*types.PartialCreateOrderOptions, error) {
	opts := &types.PartialCreateOrderOptions{TickSize: types.TickSize(f.tickSize)}
	if opts.TickSize != "" {
		if _, err := signing.RoundConfigFor(opts.TickSize); err != nil {
			return nil, err
		}
	}
	switch strings.ToLower(f.negRisk) {
	case "":
	case "true":
		v := true
		opts.NegRisk = &v
	case "false":
		v := false
		opts.NegRisk = &v
	default:
		return nil, fmt.Errorf("--neg-risk 只能为 true 或 false")
	}
	return opts, nil
}

func (f *orderFlags) orderTypeOrDefault() types.OrderType {
	if f.orderType != "" {
		return types.OrderType(strings.ToUpper(f.orderType))
	}
	if f.market() {
		return types.OrderTypeFOK
	}
	return types.OrderTypeGTC
}

func parseDecimal(name, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("--%s 无效: %w", name, err)
	}
	return d, nil
}

// build 创建并签名订单
func (f *orderFlags) build(ctx context.Context, c *client.Client) (*types.SignedOrder, error) {
	opts, err := f.options()
	if err != nil {
		return nil, err
	}
	side := types.Side(strings.ToUpper(f.side))
	price, err := parseDecimal("price", f.price)
	if err != nil {
		return nil, err
	}
	var fee *int
	if f.feeRateBps >= 0 {
		fee = &f.feeRateBps
	}

	if f.market() {
		amount, err := parseDecimal("amount", f.amount)
		if err != nil {
			return nil, err
		}
		return c.CreateMarketOrder(ctx, &types.MarketOrderArgs{
			TokenID:    f.tokenID,
			Amount:     amount,
			Price:      price,
			Side:       side,
			FeeRateBps: fee,
			OrderType:  f.orderTypeOrDefault(),
		}, opts)
	}

	if f.size == "" {
		return nil, fmt.Errorf("限价单需要 --size，市价单需要 --amount")
	}
	size, err := parseDecimal("size", f.size)
	if err != nil {
		return nil, err
	}
	args := &types.OrderArgs{
		TokenID:    f.tokenID,
		Price:      price,
		Size:       size,
		Side:       side,
		FeeRateBps: fee,
	}
	if f.expiration > 0 {
		args.Expiration = &f.expiration
	}
	return c.CreateOrder(ctx, args, opts)
}

func newSignOrderCmd(a *app) *cobra.Command {
	f := &orderFlags{}
	cmd := &cobra.Command{
		Use:   "sign-order",
		Short: "签名限价单或市价单并输出 JSON（不提交）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			order, err := f.build(cmd.Context(), c)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), order)
		},
	}
	f.register(cmd)
	return cmd
}

func newPostOrderCmd(a *app) *cobra.Command {
	f := &orderFlags{}
	cmd := &cobra.Command{
		Use:   "post-order",
		Short: "签名并提交订单（需要 L2 凭证）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, err := a.l2Client(ctx)
			if err != nil {
				return err
			}
			order, err := f.build(ctx, c)
			if err != nil {
				return err
			}
			resp, err := c.PostOrder(ctx, order, f.orderTypeOrDefault())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	f.register(cmd)
	return cmd
}
