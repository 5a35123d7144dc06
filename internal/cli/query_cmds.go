package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/betbot/clobauth/clob/types"
)

func newMarketCmd(a *app) *cobra.Command {
	var tokenID string
	cmd := &cobra.Command{
		Use:   "market",
		Short: "显示 token 的 tick size、neg risk 和手续费率",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			meta, err := c.MarketMeta(cmd.Context(), tokenID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), meta)
		},
	}
	cmd.Flags().StringVar(&tokenID, "token", "", "token ID")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func newGetOrderCmd(a *app) *cobra.Command {
	var orderID string
	cmd := &cobra.Command{
		Use:   "order",
		Short: "查询单个订单（需要 L2 凭证）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.l2Client(cmd.Context())
			if err != nil {
				return err
			}
			order, err := c.GetOrder(cmd.Context(), orderID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), order)
		},
	}
	cmd.Flags().StringVar(&orderID, "id", "", "订单 ID")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newBalanceCmd(a *app) *cobra.Command {
	var (
		asset   string
		tokenID string
		update  bool
	)
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "查询余额和授权额度（需要 L2 凭证）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			params := &types.BalanceAllowanceParams{
				AssetType: types.AssetType(strings.ToUpper(asset)),
				TokenID:   tokenID,
			}
			if _, err := params.Query(); err != nil {
				return err
			}
			c, err := a.l2Client(ctx)
			if err != nil {
				return err
			}
			if update {
				if _, err := c.UpdateBalanceAllowance(ctx, params); err != nil {
					return fmt.Errorf("刷新余额失败: %w", err)
				}
			}
			resp, err := c.GetBalanceAllowance(ctx, params)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVar(&asset, "asset", string(types.AssetCollateral), "COLLATERAL 或 CONDITIONAL")
	cmd.Flags().StringVar(&tokenID, "token", "", "CONDITIONAL 资产的 token ID")
	cmd.Flags().BoolVar(&update, "update", false, "查询前让交易所刷新链上余额")
	return cmd
}
