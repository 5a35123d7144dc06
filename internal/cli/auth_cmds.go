package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/betbot/clobauth/clob/types"
	"github.com/betbot/clobauth/internal/bootstrap"
	"github.com/betbot/clobauth/pkg/logger"
)

func newAddressCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "显示钱包地址和 maker 地址",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			addr, err := c.Address()
			if err != nil {
				return err
			}
			out := map[string]string{"address": addr.Hex(), "mode": c.Mode().String()}
			if a.cfg.Wallet.FunderAddress != "" {
				out["funder"] = a.cfg.Wallet.FunderAddress
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

type credsOutput struct {
	Address    string `json:"address"`
	APIKey     string `json:"api_key"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
	Stored     bool   `json:"stored"`
}

func newDeriveCmd(a *app) *cobra.Command {
	var (
		nonce      int64
		showSecret bool
	)
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "创建或推导 L2 API 凭证；配置了凭证库时优先读取并写回",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, err := a.client(ctx)
			if err != nil {
				return err
			}
			addr, err := c.Address()
			if err != nil {
				return err
			}
			store, err := bootstrap.OpenCredStore(a.cfg)
			if err != nil {
				return err
			}
			var creds *types.ApiKeyCreds
			if store != nil {
				defer store.Close()
				creds, err = c.EnsureCreds(ctx, store, &nonce)
			} else {
				creds, err = c.CreateOrDeriveAPIKey(ctx, &nonce)
			}
			if err != nil {
				return err
			}

			out := credsOutput{
				Address:    addr.Hex(),
				APIKey:     creds.Key,
				Secret:     logger.MaskSecret(creds.Secret),
				Passphrase: logger.MaskSecret(creds.Passphrase),
				Stored:     store != nil,
			}
			if showSecret {
				out.Secret, out.Passphrase = creds.Secret, creds.Passphrase
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().Int64Var(&nonce, "nonce", 0, "ClobAuth nonce")
	cmd.Flags().BoolVar(&showSecret, "show-secret", false, "输出完整的 secret 和 passphrase")
	return cmd
}

func newHeadersCmd(a *app) *cobra.Command {
	var (
		level     int
		nonce     int64
		method    string
		path      string
		body      string
		timestamp int64
	)
	cmd := &cobra.Command{
		Use:   "headers",
		Short: "生成 L1 或 L2 认证头",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, err := a.client(ctx)
			if err != nil {
				return err
			}
			switch level {
			case 1:
				h, _, err := c.L1Headers(ctx, nonce)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), h.Map())
			case 2:
				if path == "" {
					return fmt.Errorf("--path 必须指定")
				}
				args := &types.L2HeaderArgs{
					Method:      strings.ToUpper(method),
					RequestPath: path,
					Body:        body,
				}
				var h *types.L2PolyHeader
				if timestamp > 0 {
					h, err = c.L2HeadersAt(args, timestamp)
				} else {
					h, _, err = c.L2Headers(ctx, args)
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), h.Map())
			}
			return fmt.Errorf("--level 只能为 1 或 2")
		},
	}
	cmd.Flags().IntVar(&level, "level", 2, "认证层级 (1 或 2)")
	cmd.Flags().Int64Var(&nonce, "nonce", 0, "L1 nonce")
	cmd.Flags().StringVar(&method, "method", "GET", "L2 请求方法")
	cmd.Flags().StringVar(&path, "path", "", "L2 请求路径，例如 /orders")
	cmd.Flags().StringVar(&body, "body", "", "L2 请求体（与实际发送的字节一致）")
	cmd.Flags().Int64Var(&timestamp, "timestamp", 0, "L2 时间戳（Unix 秒），超出容差时拒绝；默认当前时间")
	return cmd
}

func newRevokeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke",
		Short: "删除当前 API 密钥，并清除凭证库中的副本",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, err := a.l2Client(ctx)
			if err != nil {
				return err
			}
			creds := c.Creds()
			store, err := bootstrap.OpenCredStore(a.cfg)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
				err = c.RevokeAPIKey(ctx, store)
			} else {
				err = c.DeleteAPIKey(ctx)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{"revoked": logger.MaskSecret(creds.Key)})
		},
	}
}
