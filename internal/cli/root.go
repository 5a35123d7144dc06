// Package cli clobauth 命令行：派生 API 凭证、生成认证头、签名并提交订单。
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/betbot/clobauth/clob/client"
	"github.com/betbot/clobauth/clob/types"
	"github.com/betbot/clobauth/internal/bootstrap"
	"github.com/betbot/clobauth/internal/metrics"
	"github.com/betbot/clobauth/pkg/config"
	"github.com/betbot/clobauth/pkg/logger"
)

// BuildInfo 构建时通过 ldflags 注入
type BuildInfo struct {
	Version string
	Commit  string
}

// GlobalFlags 所有子命令共享的参数
type GlobalFlags struct {
	ConfigPath string
	LogLevel   string
}

// app 子命令运行时的共享状态，在 PersistentPreRunE 中填充
type app struct {
	flags   *GlobalFlags
	cfg     *config.Config
	metrics *metrics.Metrics
}

func (a *app) client(ctx context.Context) (*client.Client, error) {
	return bootstrap.NewClient(ctx, a.cfg, a.metrics)
}

// l2Client 未配置凭证时从凭证库读取或推导
func (a *app) l2Client(ctx context.Context) (*client.Client, error) {
	c, err := a.client(ctx)
	if err != nil {
		return nil, err
	}
	if c.Mode() >= types.AuthL2 {
		return c, nil
	}
	store, err := bootstrap.OpenCredStore(a.cfg)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("未配置 API 凭证：设置 auth.api_key 等字段，或配置 auth.credstore 后先运行 derive")
	}
	defer store.Close()
	if _, err := c.EnsureCreds(ctx, store, nil); err != nil {
		return nil, err
	}
	return c, nil
}

func newRootCmd(flags *GlobalFlags, info BuildInfo) (*cobra.Command, *app) {
	a := &app{flags: flags}
	cmd := &cobra.Command{
		Use:          "clobauth",
		Short:        "CLOB 认证与订单签名工具",
		Version:      formatVersion(info),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.ConfigPath)
			if err != nil {
				return err
			}
			if flags.LogLevel != "" {
				cfg.Log.Level = flags.LogLevel
			}
			if err := logger.Init(cfg.Log); err != nil {
				return fmt.Errorf("初始化日志失败: %w", err)
			}
			a.cfg = cfg
			a.metrics = metrics.New(false)
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logger.Close()
		},
	}
	cmd.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", "", "配置文件路径 (.yaml/.yml/.json)")
	cmd.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "", "日志级别，覆盖配置文件")

	cmd.AddCommand(
		newAddressCmd(a),
		newDeriveCmd(a),
		newHeadersCmd(a),
		newSignOrderCmd(a),
		newPostOrderCmd(a),
	)
	return cmd, a
}

func formatVersion(info BuildInfo) string {
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "none"
	}
	return fmt.Sprintf("%s (commit: %s)", info.Version, info.Commit)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Execute 运行命令行
func Execute(ctx context.Context, info BuildInfo) error {
	cmd, _ := newRootCmd(&GlobalFlags{}, info)
	return cmd.ExecuteContext(ctx)
}
