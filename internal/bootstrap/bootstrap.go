// Package bootstrap 根据配置组装签名者、客户端和凭证库，供命令行和 signerd 共用。
package bootstrap

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/betbot/clobauth/clob/client"
	"github.com/betbot/clobauth/clob/credstore"
	"github.com/betbot/clobauth/clob/signing"
	"github.com/betbot/clobauth/internal/metrics"
	"github.com/betbot/clobauth/pkg/config"
)

// NewSigner 按 private_key / mnemonic / remote 的顺序选择签名者；都未配置时返回 nil
func NewSigner(ctx context.Context, w config.WalletConfig) (signing.Signer, error) {
	var (
		s   signing.Signer
		err error
	)
	switch {
	case w.PrivateKey != "":
		s, err = signing.NewPrivateKeySigner(w.PrivateKey)
	case w.Mnemonic != "":
		s, err = signing.NewSignerFromMnemonic(w.Mnemonic, w.DerivationPath)
	case w.Remote.URL != "":
		s, err = signing.NewRemoteSigner(ctx, w.Remote.URL, w.Remote.Token)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ClientOptions 配置转换为客户端选项（不含签名者）
func ClientOptions(cfg *config.Config) ([]client.Option, error) {
	sigType, err := cfg.SignatureType()
	if err != nil {
		return nil, err
	}
	opts := []client.Option{
		client.WithSignatureType(sigType),
		client.WithTimestampTolerance(cfg.Auth.TimestampTolerance),
		client.WithServerTime(cfg.Clob.UseServerTime),
	}
	if cfg.Wallet.FunderAddress != "" {
		if !common.IsHexAddress(cfg.Wallet.FunderAddress) {
			return nil, fmt.Errorf("wallet.funder_address 无效: %s", cfg.Wallet.FunderAddress)
		}
		opts = append(opts, client.WithFunder(common.HexToAddress(cfg.Wallet.FunderAddress)))
	}
	if c := cfg.Clob.Contracts; !c.Empty() {
		opts = append(opts, client.WithContracts(&client.ContractConfig{
			Exchange:          c.Exchange,
			NegRiskExchange:   c.NegRiskExchange,
			NegRiskAdapter:    c.NegRiskAdapter,
			Collateral:        c.Collateral,
			ConditionalTokens: c.ConditionalTokens,
		}))
	}
	if creds := cfg.Auth.Creds(); creds != nil {
		opts = append(opts, client.WithCreds(creds))
	}
	return opts, nil
}

// NewClient 按配置创建客户端；extra 中的选项最后应用
func NewClient(ctx context.Context, cfg *config.Config, m *metrics.Metrics, extra ...client.Option) (*client.Client, error) {
	opts, err := ClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	signer, err := NewSigner(ctx, cfg.Wallet)
	if err != nil {
		return nil, fmt.Errorf("初始化签名者失败: %w", err)
	}
	if signer != nil {
		opts = append(opts, client.WithSigner(signer))
	}
	if m != nil {
		opts = append(opts, client.WithMetrics(m))
	}
	opts = append(opts, extra...)
	return client.NewClient(cfg.Clob.Host, cfg.Chain(), opts...)
}

var _ client.CredStore = (*credstore.Store)(nil)

// OpenCredStore 未配置路径时返回 nil
func OpenCredStore(cfg *config.Config) (*credstore.Store, error) {
	if cfg.Auth.CredStore.Path == "" {
		return nil, nil
	}
	return credstore.Open(cfg.Auth.CredStore.Path, cfg.Auth.CredStore.MasterKey)
}
