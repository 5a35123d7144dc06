package client

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/betbot/clobauth/clob/signing"
	"github.com/betbot/clobauth/clob/types"
	"github.com/betbot/clobauth/internal/metrics"
	"github.com/betbot/clobauth/pkg/cache"
	"github.com/betbot/clobauth/pkg/logger"
	"github.com/betbot/clobauth/pkg/ratelimit"
)

const (
	defaultTimeout = 30 * time.Second
	defaultRetries = 2
	defaultMetaTTL = 5 * time.Minute
)

// Client CLOB 客户端
//
// 认证层级由持有的能力决定：无签名者为 L0，有签名者为 L1，再安装 API 凭证为 L2。
// 凭证通过原子指针整体替换，并发读取总能看到完整的三元组或 nil。
type Client struct {
	host          string
	chainID       types.Chain
	contracts     *ContractConfig
	signer        signing.Signer
	orderSigner   *signing.OrderSigner
	auth          *signing.Authenticator
	creds         atomic.Pointer[types.ApiKeyCreds]
	useServerTime atomic.Bool
	http          *httpClient
	metrics       *metrics.Metrics
	sessionID     string
	log           *logrus.Entry

	tickSizes *cache.InMemoryCache[string, types.TickSize]
	negRisk   *cache.InMemoryCache[string, bool]
	feeRates  *cache.InMemoryCache[string, int]
}

type clientOptions struct {
	signer        signing.Signer
	creds         *types.ApiKeyCreds
	signatureType types.SignatureType
	funder        common.Address
	contracts     *ContractConfig
	clock         signing.Clock
	tolerance     time.Duration
	salt          signing.SaltFunc
	limiter       *ratelimit.RateLimitManager
	metrics       *metrics.Metrics
	metaTTL       time.Duration
	timeout       time.Duration
	retries       int
	useServerTime bool
}

// Option 客户端构造选项
type Option func(*clientOptions)

// WithSigner 设置签名者（启用 L1）
func WithSigner(s signing.Signer) Option {
	return func(o *clientOptions) { o.signer = s }
}

// WithCreds 构造时安装 API 凭证（启用 L2）
func WithCreds(c *types.ApiKeyCreds) Option {
	return func(o *clientOptions) { o.creds = c }
}

// WithSignatureType 设置订单签名类型
func WithSignatureType(t types.SignatureType) Option {
	return func(o *clientOptions) { o.signatureType = t }
}

// WithFunder 设置资金方地址（代理钱包）
func WithFunder(funder common.Address) Option {
	return func(o *clientOptions) { o.funder = funder }
}

// WithContracts 覆盖合约地址；非 Polygon/Amoy 链必须设置
func WithContracts(c *ContractConfig) Option {
	return func(o *clientOptions) { o.contracts = c }
}

// WithClock 替换时钟
func WithClock(c signing.Clock) Option {
	return func(o *clientOptions) { o.clock = c }
}

// WithTimestampTolerance 设置时间戳容差，0 表示不检查
func WithTimestampTolerance(d time.Duration) Option {
	return func(o *clientOptions) { o.tolerance = d }
}

// WithSaltFunc 替换订单 salt 来源
func WithSaltFunc(f signing.SaltFunc) Option {
	return func(o *clientOptions) { o.salt = f }
}

// WithRateLimiter 替换限流器
func WithRateLimiter(l *ratelimit.RateLimitManager) Option {
	return func(o *clientOptions) { o.limiter = l }
}

// WithMetrics 指定指标集合
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *clientOptions) { o.metrics = m }
}

// WithMetaTTL 市场元数据缓存时长
func WithMetaTTL(d time.Duration) Option {
	return func(o *clientOptions) { o.metaTTL = d }
}

// WithHTTPTimeout 单次请求超时
func WithHTTPTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithRetryCount 只读请求的重试次数
func WithRetryCount(n int) Option {
	return func(o *clientOptions) { o.retries = n }
}

// WithServerTime 使用交易所 /time 作为认证时间戳来源
func WithServerTime(on bool) Option {
	return func(o *clientOptions) { o.useServerTime = on }
}

// NewClient 创建新的 CLOB 客户端
func NewClient(host string, chainID types.Chain, opts ...Option) (*Client, error) {
	if strings.TrimSpace(host) == "" {
		return nil, &types.ValidationError{Field: "host", Reason: "required"}
	}
	o := &clientOptions{
		signatureType: types.SignatureTypeEOA,
		tolerance:     signing.DefaultTimestampTolerance,
		metaTTL:       defaultMetaTTL,
		timeout:       defaultTimeout,
		retries:       defaultRetries,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.limiter == nil {
		o.limiter = ratelimit.NewRateLimitManager()
	}
	if o.metrics == nil {
		o.metrics = metrics.Default()
	}

	contracts := o.contracts
	if contracts == nil {
		var err error
		if contracts, err = GetContractConfig(chainID); err != nil {
			return nil, err
		}
	}

	sessionID := uuid.NewString()
	log := logger.WithComponent("clob").WithFields(logrus.Fields{
		"session": sessionID,
		"chain":   int64(chainID),
	})

	c := &Client{
		host:      strings.TrimSuffix(host, "/"),
		chainID:   chainID,
		contracts: contracts,
		signer:    o.signer,
		auth:      signing.NewAuthenticator(o.clock, o.tolerance),
		metrics:   o.metrics,
		sessionID: sessionID,
		log:       log,
		http:      newHTTPClient(host, o.timeout, o.retries, o.limiter, o.metrics, log),
		tickSizes: cache.NewInMemoryCache[string, types.TickSize](o.metaTTL),
		negRisk:   cache.NewInMemoryCache[string, bool](o.metaTTL),
		feeRates:  cache.NewInMemoryCache[string, int](o.metaTTL),
	}
	c.useServerTime.Store(o.useServerTime)

	if o.signer != nil {
		exchanges, err := contracts.ExchangeAddresses()
		if err != nil {
			return nil, err
		}
		signerOpts := []signing.OrderSignerOption{
			signing.WithSignatureType(o.signatureType),
			signing.WithFunder(o.funder),
		}
		if o.salt != nil {
			signerOpts = append(signerOpts, signing.WithSaltFunc(o.salt))
		}
		if c.orderSigner, err = signing.NewOrderSigner(o.signer, chainID, exchanges, signerOpts...); err != nil {
			return nil, err
		}
	}
	if o.creds != nil {
		if err := c.SetCreds(o.creds); err != nil {
			return nil, err
		}
	}

	c.log.WithField("mode", c.Mode().String()).Debug("clob client ready")
	return c, nil
}

// GetHost 获取主机地址
func (c *Client) GetHost() string {
	return c.host
}

// GetChainID 获取链 ID
func (c *Client) GetChainID() types.Chain {
	return c.chainID
}

// Contracts 当前使用的合约配置
func (c *Client) Contracts() ContractConfig {
	return *c.contracts
}

// SessionID 本次会话标识，出现在所有日志中
func (c *Client) SessionID() string {
	return c.sessionID
}

// UseServerTime 切换认证时间戳来源
func (c *Client) UseServerTime(on bool) {
	c.useServerTime.Store(on)
}

// timestamp 认证使用的 Unix 秒
func (c *Client) timestamp(ctx context.Context) (int64, error) {
	if c.useServerTime.Load() {
		ts, err := c.GetServerTime(ctx)
		if err != nil {
			return 0, fmt.Errorf("获取服务器时间失败: %w", err)
		}
		return ts, nil
	}
	return c.auth.Now(), nil
}
