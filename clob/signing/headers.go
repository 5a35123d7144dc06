package signing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/betbot/clobauth/clob/types"
)

// DefaultTimestampTolerance 请求时间戳允许的最大偏差
const DefaultTimestampTolerance = 30 * time.Second

// CreateL1Headers 创建 L1 认证头（EIP712 签名验证）
func CreateL1Headers(
	ctx context.Context,
	signer Signer,
	chainID types.Chain,
	timestamp int64,
	nonce int64,
) (*types.L1PolyHeader, error) {
	if signer == nil {
		return nil, types.ErrNoSigner
	}
	sig, err := BuildClobEip712Signature(ctx, signer, chainID, timestamp, nonce)
	if err != nil {
		return nil, fmt.Errorf("构建 EIP712 签名失败: %w", err)
	}

	return &types.L1PolyHeader{
		PolyAddress:   signer.Address().Hex(),
		PolySignature: sig,
		PolyTimestamp: strconv.FormatInt(timestamp, 10),
		PolyNonce:     strconv.FormatInt(nonce, 10),
	}, nil
}

// CreateL2Headers 创建 L2 认证头（API 密钥验证）
func CreateL2Headers(
	address common.Address,
	creds *types.ApiKeyCreds,
	args *types.L2HeaderArgs,
	timestamp int64,
) (*types.L2PolyHeader, error) {
	if !creds.Complete() {
		return nil, types.ErrNoCreds
	}
	if args == nil || args.Method == "" || args.RequestPath == "" {
		return nil, &types.ValidationError{Field: "request", Reason: "method and path are required"}
	}

	ts := strconv.FormatInt(timestamp, 10)
	sig, err := BuildPolyHmacSignature(creds.Secret, ts, args.Method, args.RequestPath, args.Body)
	if err != nil {
		return nil, fmt.Errorf("构建 HMAC 签名失败: %w", err)
	}

	return &types.L2PolyHeader{
		PolyAddress:    address.Hex(),
		PolySignature:  sig,
		PolyTimestamp:  ts,
		PolyAPIKey:     creds.Key,
		PolyPassphrase: creds.Passphrase,
	}, nil
}

// Authenticator 按注入的时钟生成认证头，并检查时间戳新鲜度
type Authenticator struct {
	clock     Clock
	tolerance time.Duration
}

// NewAuthenticator 创建认证器；clock 为 nil 时使用系统时钟，tolerance 为 0 时不检查
func NewAuthenticator(clock Clock, tolerance time.Duration) *Authenticator {
	if clock == nil {
		clock = SystemClock
	}
	return &Authenticator{clock: clock, tolerance: tolerance}
}

// Tolerance 时间戳容差
func (a *Authenticator) Tolerance() time.Duration {
	return a.tolerance
}

// Now 当前 Unix 秒
func (a *Authenticator) Now() int64 {
	return a.clock.Now().Unix()
}

// CheckFresh 时间戳与本地时钟相差超过容差时返回 StaleAuthError
func (a *Authenticator) CheckFresh(timestamp int64) error {
	if a.tolerance <= 0 {
		return nil
	}
	now := a.Now()
	skew := time.Duration(now-timestamp) * time.Second
	if skew < 0 {
		skew = -skew
	}
	if skew > a.tolerance {
		return &types.StaleAuthError{Timestamp: timestamp, Now: now, Tolerance: a.tolerance}
	}
	return nil
}

// L1Headers 使用当前时间创建 L1 认证头
func (a *Authenticator) L1Headers(ctx context.Context, signer Signer, chainID types.Chain, nonce int64) (*types.L1PolyHeader, error) {
	return CreateL1Headers(ctx, signer, chainID, a.Now(), nonce)
}

// L2Headers 使用当前时间创建 L2 认证头
func (a *Authenticator) L2Headers(address common.Address, creds *types.ApiKeyCreds, args *types.L2HeaderArgs) (*types.L2PolyHeader, error) {
	return CreateL2Headers(address, creds, args, a.Now())
}

// L2HeadersAt 使用指定时间戳创建 L2 认证头，过期的时间戳会被拒绝
func (a *Authenticator) L2HeadersAt(address common.Address, creds *types.ApiKeyCreds, args *types.L2HeaderArgs, timestamp int64) (*types.L2PolyHeader, error) {
	if err := a.CheckFresh(timestamp); err != nil {
		return nil, err
	}
	return CreateL2Headers(address, creds, args, timestamp)
}

// BuildL2Headers 使用系统时钟创建 L2 认证头
func BuildL2Headers(address common.Address, creds *types.ApiKeyCreds, method, path, body string) (*types.L2PolyHeader, error) {
	return CreateL2Headers(address, creds, &types.L2HeaderArgs{Method: method, RequestPath: path, Body: body}, SystemClock.Now().Unix())
}
