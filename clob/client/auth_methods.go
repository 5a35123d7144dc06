package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/betbot/clobauth/clob/signing"
	"github.com/betbot/clobauth/clob/types"
	"github.com/betbot/clobauth/pkg/logger"
	"github.com/betbot/clobauth/pkg/ratelimit"
)

// CredStore 凭证持久化（见 clob/credstore）
type CredStore interface {
	Load(chain types.Chain, address common.Address) (*types.ApiKeyCreds, error)
	Save(chain types.Chain, address common.Address, creds *types.ApiKeyCreds) error
	Delete(chain types.Chain, address common.Address) error
}

// l2Auth 单次请求使用的凭证快照；请求体里的 owner 和认证头都取自这一份
type l2Auth struct {
	address common.Address
	creds   *types.ApiKeyCreds
}

func (c *Client) l2Snapshot() (l2Auth, error) {
	address, creds, err := c.assertL2()
	if err != nil {
		return l2Auth{}, err
	}
	return l2Auth{address: address, creds: creds}, nil
}

// GetServerTime 交易所当前时间（Unix 秒）
func (c *Client) GetServerTime(ctx context.Context) (int64, error) {
	body, err := c.http.do(ctx, request{method: http.MethodGet, path: EndpointTime, limitKey: ratelimit.KeyGeneral}, nil)
	if err != nil {
		return 0, err
	}
	ts, err := strconv.ParseInt(strings.Trim(strings.TrimSpace(string(body)), `"`), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse server time %q", string(body))
	}
	return ts, nil
}

// L1Headers 生成 L1 认证头（钱包对 ClobAuth 结构化数据的签名）；nonce 默认为 0
func (c *Client) L1Headers(ctx context.Context, nonce int64) (*types.L1PolyHeader, int64, error) {
	if err := c.assertL1(); err != nil {
		return nil, 0, err
	}
	ts, err := c.timestamp(ctx)
	if err != nil {
		return nil, 0, err
	}
	headers, err := signing.CreateL1Headers(ctx, c.signer, c.chainID, ts, nonce)
	c.metrics.RecordSignature("clob_auth", err)
	if err != nil {
		return nil, 0, fmt.Errorf("创建 L1 认证头失败: %w", err)
	}
	return headers, ts, nil
}

// L2Headers 用当前安装的凭证生成 L2 认证头；args.Body 必须与实际发送的字节一致
func (c *Client) L2Headers(ctx context.Context, args *types.L2HeaderArgs) (*types.L2PolyHeader, int64, error) {
	auth, err := c.l2Snapshot()
	if err != nil {
		return nil, 0, err
	}
	return c.signL2(ctx, auth, args)
}

// L2HeadersAt 用调用方给定的时间戳生成 L2 认证头；与本地时钟相差超过容差时返回 StaleAuthError
func (c *Client) L2HeadersAt(args *types.L2HeaderArgs, timestamp int64) (*types.L2PolyHeader, error) {
	auth, err := c.l2Snapshot()
	if err != nil {
		return nil, err
	}
	headers, err := c.auth.L2HeadersAt(auth.address, auth.creds, args, timestamp)
	if err != nil {
		var stale *types.StaleAuthError
		if errors.As(err, &stale) {
			return nil, err
		}
		c.metrics.RecordSignature("hmac", err)
		return nil, fmt.Errorf("创建 L2 认证头失败: %w", err)
	}
	c.metrics.RecordSignature("hmac", nil)
	return headers, nil
}

func (c *Client) signL2(ctx context.Context, auth l2Auth, args *types.L2HeaderArgs) (*types.L2PolyHeader, int64, error) {
	ts, err := c.timestamp(ctx)
	if err != nil {
		return nil, 0, err
	}
	headers, err := signing.CreateL2Headers(auth.address, auth.creds, args, ts)
	c.metrics.RecordSignature("hmac", err)
	if err != nil {
		return nil, 0, fmt.Errorf("创建 L2 认证头失败: %w", err)
	}
	return headers, ts, nil
}

// l1Do 带 L1 认证头发送请求
func (c *Client) l1Do(ctx context.Context, op string, req request, nonce *int64, out any) error {
	var n int64
	if nonce != nil {
		n = *nonce
	}
	headers, ts, err := c.L1Headers(ctx, n)
	if err != nil {
		return err
	}
	req.headers = headers.Map()
	if _, err := c.http.do(ctx, req, out); err != nil {
		return c.authFailure(ctx, op, ts, err)
	}
	return nil
}

// l2Do 取当前凭证快照并带 L2 认证头发送请求
func (c *Client) l2Do(ctx context.Context, op string, req request, body any, out any) error {
	auth, err := c.l2Snapshot()
	if err != nil {
		return err
	}
	return c.l2DoAs(ctx, op, auth, req, body, out)
}

// l2DoAs 使用给定的凭证快照发送请求；body 先序列化，HMAC 与发送的字节一致。
// 查询参数不参与签名。
func (c *Client) l2DoAs(ctx context.Context, op string, auth l2Auth, req request, body any, out any) error {
	if body != nil {
		var err error
		if req.body, err = json.Marshal(body); err != nil {
			return fmt.Errorf("序列化请求体失败: %w", err)
		}
	}
	headers, ts, err := c.signL2(ctx, auth, &types.L2HeaderArgs{
		Method:      req.method,
		RequestPath: req.path,
		Body:        string(req.body),
	})
	if err != nil {
		return err
	}
	req.headers = headers.Map()
	if _, err := c.http.do(ctx, req, out); err != nil {
		return c.authFailure(ctx, op, ts, err)
	}
	return nil
}

// authFailure 将 401/403 转为 AuthError；401 且与服务器时间偏差超出容差时转为 StaleAuthError
func (c *Client) authFailure(ctx context.Context, op string, ts int64, err error) error {
	he, ok := asHTTPError(err)
	if !ok {
		return err
	}
	c.metrics.RecordAuthFailure(op, he.StatusCode)
	if he.StatusCode == http.StatusUnauthorized && !c.useServerTime.Load() && c.auth.Tolerance() > 0 {
		if now, terr := c.GetServerTime(ctx); terr == nil {
			skew := time.Duration(now-ts) * time.Second
			if skew < 0 {
				skew = -skew
			}
			if skew > c.auth.Tolerance() {
				c.log.WithFields(logrus.Fields{"op": op, "skew": skew}).Warn("auth timestamp rejected, local clock skewed")
				return &types.StaleAuthError{Timestamp: ts, Now: now, Tolerance: c.auth.Tolerance()}
			}
		}
	}
	switch he.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &types.AuthError{Op: op, StatusCode: he.StatusCode, Body: he.Body}
	}
	return err
}

// apiKeyFromResponse 校验并转换服务端返回的凭证
func apiKeyFromResponse(op string, raw *types.ApiKeyRaw) (*types.ApiKeyCreds, error) {
	creds := raw.Creds()
	if !creds.Complete() {
		return nil, &types.AuthError{Op: op, StatusCode: http.StatusOK, Body: "incomplete api key response"}
	}
	return creds, nil
}

// CreateAPIKey 创建新的 API 密钥（L1）；nonce 默认为 0
func (c *Client) CreateAPIKey(ctx context.Context, nonce *int64) (*types.ApiKeyCreds, error) {
	const op = "create_api_key"
	var raw types.ApiKeyRaw
	req := request{method: http.MethodPost, path: EndpointCreateAPIKey, limitKey: ratelimit.KeyAuth}
	if err := c.l1Do(ctx, op, req, nonce, &raw); err != nil {
		return nil, c.asAuthError(op, err)
	}
	creds, err := apiKeyFromResponse(op, &raw)
	if err != nil {
		return nil, err
	}
	c.metrics.RecordCreds("create")
	c.log.WithField("api_key", logger.MaskSecret(creds.Key)).Info("api key created")
	return creds, nil
}

// DeriveAPIKey 推导已有的 API 密钥（L1）；nonce 默认为 0
func (c *Client) DeriveAPIKey(ctx context.Context, nonce *int64) (*types.ApiKeyCreds, error) {
	const op = "derive_api_key"
	var raw types.ApiKeyRaw
	req := request{method: http.MethodGet, path: EndpointDeriveAPIKey, limitKey: ratelimit.KeyAuth}
	if err := c.l1Do(ctx, op, req, nonce, &raw); err != nil {
		return nil, c.asAuthError(op, err)
	}
	creds, err := apiKeyFromResponse(op, &raw)
	if err != nil {
		return nil, err
	}
	c.metrics.RecordCreds("derive")
	c.log.WithField("api_key", logger.MaskSecret(creds.Key)).Info("api key derived")
	return creds, nil
}

// CreateOrDeriveAPIKey 先尝试创建；服务端以 400/409 表示密钥已存在时改为推导
func (c *Client) CreateOrDeriveAPIKey(ctx context.Context, nonce *int64) (*types.ApiKeyCreds, error) {
	creds, err := c.CreateAPIKey(ctx, nonce)
	if err == nil {
		return creds, nil
	}
	var ae *types.AuthError
	if !errors.As(err, &ae) || (ae.StatusCode != http.StatusBadRequest && ae.StatusCode != http.StatusConflict) {
		return nil, err
	}
	c.log.WithField("status", ae.StatusCode).Debug("api key exists, deriving")
	return c.DeriveAPIKey(ctx, nonce)
}

// asAuthError L1 握手的任何服务端拒绝都按 AuthError 返回，状态码和响应体原样保留
func (c *Client) asAuthError(op string, err error) error {
	if he, ok := asHTTPError(err); ok {
		return &types.AuthError{Op: op, StatusCode: he.StatusCode, Body: he.Body}
	}
	return err
}

// EnsureCreds 安装凭证：优先使用 store 中仍然有效的凭证，否则创建或推导后写回 store。
// 被服务端拒绝（401/403）的本地凭证会从 store 删除。
func (c *Client) EnsureCreds(ctx context.Context, store CredStore, nonce *int64) (*types.ApiKeyCreds, error) {
	address, err := c.Address()
	if err != nil {
		return nil, err
	}
	if store != nil {
		creds, err := store.Load(c.chainID, address)
		if err != nil {
			return nil, fmt.Errorf("读取本地凭证失败: %w", err)
		}
		if creds != nil {
			ok, err := c.credsAccepted(ctx, l2Auth{address: address, creds: creds})
			if err != nil {
				return nil, fmt.Errorf("校验本地凭证失败: %w", err)
			}
			if ok {
				if err := c.SetCreds(creds); err != nil {
					return nil, err
				}
				c.metrics.RecordCreds("store")
				return creds, nil
			}
			c.log.WithField("api_key", logger.MaskSecret(creds.Key)).Warn("stored api key rejected, dropping it")
			c.metrics.RecordCreds("store_rejected")
			if err := store.Delete(c.chainID, address); err != nil {
				return nil, fmt.Errorf("删除失效凭证失败: %w", err)
			}
		}
	}

	creds, err := c.CreateOrDeriveAPIKey(ctx, nonce)
	if err != nil {
		return nil, err
	}
	if err := c.SetCreds(creds); err != nil {
		return nil, err
	}
	if store != nil {
		if err := store.Save(c.chainID, address, creds); err != nil {
			c.log.WithError(err).Warn("save api creds failed")
		}
	}
	return creds, nil
}

// credsAccepted 用 GET /auth/api-keys 检查凭证；服务端以 401/403 拒绝时返回 false
func (c *Client) credsAccepted(ctx context.Context, auth l2Auth) (bool, error) {
	var out types.ApiKeysResponse
	req := request{method: http.MethodGet, path: EndpointGetAPIKeys, limitKey: ratelimit.KeyAuth}
	err := c.l2DoAs(ctx, "verify_api_key", auth, req, nil, &out)
	if err == nil {
		return true, nil
	}
	var ae *types.AuthError
	if errors.As(err, &ae) && (ae.StatusCode == http.StatusUnauthorized || ae.StatusCode == http.StatusForbidden) {
		return false, nil
	}
	return false, err
}

// GetAPIKeys 列出当前钱包的 API 密钥（L2）
func (c *Client) GetAPIKeys(ctx context.Context) (*types.ApiKeysResponse, error) {
	var out types.ApiKeysResponse
	req := request{method: http.MethodGet, path: EndpointGetAPIKeys, limitKey: ratelimit.KeyAuth}
	if err := c.l2Do(ctx, "get_api_keys", req, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAPIKey 删除当前安装的 API 密钥（L2），成功后客户端回到 L1
func (c *Client) DeleteAPIKey(ctx context.Context) error {
	auth, err := c.l2Snapshot()
	if err != nil {
		return err
	}
	req := request{method: http.MethodDelete, path: EndpointDeleteAPIKey, limitKey: ratelimit.KeyAuth}
	if err := c.l2DoAs(ctx, "delete_api_key", auth, req, nil, nil); err != nil {
		return err
	}
	// 期间若已换成其他凭证则保留
	c.creds.CompareAndSwap(auth.creds, nil)
	c.log.WithField("api_key", logger.MaskSecret(auth.creds.Key)).Info("api key deleted")
	return nil
}

// RevokeAPIKey 删除服务端密钥，并移除 store 中的本地副本
func (c *Client) RevokeAPIKey(ctx context.Context, store CredStore) error {
	address, err := c.Address()
	if err != nil {
		return err
	}
	if err := c.DeleteAPIKey(ctx); err != nil {
		return err
	}
	if store != nil {
		if err := store.Delete(c.chainID, address); err != nil {
			return fmt.Errorf("删除本地凭证失败: %w", err)
		}
	}
	return nil
}
