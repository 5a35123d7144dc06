package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/betbot/clobauth/clob/types"
	"github.com/betbot/clobauth/internal/metrics"
	"github.com/betbot/clobauth/pkg/ratelimit"
)

const userAgent = "clobauth-go"

// HTTPError 非 2xx 响应，Body 原样保留
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// request 单次请求；body 为已序列化的 JSON，与 HMAC 签名使用同一份字节
type request struct {
	method   string
	path     string
	route    string // 指标标签，路径含 ID 时设置
	limitKey string
	query    map[string]string
	headers  map[string]string
	body     []byte
}

// httpClient resty 封装：限流、重试、指标和日志
type httpClient struct {
	rc      *resty.Client
	limiter *ratelimit.RateLimitManager
	metrics *metrics.Metrics
	log     *logrus.Entry
}

func newHTTPClient(host string, timeout time.Duration, retries int, limiter *ratelimit.RateLimitManager, m *metrics.Metrics, log *logrus.Entry) *httpClient {
	host = strings.TrimSuffix(host, "/")

	// resty 会自动从环境变量读取代理配置（HTTP_PROXY, HTTPS_PROXY）
	rc := resty.New().
		SetBaseURL(host).
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			// 只重试未签名的只读请求；认证头一次性使用，重发需要调用方重新签名
			if resp == nil || resp.Request == nil || resp.Request.Method != http.MethodGet {
				return false
			}
			if resp.Request.Header.Get(types.HeaderPolySignature) != "" {
				return false
			}
			if err != nil {
				return true
			}
			return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500
		}).
		SetRetryAfter(func(client *resty.Client, resp *resty.Response) (time.Duration, error) {
			if resp.StatusCode() == http.StatusTooManyRequests {
				if retryAfter := resp.Header().Get("Retry-After"); retryAfter != "" {
					if d, err := time.ParseDuration(retryAfter + "s"); err == nil {
						return d, nil
					}
				}
			}
			return 0, nil
		})

	return &httpClient{rc: rc, limiter: limiter, metrics: m, log: log}
}

// do 发送请求；out 非 nil 时解析 JSON 响应体
func (h *httpClient) do(ctx context.Context, req request, out any) ([]byte, error) {
	if req.limitKey == "" {
		req.limitKey = ratelimit.KeyGeneral
	}
	if err := h.limiter.Wait(ctx, req.limitKey); err != nil {
		return nil, errors.Wrapf(err, "rate limit %s", req.limitKey)
	}

	rc := h.rc.R().SetContext(ctx)
	rc.SetHeader("Accept", "*/*")
	rc.SetHeader("User-Agent", userAgent)
	rc.SetHeader("X-Request-Id", uuid.NewString())
	for k, v := range req.query {
		rc.SetQueryParam(k, v)
	}
	for k, v := range req.headers {
		rc.SetHeader(k, v)
	}
	if req.body != nil {
		rc.SetHeader("Content-Type", "application/json")
		rc.SetBody(req.body)
	}

	route := req.route
	if route == "" {
		route = req.path
	}

	start := time.Now()
	resp, err := rc.Execute(req.method, req.path)
	elapsed := time.Since(start)
	if err != nil {
		h.metrics.RecordHTTP(req.method, route, 0, elapsed)
		return nil, errors.Wrapf(err, "%s %s", req.method, req.path)
	}
	h.metrics.RecordHTTP(req.method, route, resp.StatusCode(), elapsed)
	h.log.WithFields(logrus.Fields{
		"method":  req.method,
		"path":    req.path,
		"status":  resp.StatusCode(),
		"elapsed": elapsed,
	}).Debug("clob request")

	body := resp.Body()
	if !resp.IsSuccess() {
		return body, &HTTPError{
			Method:     req.method,
			Path:       req.path,
			StatusCode: resp.StatusCode(),
			Body:       string(body),
		}
	}
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return body, errors.Wrapf(err, "decode %s %s response: %s", req.method, req.path, string(body))
		}
	}
	return body, nil
}

// asHTTPError 取出 HTTPError
func asHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}
