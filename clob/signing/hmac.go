package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/betbot/clobauth/clob/types"
)

// BuildPolyHmacSignature 构建 Polymarket CLOB HMAC 签名
//
// 消息为 timestamp + method + requestPath + body，body 为空时不追加任何内容。
// 结果为带填充的 URL 安全 base64。
func BuildPolyHmacSignature(
	secret string,
	timestamp string,
	method string,
	requestPath string,
	body string,
) (string, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(timestamp))
	mac.Write([]byte(method))
	mac.Write([]byte(requestPath))
	mac.Write([]byte(body))

	return base64.URLEncoding.EncodeToString(mac.Sum(nil)), nil
}

// decodeSecret 按 URL 安全 base64 解码，兼容标准字母表和无填充写法
func decodeSecret(secret string) ([]byte, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, &types.ValidationError{Field: "secret", Reason: "empty"}
	}
	encodings := []*base64.Encoding{
		base64.URLEncoding,
		base64.StdEncoding,
		base64.RawURLEncoding,
		base64.RawStdEncoding,
	}
	for _, enc := range encodings {
		if key, err := enc.DecodeString(secret); err == nil {
			return key, nil
		}
	}
	return nil, &types.ValidationError{Field: "secret", Reason: "not valid base64"}
}
