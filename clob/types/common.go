package types

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/betbot/clobauth/pkg/logger"
)

// Side 订单方向
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Uint8 返回链上编码值（BUY = 0, SELL = 1）
func (s Side) Uint8() uint8 {
	if s == SideBuy {
		return 0
	}
	return 1
}

// Valid 检查方向是否合法
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// OrderType 订单类型
type OrderType string

const (
	OrderTypeGTC OrderType = "GTC" // Good Till Cancel
	OrderTypeFOK OrderType = "FOK" // Fill or Kill
	OrderTypeGTD OrderType = "GTD" // Good Till Date
	OrderTypeFAK OrderType = "FAK" // Fill and Kill
)

// Chain 区块链网络
type Chain int64

const (
	ChainPolygon Chain = 137
	ChainAmoy    Chain = 80002
)

// SignatureType 签名类型，客户端构造时确定
type SignatureType int

const (
	SignatureTypeEOA            SignatureType = 0 // 普通钱包，maker = signer
	SignatureTypePolyProxy      SignatureType = 1 // Polymarket 代理钱包（邮箱/Magic 登录）
	SignatureTypePolyGnosisSafe SignatureType = 2 // Gnosis Safe 代理钱包
)

// String 返回签名类型名称
func (t SignatureType) String() string {
	switch t {
	case SignatureTypeEOA:
		return "EOA"
	case SignatureTypePolyProxy:
		return "POLY_PROXY"
	case SignatureTypePolyGnosisSafe:
		return "POLY_GNOSIS_SAFE"
	default:
		return fmt.Sprintf("SignatureType(%d)", int(t))
	}
}

// UsesFunder maker 是否为资金方地址
func (t SignatureType) UsesFunder() bool {
	return t == SignatureTypePolyProxy || t == SignatureTypePolyGnosisSafe
}

// ParseSignatureType 解析配置中的签名类型（数字或名称）
func ParseSignatureType(s string) (SignatureType, error) {
	switch s {
	case "", "0", "EOA", "eoa":
		return SignatureTypeEOA, nil
	case "1", "POLY_PROXY", "poly_proxy", "proxy":
		return SignatureTypePolyProxy, nil
	case "2", "POLY_GNOSIS_SAFE", "poly_gnosis_safe", "safe":
		return SignatureTypePolyGnosisSafe, nil
	}
	return 0, &ValidationError{Field: "signature_type", Reason: fmt.Sprintf("unknown signature type %q", s)}
}

// TickSize 价格精度
type TickSize string

const (
	TickSize01    TickSize = "0.1"
	TickSize001   TickSize = "0.01"
	TickSize0001  TickSize = "0.001"
	TickSize00001 TickSize = "0.0001"
)

// Decimal 返回 tick size 的十进制值
func (t TickSize) Decimal() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(string(t))
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "tick_size", Reason: fmt.Sprintf("invalid tick size %q", t)}
	}
	return d, nil
}

// AuthLevel 认证层级
type AuthLevel int

const (
	AuthL0 AuthLevel = iota // 匿名
	AuthL1                  // 持有钱包签名能力
	AuthL2                  // 持有 API 凭证
)

func (l AuthLevel) String() string {
	return fmt.Sprintf("L%d", int(l))
}

// ApiKeyCreds API 密钥凭证，安装后只整体替换，不做原地修改
type ApiKeyCreds struct {
	Key        string `json:"key" yaml:"key"`
	Secret     string `json:"secret" yaml:"secret"`
	Passphrase string `json:"passphrase" yaml:"passphrase"`
}

// Complete 三个字段是否都已填写
func (c *ApiKeyCreds) Complete() bool {
	return c != nil && c.Key != "" && c.Secret != "" && c.Passphrase != ""
}

// String 打印时遮蔽三个字段，避免凭证进入日志
func (c ApiKeyCreds) String() string {
	return fmt.Sprintf("{Key:%s Secret:%s Passphrase:%s}",
		logger.MaskSecret(c.Key), logger.MaskSecret(c.Secret), logger.MaskSecret(c.Passphrase))
}

// GoString %#v 同样遮蔽
func (c ApiKeyCreds) GoString() string {
	return "types.ApiKeyCreds" + c.String()
}

// ApiKeyRaw 原始 API 密钥（API 返回格式）
type ApiKeyRaw struct {
	ApiKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// Creds 转换为 ApiKeyCreds
func (r ApiKeyRaw) Creds() *ApiKeyCreds {
	return &ApiKeyCreds{
		Key:        r.ApiKey,
		Secret:     r.Secret,
		Passphrase: r.Passphrase,
	}
}

// ApiKeysResponse 已有 API 密钥列表
type ApiKeysResponse struct {
	ApiKeys []string `json:"apiKeys"`
}
