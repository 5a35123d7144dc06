package types

import "github.com/shopspring/decimal"

// OrderArgs 限价订单参数
type OrderArgs struct {
	// TokenID 条件代币资产 ID（十进制，最长 78 位）
	TokenID string

	// Price 订单价格，(0, 1) 开区间
	Price decimal.Decimal

	// Size 条件代币的数量
	Size decimal.Decimal

	// Side 订单方向
	Side Side

	// FeeRateBps 手续费率（基点），可选
	FeeRateBps *int

	// Nonce 用于链上取消订单的 nonce，可选
	Nonce *int64

	// Expiration 订单过期时间戳（秒），可选，0 表示不过期
	Expiration *int64

	// Taker 订单接受者地址，零地址表示公开订单，可选
	Taker *string
}

// MarketOrderArgs 市价订单参数
type MarketOrderArgs struct {
	// TokenID 条件代币资产 ID
	TokenID string

	// Amount 数量
	// BUY 订单: 美元金额
	// SELL 订单: 份额数量
	Amount decimal.Decimal

	// Price 最差可接受价格
	Price decimal.Decimal

	// Side 订单方向
	Side Side

	// FeeRateBps 手续费率（基点），可选
	FeeRateBps *int

	// Nonce 用于链上取消订单的 nonce，可选
	Nonce *int64

	// Taker 订单接受者地址，可选
	Taker *string

	// OrderType 订单执行类型（仅支持 FOK 或 FAK）
	OrderType OrderType
}

// CreateOrderOptions 创建订单选项
type CreateOrderOptions struct {
	TickSize TickSize
	NegRisk  bool
}

// PartialCreateOrderOptions 客户端下单选项，未设置的字段从市场元数据获取
type PartialCreateOrderOptions struct {
	TickSize TickSize
	NegRisk  *bool
}

// SignedOrder 已签名的订单，生成后不可修改
type SignedOrder struct {
	Salt          int64  `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	Side          Side   `json:"side"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

// NewOrder 提交订单载荷
type NewOrder struct {
	Order     SignedOrder `json:"order"`
	Owner     string      `json:"owner"`
	OrderType OrderType   `json:"orderType"`
	DeferExec bool        `json:"deferExec"`
}

// PostOrdersArgs 批量提交订单参数
type PostOrdersArgs struct {
	Order     *SignedOrder
	OrderType OrderType
}

// OrderResponse 订单响应
type OrderResponse struct {
	Success           bool     `json:"success"`
	ErrorMsg          string   `json:"errorMsg"`
	OrderID           string   `json:"orderID"`
	TransactionHashes []string `json:"transactionsHashes"`
	Status            string   `json:"status"`
	TakingAmount      string   `json:"takingAmount"`
	MakingAmount      string   `json:"makingAmount"`
}

// CancelResponse 取消订单响应
type CancelResponse struct {
	Canceled    []string          `json:"canceled"`
	NotCanceled map[string]string `json:"not_canceled"`
}

// OpenOrder 交易所上的订单
type OpenOrder struct {
	ID              string   `json:"id"`
	Status          string   `json:"status"`
	Owner           string   `json:"owner"`
	MakerAddress    string   `json:"maker_address"`
	Market          string   `json:"market"`
	AssetID         string   `json:"asset_id"`
	Side            string   `json:"side"`
	OriginalSize    string   `json:"original_size"`
	SizeMatched     string   `json:"size_matched"`
	Price           string   `json:"price"`
	AssociateTrades []string `json:"associate_trades"`
	Outcome         string   `json:"outcome"`
	CreatedAt       int64    `json:"created_at"`
	Expiration      string   `json:"expiration"`
	OrderType       string   `json:"order_type"`
}
