package client

// API 端点常量
const (
	// Server Time
	EndpointTime = "/time"

	// API Key endpoints
	EndpointCreateAPIKey = "/auth/api-key"
	EndpointGetAPIKeys   = "/auth/api-keys"
	EndpointDeleteAPIKey = "/auth/api-key"
	EndpointDeriveAPIKey = "/auth/derive-api-key"

	// 下单所需的市场元数据
	EndpointTickSize = "/tick-size"
	EndpointNegRisk  = "/neg-risk"
	EndpointFeeRate  = "/fee-rate"

	// Order endpoints
	EndpointPostOrder    = "/order"
	EndpointPostOrders   = "/orders"
	EndpointCancelOrder  = "/order"
	EndpointCancelOrders = "/orders"
	EndpointCancelAll    = "/cancel-all"
	EndpointGetOrder     = "/data/order/"

	// Balance
	EndpointGetBalanceAllowance    = "/balance-allowance"
	EndpointUpdateBalanceAllowance = "/balance-allowance/update"
)
