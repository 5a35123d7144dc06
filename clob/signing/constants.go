package signing

const (
	// ClobDomainName EIP712 域名名称（L1 认证）
	ClobDomainName = "ClobAuthDomain"

	// ClobVersion EIP712 版本
	ClobVersion = "1"

	// MsgToSign 签名消息
	MsgToSign = "This message attests that I control the given wallet"

	// ExchangeDomainName 订单签名的 EIP712 域名
	ExchangeDomainName = "Polymarket CTF Exchange"

	// ExchangeVersion 订单签名的 EIP712 版本
	ExchangeVersion = "1"

	// ZeroAddress 公开订单的 taker
	ZeroAddress = "0x0000000000000000000000000000000000000000"

	// CollateralTokenDecimals 抵押品代币精度（USDC = 6）
	CollateralTokenDecimals = 6

	// DefaultDerivationPath 助记词默认派生路径
	DefaultDerivationPath = "m/44'/60'/0'/0/0"
)
