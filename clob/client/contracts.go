package client

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/betbot/clobauth/clob/signing"
	"github.com/betbot/clobauth/clob/types"
)

// ContractConfig 合约配置
type ContractConfig struct {
	Exchange          string // 标准交易所合约地址
	NegRiskAdapter    string // 负风险适配器地址
	NegRiskExchange   string // 负风险交易所合约地址
	Collateral        string // 抵押品代币地址
	ConditionalTokens string // 条件代币合约地址
}

// PolygonMainnetContracts Polygon 主网合约地址
var PolygonMainnetContracts = ContractConfig{
	Exchange:          "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E",
	NegRiskAdapter:    "0xd91E80cF2E7be2e162c6513ceD06f1dD0dA35296",
	NegRiskExchange:   "0xC5d563A36AE78145C45a50134d48A1215220f80a",
	Collateral:        "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174", // USDC
	ConditionalTokens: "0x4D97DCd97eC945f40cF65F87097ACe5EA0476045",
}

// AmoyTestnetContracts Amoy 测试网合约地址
var AmoyTestnetContracts = ContractConfig{
	Exchange:          "0xdFE02Eb6733538f8Ea35D585af8DE5958AD99E40",
	NegRiskAdapter:    "0xd91E80cF2E7be2e162c6513ceD06f1dD0dA35296",
	NegRiskExchange:   "0xC5d563A36AE78145C45a50134d48A1215220f80a",
	Collateral:        "0x9c4e1703476e875070ee25b56a58b008cfb8fa78",
	ConditionalTokens: "0x69308FB512518e39F9b16112fA8d994F4e2Bf8bB",
}

// GetContractConfig 根据链 ID 获取默认合约配置；其他链必须显式传入
func GetContractConfig(chainID types.Chain) (*ContractConfig, error) {
	switch chainID {
	case types.ChainPolygon:
		c := PolygonMainnetContracts
		return &c, nil
	case types.ChainAmoy:
		c := AmoyTestnetContracts
		return &c, nil
	default:
		return nil, &types.ValidationError{Field: "chain_id", Reason: fmt.Sprintf("no default contracts for chain %d", int64(chainID))}
	}
}

// ExchangeAddresses 转换为订单签名使用的地址；NegRiskExchange 可为空
func (c *ContractConfig) ExchangeAddresses() (signing.ExchangeAddresses, error) {
	var out signing.ExchangeAddresses
	if !common.IsHexAddress(c.Exchange) {
		return out, &types.ValidationError{Field: "exchange", Reason: fmt.Sprintf("invalid address %q", c.Exchange)}
	}
	out.Exchange = common.HexToAddress(c.Exchange)
	if c.NegRiskExchange != "" {
		if !common.IsHexAddress(c.NegRiskExchange) {
			return out, &types.ValidationError{Field: "neg_risk_exchange", Reason: fmt.Sprintf("invalid address %q", c.NegRiskExchange)}
		}
		out.NegRiskExchange = common.HexToAddress(c.NegRiskExchange)
	}
	return out, nil
}
