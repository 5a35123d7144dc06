package types

import (
	"fmt"
	"strconv"
)

// AssetType 余额查询的资产类型
type AssetType string

const (
	AssetCollateral  AssetType = "COLLATERAL"
	AssetConditional AssetType = "CONDITIONAL"
)

// BalanceAllowanceParams 余额和授权查询参数；CONDITIONAL 需要 TokenID
type BalanceAllowanceParams struct {
	AssetType     AssetType
	TokenID       string
	SignatureType *SignatureType
}

// Query 转换为查询参数
func (p *BalanceAllowanceParams) Query() (map[string]string, error) {
	if p == nil {
		return nil, &ValidationError{Field: "params", Reason: "nil"}
	}
	switch p.AssetType {
	case AssetCollateral:
	case AssetConditional:
		if p.TokenID == "" {
			return nil, &ValidationError{Field: "token_id", Reason: "required for CONDITIONAL"}
		}
	default:
		return nil, &ValidationError{Field: "asset_type", Reason: fmt.Sprintf("unknown asset type %q", p.AssetType)}
	}
	q := map[string]string{"asset_type": string(p.AssetType)}
	if p.TokenID != "" {
		q["token_id"] = p.TokenID
	}
	if p.SignatureType != nil {
		q["signature_type"] = strconv.Itoa(int(*p.SignatureType))
	}
	return q, nil
}

// BalanceAllowanceResponse 余额和授权（整数单位字符串）
type BalanceAllowanceResponse struct {
	Balance    string            `json:"balance"`
	Allowance  string            `json:"allowance,omitempty"`
	Allowances map[string]string `json:"allowances,omitempty"`
}
