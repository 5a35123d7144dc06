package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/betbot/clobauth/clob/types"
	"github.com/betbot/clobauth/pkg/logger"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 默认值
const (
	DefaultHost               = "https://clob.polymarket.com"
	DefaultTimestampTolerance = 30 * time.Second
	DefaultSignerdListen      = "127.0.0.1:8091"
	DefaultMetricsListen      = "127.0.0.1:9091"
)

// ContractsConfig 合约地址覆盖，非默认链必须配置
type ContractsConfig struct {
	Exchange          string `yaml:"exchange" json:"exchange"`
	NegRiskExchange   string `yaml:"neg_risk_exchange" json:"neg_risk_exchange"`
	NegRiskAdapter    string `yaml:"neg_risk_adapter" json:"neg_risk_adapter"`
	Collateral        string `yaml:"collateral" json:"collateral"`
	ConditionalTokens string `yaml:"conditional_tokens" json:"conditional_tokens"`
}

// Empty 是否未配置任何地址
func (c ContractsConfig) Empty() bool {
	return c.Exchange == "" && c.NegRiskExchange == "" && c.NegRiskAdapter == "" &&
		c.Collateral == "" && c.ConditionalTokens == ""
}

// ClobConfig 交易所连接配置
type ClobConfig struct {
	Host          string          `yaml:"host" json:"host"`
	ChainID       int64           `yaml:"chain_id" json:"chain_id"`
	SignatureType string          `yaml:"signature_type" json:"signature_type"` // eoa, poly_proxy, poly_gnosis_safe
	UseServerTime bool            `yaml:"use_server_time" json:"use_server_time"`
	Contracts     ContractsConfig `yaml:"contracts" json:"contracts"`
}

// RemoteSignerConfig 远程签名服务
type RemoteSignerConfig struct {
	URL   string `yaml:"url" json:"url"`
	Token string `yaml:"token" json:"token"`
}

// WalletConfig 钱包配置，private_key / mnemonic / remote 三选一
type WalletConfig struct {
	PrivateKey     string             `yaml:"private_key" json:"private_key"`
	Mnemonic       string             `yaml:"mnemonic" json:"mnemonic"`
	DerivationPath string             `yaml:"derivation_path" json:"derivation_path"`
	Remote         RemoteSignerConfig `yaml:"remote" json:"remote"`
	FunderAddress  string             `yaml:"funder_address" json:"funder_address"`
}

// CredStoreConfig 本地加密凭证库
type CredStoreConfig struct {
	Path      string `yaml:"path" json:"path"`
	MasterKey string `yaml:"master_key" json:"master_key"` // 32 字节，hex 或 base64
}

// AuthConfig 认证配置
type AuthConfig struct {
	APIKey             string          `yaml:"api_key" json:"api_key"`
	APISecret          string          `yaml:"api_secret" json:"api_secret"`
	APIPassphrase      string          `yaml:"api_passphrase" json:"api_passphrase"`
	TimestampTolerance time.Duration   `yaml:"timestamp_tolerance" json:"timestamp_tolerance"`
	CredStore          CredStoreConfig `yaml:"credstore" json:"credstore"`
}

// Creds 配置中的 API 凭证，未配置时返回 nil
func (a AuthConfig) Creds() *types.ApiKeyCreds {
	c := &types.ApiKeyCreds{Key: a.APIKey, Secret: a.APISecret, Passphrase: a.APIPassphrase}
	if !c.Complete() {
		return nil
	}
	return c
}

// SignerdConfig 签名服务配置
type SignerdConfig struct {
	Listen string `yaml:"listen" json:"listen"`
	Token  string `yaml:"token" json:"token"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Listen  string `yaml:"listen" json:"listen"`
}

// Config 应用配置
type Config struct {
	Clob    ClobConfig    `yaml:"clob" json:"clob"`
	Wallet  WalletConfig  `yaml:"wallet" json:"wallet"`
	Auth    AuthConfig    `yaml:"auth" json:"auth"`
	Log     logger.Config `yaml:"log" json:"log"`
	Signerd SignerdConfig `yaml:"signerd" json:"signerd"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		Clob: ClobConfig{
			Host:          DefaultHost,
			ChainID:       int64(types.ChainPolygon),
			SignatureType: types.SignatureTypeEOA.String(),
		},
		Auth:    AuthConfig{TimestampTolerance: DefaultTimestampTolerance},
		Log:     logger.Config{Level: "info"},
		Signerd: SignerdConfig{Listen: DefaultSignerdListen},
		Metrics: MetricsConfig{Listen: DefaultMetricsListen},
	}
}

// Load 加载 .env（可选）、配置文件（可选）并应用环境变量覆盖
// 优先级：环境变量 > 配置文件 > 默认值
func Load(filePath string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	cfg := Default()
	if filePath != "" {
		if err := loadConfigFile(filePath, cfg); err != nil {
			return nil, fmt.Errorf("加载配置文件失败 %s: %w", filePath, err)
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadConfigFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("读取配置文件失败: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("解析 YAML 配置文件失败: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("解析 JSON 配置文件失败: %w", err)
		}
	default:
		return fmt.Errorf("不支持的配置文件格式: %s (支持 .yaml, .yml, .json)", ext)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Clob.Host = getEnv("CLOB_HOST", cfg.Clob.Host)
	cfg.Clob.ChainID = parseInt64Env("CLOB_CHAIN_ID", cfg.Clob.ChainID)
	cfg.Clob.SignatureType = getEnv("CLOB_SIGNATURE_TYPE", cfg.Clob.SignatureType)
	cfg.Clob.UseServerTime = parseBoolEnv("CLOB_USE_SERVER_TIME", cfg.Clob.UseServerTime)

	cfg.Wallet.PrivateKey = getEnv("CLOB_PRIVATE_KEY", cfg.Wallet.PrivateKey)
	cfg.Wallet.Mnemonic = getEnv("CLOB_MNEMONIC", cfg.Wallet.Mnemonic)
	cfg.Wallet.DerivationPath = getEnv("CLOB_DERIVATION_PATH", cfg.Wallet.DerivationPath)
	cfg.Wallet.Remote.URL = getEnv("CLOB_REMOTE_SIGNER_URL", cfg.Wallet.Remote.URL)
	cfg.Wallet.Remote.Token = getEnv("CLOB_REMOTE_SIGNER_TOKEN", cfg.Wallet.Remote.Token)
	cfg.Wallet.FunderAddress = getEnv("CLOB_FUNDER_ADDRESS", cfg.Wallet.FunderAddress)

	cfg.Auth.APIKey = getEnv("CLOB_API_KEY", cfg.Auth.APIKey)
	cfg.Auth.APISecret = getEnv("CLOB_API_SECRET", cfg.Auth.APISecret)
	cfg.Auth.APIPassphrase = getEnv("CLOB_API_PASSPHRASE", cfg.Auth.APIPassphrase)
	cfg.Auth.TimestampTolerance = parseDurationEnv("CLOB_TIMESTAMP_TOLERANCE", cfg.Auth.TimestampTolerance)
	cfg.Auth.CredStore.Path = getEnv("CLOB_CREDSTORE_PATH", cfg.Auth.CredStore.Path)
	cfg.Auth.CredStore.MasterKey = getEnv("CLOB_MASTER_KEY", cfg.Auth.CredStore.MasterKey)

	cfg.Log.Level = getEnv("CLOB_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.OutputFile = getEnv("CLOB_LOG_FILE", cfg.Log.OutputFile)

	cfg.Signerd.Listen = getEnv("SIGNERD_LISTEN", cfg.Signerd.Listen)
	cfg.Signerd.Token = getEnv("SIGNERD_TOKEN", cfg.Signerd.Token)

	cfg.Metrics.Enabled = parseBoolEnv("CLOB_METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.Listen = getEnv("CLOB_METRICS_LISTEN", cfg.Metrics.Listen)
}

// SignatureType 解析后的签名类型
func (c *Config) SignatureType() (types.SignatureType, error) {
	return types.ParseSignatureType(c.Clob.SignatureType)
}

// Chain 链 ID
func (c *Config) Chain() types.Chain {
	return types.Chain(c.Clob.ChainID)
}

// Validate 验证配置
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Clob.Host) == "" {
		return fmt.Errorf("clob.host 未配置")
	}
	if c.Clob.ChainID <= 0 {
		return fmt.Errorf("clob.chain_id 必须大于 0")
	}
	chain := c.Chain()
	if chain != types.ChainPolygon && chain != types.ChainAmoy && c.Clob.Contracts.Exchange == "" {
		return fmt.Errorf("链 %d 没有默认合约地址，必须配置 clob.contracts", c.Clob.ChainID)
	}

	sigType, err := c.SignatureType()
	if err != nil {
		return fmt.Errorf("clob.signature_type: %w", err)
	}
	if sigType.UsesFunder() && c.Wallet.FunderAddress == "" {
		return fmt.Errorf("签名类型 %s 需要配置 wallet.funder_address", sigType)
	}

	sources := 0
	for _, set := range []bool{c.Wallet.PrivateKey != "", c.Wallet.Mnemonic != "", c.Wallet.Remote.URL != ""} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return fmt.Errorf("wallet.private_key、wallet.mnemonic、wallet.remote 只能配置一个")
	}

	a := c.Auth
	partial := a.APIKey != "" || a.APISecret != "" || a.APIPassphrase != ""
	if partial && a.Creds() == nil {
		return fmt.Errorf("auth.api_key / api_secret / api_passphrase 必须同时配置")
	}
	if a.TimestampTolerance < 0 {
		return fmt.Errorf("auth.timestamp_tolerance 不能为负数")
	}
	if a.CredStore.Path != "" && a.CredStore.MasterKey == "" {
		return fmt.Errorf("auth.credstore.path 已配置但缺少 master_key")
	}
	return nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseInt64Env 解析整数环境变量
func parseInt64Env(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// parseBoolEnv 解析布尔环境变量
func parseBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// parseDurationEnv 解析时长环境变量，例如 30s
func parseDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
