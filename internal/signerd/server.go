package signerd

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/betbot/clobauth/clob/signing"
	"github.com/betbot/clobauth/internal/metrics"
	"github.com/betbot/clobauth/pkg/logger"
	"github.com/betbot/clobauth/pkg/ratelimit"
)

const headerRequestID = "X-Request-Id"

type Config struct {
	Signer  signing.Signer
	Token   string
	Limiter *ratelimit.RateLimitManager
	Metrics *metrics.Metrics
}

// Server 远程签名服务：私钥只存在于本进程，调用方只拿到签名
type Server struct {
	signer  signing.Signer
	token   []byte
	limiter *ratelimit.RateLimitManager
	metrics *metrics.Metrics
	log     *logrus.Entry
}

// CheckListen 未配置 token 时只允许监听回环地址
func CheckListen(listen, token string) error {
	if token != "" {
		return nil
	}
	host, _, err := net.SplitHostPort(listen)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", listen, err)
	}
	if host == "localhost" {
		return nil
	}
	if addr, err := netip.ParseAddr(host); err == nil && addr.IsLoopback() {
		return nil
	}
	return fmt.Errorf("signerd.token is required when listening on %q (non-loopback)", listen)
}

func New(cfg Config) (*Server, error) {
	if cfg.Signer == nil {
		return nil, errors.New("signer is required")
	}
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.NewRateLimitManager()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Default()
	}
	return &Server{
		signer:  cfg.Signer,
		token:   []byte(cfg.Token),
		limiter: cfg.Limiter,
		metrics: cfg.Metrics,
		log:     logger.WithComponent("signerd").WithField("address", cfg.Signer.Address().Hex()),
	}, nil
}

func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID(), s.observe())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	v1 := r.Group("/v1", s.authorize(), s.rateLimit())
	v1.GET("/address", s.handleAddress)
	v1.POST("/sign", s.handleSign)
	return r
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		s.metrics.RecordHTTP(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// authorize 未配置 token 时不校验（仅用于本机回环监听）
func (s *Server) authorize() gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(s.token) == 0 {
			c.Next()
			return
		}
		got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), s.token) != 1 {
			s.log.WithField("request_id", c.GetString("request_id")).Warn("unauthorized request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Allow(ratelimit.KeySignerd) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limited"})
			return
		}
		c.Next()
	}
}

func (s *Server) handleAddress(c *gin.Context) {
	c.JSON(http.StatusOK, signing.RemoteAddressResponse{Address: s.signer.Address().Hex()})
}

func (s *Server) handleSign(c *gin.Context) {
	var req signing.RemoteSignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	hash, err := parseDigest(req.Hash)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sig, err := s.signer.SignHash(c.Request.Context(), hash)
	s.metrics.RecordSignature("remote", err)
	if err != nil {
		s.log.WithError(err).WithField("request_id", c.GetString("request_id")).Error("sign failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign failed"})
		return
	}
	s.log.WithFields(logrus.Fields{
		"request_id": c.GetString("request_id"),
		"digest":     req.Hash,
	}).Debug("digest signed")
	c.JSON(http.StatusOK, signing.RemoteSignResponse{Signature: "0x" + common.Bytes2Hex(sig)})
}

// parseDigest 只接受 0x 前缀的 32 字节十六进制
func parseDigest(s string) ([]byte, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, err
	}
	if len(b) != common.HashLength {
		return nil, errors.New("hash must be 32 bytes")
	}
	return b, nil
}
