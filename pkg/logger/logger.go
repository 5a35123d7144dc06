package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Logger 全局日志实例
	Logger = logrus.New()
	logMu  sync.Mutex
	closer io.Closer
)

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" json:"level"`             // debug, info, warn, error
	OutputFile string `yaml:"output_file" json:"output_file"` // 为空则只输出到控制台
	MaxSize    int    `yaml:"max_size" json:"max_size"`       // MB
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"` // 天
	Compress   bool   `yaml:"compress" json:"compress"`
	JSON       bool   `yaml:"json" json:"json"`
}

// Init 初始化日志系统
func Init(config Config) error {
	logMu.Lock()
	defer logMu.Unlock()

	l := logrus.New()
	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if config.JSON {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "06-01-02 15:04:05", // 格式: yy-mm-dd HH:MM:ss
		})
	}

	writers := []io.Writer{os.Stdout}
	var newCloser io.Closer
	if config.OutputFile != "" {
		if dir := filepath.Dir(config.OutputFile); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		if config.MaxSize == 0 {
			config.MaxSize = 100
		}
		if config.MaxBackups == 0 {
			config.MaxBackups = 7
		}
		if config.MaxAge == 0 {
			config.MaxAge = 30
		}
		rotator := &lumberjack.Logger{
			Filename:   config.OutputFile,
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
			Compress:   config.Compress,
		}
		writers = append(writers, rotator)
		newCloser = rotator
	}
	l.SetOutput(io.MultiWriter(writers...))

	if closer != nil {
		_ = closer.Close()
	}
	closer = newCloser
	Logger = l
	return nil
}

// Close 关闭日志文件
func Close() error {
	logMu.Lock()
	defer logMu.Unlock()
	if closer == nil {
		return nil
	}
	err := closer.Close()
	closer = nil
	return err
}

// WithComponent 返回带组件名的日志入口
func WithComponent(name string) *logrus.Entry {
	logMu.Lock()
	l := Logger
	logMu.Unlock()
	return l.WithField("component", name)
}

// MaskSecret 只保留首尾各 4 个字符，用于 API key 之类的标识
func MaskSecret(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

// Debugf 调试日志
func Debugf(format string, args ...interface{}) { WithComponent("app").Debugf(format, args...) }

// Infof 信息日志
func Infof(format string, args ...interface{}) { WithComponent("app").Infof(format, args...) }

// Warnf 警告日志
func Warnf(format string, args ...interface{}) { WithComponent("app").Warnf(format, args...) }

// Errorf 错误日志
func Errorf(format string, args ...interface{}) { WithComponent("app").Errorf(format, args...) }
