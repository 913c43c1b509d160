package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"keeper/pkg/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ServiceName 写入每条日志的服务名
const ServiceName = "keeper"

var Logger = logrus.New()

type fieldsKey struct{}

// Initialize 初始化全局日志
func Initialize(cfg *config.Config) error {
	l, err := New(cfg.Log, os.Stdout)
	if err != nil {
		return err
	}
	Logger = l
	return nil
}

// New 按配置创建日志实例，配置了文件路径时同时写入轮转文件
func New(cfg config.LogConfig, console io.Writer) (*logrus.Logger, error) {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	l.AddHook(serviceHook{})

	out := console
	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return nil, err
		}
		out = io.MultiWriter(console, &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
	}
	l.SetOutput(out)
	return l, nil
}

// GetLogger 获取日志实例
func GetLogger() *logrus.Logger {
	return Logger
}

// WithFields 把字段附加到 context，之后 FromContext 取出的日志都会带上
func WithFields(ctx context.Context, fields logrus.Fields) context.Context {
	merged := logrus.Fields{}
	if prev, ok := ctx.Value(fieldsKey{}).(logrus.Fields); ok {
		for k, v := range prev {
			merged[k] = v
		}
	}
	for k, v := range fields {
		merged[k] = v
	}
	return context.WithValue(ctx, fieldsKey{}, merged)
}

// FromContext 返回带有请求字段（request_id、user_id 等）的日志条目
func FromContext(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(Logger)
	if ctx == nil {
		return entry
	}
	if fields, ok := ctx.Value(fieldsKey{}).(logrus.Fields); ok {
		entry = entry.WithFields(fields)
	}
	return entry
}

type serviceHook struct{}

func (serviceHook) Levels() []logrus.Level { return logrus.AllLevels }

func (serviceHook) Fire(e *logrus.Entry) error {
	if _, ok := e.Data["service"]; !ok {
		e.Data["service"] = ServiceName
	}
	return nil
}
