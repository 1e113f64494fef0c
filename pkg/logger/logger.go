package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOption 日志初始化参数
type LogOption struct {
	Format   string // "console" 或 "json"
	LogDir   string // 日志目录，为空时只输出到 stderr
	Level    string // debug / info / warn / error
	Compress bool   // 是否压缩轮转后的旧日志
}

const (
	logFileName   = "escrow.log"
	maxSizeMB     = 200
	maxBackups    = 10
	maxAgeDays    = 7
	defaultLevel  = zapcore.InfoLevel
	defaultFormat = "console"
)

var sugar atomic.Pointer[zap.SugaredLogger]

func init() {
	// 未调用 Init 前使用 stderr console 输出，保证测试与工具命令可直接打印
	sugar.Store(newSugar(buildEncoder(defaultFormat), zapcore.Lock(os.Stderr), defaultLevel))
}

// Init 按配置初始化全局日志
func Init(opt LogOption) error {
	level, err := parseLevel(opt.Level)
	if err != nil {
		return err
	}

	format := opt.Format
	if format == "" {
		format = defaultFormat
	}

	writers := []zapcore.WriteSyncer{zapcore.Lock(os.Stderr)}
	if opt.LogDir != "" {
		if err := os.MkdirAll(opt.LogDir, 0o755); err != nil {
			return fmt.Errorf("create log dir %s: %w", opt.LogDir, err)
		}
		writers = append(writers, zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(opt.LogDir, logFileName),
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   opt.Compress,
			LocalTime:  true,
		}))
	}

	sugar.Store(newSugar(buildEncoder(format), zapcore.NewMultiWriteSyncer(writers...), level))
	return nil
}

func newSugar(enc zapcore.Encoder, ws zapcore.WriteSyncer, level zapcore.Level) *zap.SugaredLogger {
	core := zapcore.NewCore(enc, ws, zap.NewAtomicLevelAt(level))
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

func buildEncoder(format string) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	if strings.EqualFold(format, "json") {
		return zapcore.NewJSONEncoder(cfg)
	}
	return zapcore.NewConsoleEncoder(cfg)
}

func parseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return defaultLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return defaultLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

func Debugf(format string, args ...interface{}) {
	sugar.Load().Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	sugar.Load().Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	sugar.Load().Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	sugar.Load().Errorf(format, args...)
}

// Sync 刷新缓冲，进程退出前调用
func Sync() {
	_ = sugar.Load().Sync()
}
