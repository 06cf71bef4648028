package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger 全局日誌實例，InitLogger 之前為 no-op
	Logger = zap.NewNop()
	// LogMode 為 "concise" 時只輸出 conciseMessages 中的 info 日誌
	LogMode string

	levelColors = map[zapcore.Level]string{
		zapcore.DebugLevel: "\033[36m",
		zapcore.InfoLevel:  "\033[32m",
		zapcore.WarnLevel:  "\033[33m",
		zapcore.ErrorLevel: "\033[31m",
		zapcore.FatalLevel: "\033[35m",
	}
	resetColor = "\033[0m"
)

// LogOptions 日誌設定
type LogOptions struct {
	Level   string
	Dir     string // 空字串時只輸出到終端
	Mode    string
	Service string
}

// concise 模式下仍輸出的訊息
var conciseMessages = map[string]bool{
	"請求完成":                    true,
	"餐單生成完成":                  true,
	"啟動應用":                    true,
	"Shutting down server...": true,
	"Server exited":           true,
}

// 丟棄的欄位
var droppedFields = map[string]bool{
	"embedding": true,
	"vector":    true,
}

// 非 debug 時截斷的長文字欄位
var truncatedFields = map[string]bool{
	"prompt":       true,
	"raw_response": true,
	"raw_output":   true,
	"context":      true,
}

const truncatedFieldRunes = 300

func getEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    customLevelEncoder,
		EncodeTime:     customTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}

func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05.000"))
}

// 固定三字元級別並加上顏色
func customLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	level := l.String()
	switch l {
	case zapcore.DebugLevel:
		level = "DBG"
	case zapcore.InfoLevel:
		level = "INF"
	case zapcore.WarnLevel:
		level = "WRN"
	case zapcore.ErrorLevel:
		level = "ERR"
	case zapcore.FatalLevel:
		level = "FAT"
	}
	enc.AppendString(levelColors[l] + level + resetColor)
}

// ParseLevel 未知級別視為 info
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// InitLogger 初始化日誌系統：終端彩色輸出，設定 Dir 時另寫 JSON 檔
func InitLogger(opts LogOptions) error {
	level := ParseLevel(opts.Level)
	if opts.Service == "" {
		opts.Service = "promo-meal-planner"
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(getEncoderConfig()), zapcore.AddSync(os.Stdout), level),
	}

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		logFile, err := os.OpenFile(filepath.Join(opts.Dir, "app.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(getEncoderConfig()), zapcore.AddSync(logFile), level))
	}

	SetLogger(zap.New(zapcore.NewTee(cores...),
		zap.AddCallerSkip(1),
		zap.Fields(zap.String("service", opts.Service)),
	), opts.Mode)
	return nil
}

// SetLogger 替換全局 logger
func SetLogger(l *zap.Logger, mode string) {
	if l == nil {
		l = zap.NewNop()
	}
	Logger = l
	LogMode = strings.ToLower(strings.TrimSpace(mode))
	zap.ReplaceGlobals(l)
}

// filterFields 丟棄向量欄位；非 debug 時截斷 prompt 與模型輸出
func filterFields(fields []zap.Field) []zap.Field {
	debug := Logger.Core().Enabled(zapcore.DebugLevel)
	out := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		if droppedFields[field.Key] {
			continue
		}
		if !debug && truncatedFields[field.Key] && field.Type == zapcore.StringType {
			if cut, truncated := TruncateRunes(field.String, truncatedFieldRunes); truncated {
				field = zap.String(field.Key, cut+"...")
			}
		}
		out = append(out, field)
	}
	return out
}

// LogInfo 記錄信息日誌
func LogInfo(msg string, fields ...zap.Field) {
	if LogMode == "concise" && !conciseMessages[msg] {
		return
	}
	Logger.Info(msg, filterFields(fields)...)
}

// LogError 記錄錯誤日誌
func LogError(msg string, fields ...zap.Field) {
	Logger.Error(msg, filterFields(fields)...)
}

// LogWarn 記錄警告日誌
func LogWarn(msg string, fields ...zap.Field) {
	Logger.Warn(msg, filterFields(fields)...)
}

// LogDebug 記錄調試日誌
func LogDebug(msg string, fields ...zap.Field) {
	Logger.Debug(msg, filterFields(fields)...)
}

// LogFatal 記錄致命錯誤日誌
func LogFatal(msg string, fields ...zap.Field) {
	Logger.Fatal(msg, filterFields(fields)...)
}

// Sync 同步日誌緩衝
func Sync() {
	_ = Logger.Sync()
}

// LogCacheLookup 記錄翻譯/改寫快取查詢
func LogCacheLookup(namespace string, hit bool) {
	if hit {
		LogDebug("快取命中", zap.String("namespace", namespace))
		return
	}
	LogDebug("快取未命中", zap.String("namespace", namespace))
}

// LogStage 記錄規劃階段耗時
func LogStage(stage string, d time.Duration, requestID string) {
	LogDebug("規劃階段完成",
		zap.String("stage", stage),
		zap.Duration("耗時", d),
		zap.String("request_id", requestID),
	)
}

// LogAICall 記錄 AI 調用
func LogAICall(operation string, duration time.Duration, err error, requestID string) {
	if err != nil {
		LogError("AI 請求失敗",
			zap.String("operation", operation),
			zap.Error(err),
			zap.Duration("耗時", duration),
			zap.String("request_id", requestID),
		)
		return
	}
	LogInfo("AI 請求成功",
		zap.String("operation", operation),
		zap.Duration("耗時", duration),
		zap.String("request_id", requestID),
	)
}
