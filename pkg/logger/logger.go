package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogInfo 日志实例, With 產生的子 logger 共用同一個 debug 開關
type LogInfo struct {
	log   *zap.Logger
	debug *atomic.Bool
}

var (
	// Log 日志实例
	Log *LogInfo
)

// Initialize 按日期分文件的日志初始化
//
//	INFO, ERROR: JSON 到 stdout 與 log_YYYY-MM-DD.log
//	WARN:        console 到 stdout
//	DEBUG:       console 到 stdout, 只在 SetDebugMode(true) 後輸出
func Initialize(serviceName, logDir string) *LogInfo {
	if logDir == "" {
		logDir = "./log"
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		panic(fmt.Sprintf("Failed to create log directory: %v", err))
	}
	file := openDailyFile(logDir, time.Now())

	l := &LogInfo{debug: new(atomic.Bool)}
	jsonEnc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	consoleEnc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	stdout := zapcore.Lock(os.Stdout)

	core := zapcore.NewTee(
		levelCore(jsonEnc, zapcore.NewMultiWriteSyncer(stdout, file), func(lv zapcore.Level) bool {
			return lv == zapcore.InfoLevel || lv >= zapcore.ErrorLevel
		}),
		levelCore(consoleEnc, stdout, func(lv zapcore.Level) bool {
			return lv == zapcore.WarnLevel
		}),
		levelCore(consoleEnc, stdout, func(lv zapcore.Level) bool {
			return lv == zapcore.DebugLevel && l.debug.Load()
		}),
	)

	l.log = zap.New(core,
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.Fields(zap.String("service", serviceName)),
	)
	return l
}

func levelCore(enc zapcore.Encoder, ws zapcore.WriteSyncer, enabled func(zapcore.Level) bool) zapcore.Core {
	return zapcore.NewCore(enc, ws, zap.LevelEnablerFunc(enabled))
}

// openDailyFile 開啟 (或建立) 當天的 log 檔
func openDailyFile(logDir string, day time.Time) zapcore.WriteSyncer {
	path := filepath.Join(logDir, "log_"+day.Format("2006-01-02")+".log")
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		panic(fmt.Sprintf("Failed to open or create log file: %v", err))
	}
	return zapcore.AddSync(file)
}

// SetNewNop replace the global logger with a no-op logger (tests)
func SetNewNop() {
	Log = &LogInfo{log: zap.NewNop(), debug: new(atomic.Bool)}
}

// With 帶固定欄位的子 logger, 例如一條 websocket 連線的 chat_id/user_id
func (l *LogInfo) With(fields ...zap.Field) *LogInfo {
	return &LogInfo{log: l.log.With(fields...), debug: l.debug}
}

// SetDebugMode set the log debug mode
func (l *LogInfo) SetDebugMode(status bool) {
	l.debug.Store(status)
}

// IsDebugMode report whether debug output is enabled
func (l *LogInfo) IsDebugMode() bool {
	return l.debug.Load()
}

// Info 输出 INFO 级别日志
func (l *LogInfo) Info(msg string, fields ...zap.Field) {
	l.log.Info(msg, fields...)
}

// Error 输出 ERROR 级别日志
func (l *LogInfo) Error(msg string, fields ...zap.Field) {
	l.log.Error(msg, fields...)
}

// Errorf msg 後面接 err, 給不想另外組 zap.Error 的呼叫端
func (l *LogInfo) Errorf(msg string, err error, fields ...zap.Field) {
	l.log.Error(fmt.Sprintf("%s %v", msg, err), fields...)
}

// Debug 输出 DEBUG 级别日志
func (l *LogInfo) Debug(msg string, fields ...zap.Field) {
	l.log.Debug(msg, fields...)
}

// Warn 输出 WARN 级别日志
func (l *LogInfo) Warn(msg string, fields ...zap.Field) {
	l.log.Warn(msg, fields...)
}

// Sync 刷新日志缓冲区
func (l *LogInfo) Sync() {
	if err := l.log.Sync(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to sync logger: %v\n", err)
	}
}

// Fatal 输出错误日志并退出程序
func (l *LogInfo) Fatal(msg string, fields ...zap.Field) {
	l.log.Error(msg, fields...)
	l.Sync()
	os.Exit(1)
}
