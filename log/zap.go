package log

import (
	"os"
	"path/filepath"
	"strings"

	"autocut/internal/appdirs"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LevelEnv overrides the console log level (debug, info, warn, error).
const LevelEnv = "AUTOCUT_LOG_LEVEL"

const logFileName = "autocut.log"

var Logger *zap.Logger

var appDirsResolver = appdirs.Resolve

// InitLogger writes JSON debug logs to the log file and human-readable logs
// to stderr; stdout stays free for command output such as `autocut run`.
func InitLogger() {
	path, err := ResolveLogFilePath()
	if err != nil {
		panic("无法解析日志目录: " + err.Error())
	}
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		panic("无法创建日志目录: " + err.Error())
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		panic("无法打开日志文件: " + err.Error())
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	Logger = zap.New(zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(file), zap.DebugLevel),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stderr), consoleLevel(os.Getenv(LevelEnv))),
	), zap.AddCaller())
}

func consoleLevel(raw string) zapcore.Level {
	level, err := zapcore.ParseLevel(strings.TrimSpace(raw))
	if err != nil || raw == "" {
		return zap.InfoLevel
	}
	return level
}

func ResolveLogDir() (string, error) {
	dirs, err := appDirsResolver()
	if err != nil {
		return "", err
	}
	if logDir := strings.TrimSpace(dirs.LogDir); logDir != "" {
		return logDir, nil
	}
	return ".", nil
}

func ResolveLogFilePath() (string, error) {
	logDir, err := ResolveLogDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(logDir, logFileName), nil
}

// GetLogger returns a no-op logger until InitLogger has run, so packages can
// log from tests without initializing the file sink.
func GetLogger() *zap.Logger {
	if Logger == nil {
		return zap.NewNop()
	}
	return Logger
}

// ForJob scopes the logger to one pipeline job.
func ForJob(jobID string) *zap.Logger {
	return GetLogger().With(zap.String("job_id", jobID))
}
