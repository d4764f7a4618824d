package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// 日志级别
const (
	LevelDebug = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Logger 简单的分级日志器，输出到标准输出，配置了目录时同时写文件
type Logger struct {
	level  int
	logger *log.Logger
}

// NewLogger 创建日志器实例
func NewLogger(levelName, logDir, logFile string) (*Logger, error) {
	var writers []io.Writer
	writers = append(writers, os.Stdout)

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, fmt.Errorf("创建日志目录失败: %v", err)
		}
		if logFile == "" {
			logFile = "server.log"
		}
		f, err := os.OpenFile(filepath.Join(logDir, logFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("打开日志文件失败: %v", err)
		}
		writers = append(writers, f)
	}

	return &Logger{
		level:  parseLevel(levelName),
		logger: log.New(io.MultiWriter(writers...), "", log.LstdFlags),
	}, nil
}

func parseLevel(name string) int {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return LevelDebug
	case "WARN":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l *Logger) output(level int, tag, format string, args ...interface{}) {
	if l == nil || level < l.level {
		return
	}
	l.logger.Printf("[%s] %s", tag, fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.output(LevelDebug, "DEBUG", format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.output(LevelInfo, "INFO", format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.output(LevelWarn, "WARN", format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.output(LevelError, "ERROR", format, args...)
}
