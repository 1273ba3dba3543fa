package util

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	logFile   *os.File
	logFileMu sync.Mutex
	fileHook  *FileHook
)

// FileHook logrus Hook 实现，用于将日志写入文件
type FileHook struct {
	file      *os.File
	formatter logrus.Formatter
	mu        sync.Mutex
}

// Levels 返回 Hook 要处理的日志级别
func (hook *FileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire 写入日志到文件
func (hook *FileHook) Fire(entry *logrus.Entry) error {
	hook.mu.Lock()
	defer hook.mu.Unlock()

	if hook.file == nil {
		return nil
	}

	line, err := hook.formatter.Format(entry)
	if err != nil {
		return err
	}

	_, err = hook.file.Write(line)
	return err
}

// Close 关闭文件
func (hook *FileHook) Close() error {
	hook.mu.Lock()
	defer hook.mu.Unlock()

	if hook.file != nil {
		err := hook.file.Close()
		hook.file = nil
		return err
	}
	return nil
}

// InitLogger 初始化日志系统
func InitLogger() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.DateTime,
		CallerPrettyfier: func(frame *runtime.Frame) (function string, file string) {
			return frame.Function, ""
		},
	})
	logrus.SetReportCaller(true)
}

// InitLoggerWithFile 初始化日志系统并设置文件输出，返回日志文件路径
func InitLoggerWithFile(logDir string) (string, error) {
	logFileMu.Lock()
	defer logFileMu.Unlock()

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}

	today := time.Now().Format("20060102")
	logFilePath := filepath.Join(logDir, fmt.Sprintf("interactive-%s.log", today))
	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return "", fmt.Errorf("failed to open log file: %w", err)
	}

	logFile = file

	// 文件输出与控制台格式一致，但禁用颜色
	fileHook = &FileHook{
		file: file,
		formatter: &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.DateTime,
			DisableColors:   true,
			CallerPrettyfier: func(frame *runtime.Frame) (function string, file string) {
				return frame.Function, ""
			},
		},
	}
	logrus.AddHook(fileHook)
	logrus.SetLevel(logrus.InfoLevel)

	return logFilePath, nil
}

// CloseLogFile 关闭日志文件
func CloseLogFile() error {
	logFileMu.Lock()
	defer logFileMu.Unlock()

	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		return err
	}
	return nil
}
