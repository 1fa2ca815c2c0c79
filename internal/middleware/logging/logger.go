package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Config struct {
	Enabled    bool      // Включено ли логирование
	Level      string    // DEBUG, INFO, WARN, ERROR, OFF
	LogsDir    string    // Директория для логов
	SavingDays uint      // Сколько дней хранить логи
	Output     io.Writer // Консольный вывод, по умолчанию os.Stdout
}

type Logger struct {
	config *Config
	base   *logrus.Logger
	file   *os.File
	prefix string

	stop      chan struct{}
	closeOnce *sync.Once
	writers   *[]*io.PipeWriter
	mu        *sync.Mutex
}

func NewLogger(cfg *Config, prefix string) *Logger {
	if cfg == nil {
		cfg = &Config{}
	}
	l := &Logger{
		config:    cfg,
		prefix:    prefix,
		stop:      make(chan struct{}),
		closeOnce: &sync.Once{},
		writers:   &[]*io.PipeWriter{},
		mu:        &sync.Mutex{},
	}

	var output io.Writer = os.Stdout
	if cfg.Output != nil {
		output = cfg.Output
	}

	level, enabled := parseLevel(cfg.Level)
	if !cfg.Enabled || !enabled {
		output = io.Discard
	} else if cfg.LogsDir != "" {
		if err := os.MkdirAll(cfg.LogsDir, 0755); err == nil {
			logFile := filepath.Join(cfg.LogsDir, time.Now().Format("2006-01-02")+".log")
			if file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
				l.file = file
				output = io.MultiWriter(output, file)
			}
		}
	}

	l.base = logrus.New()
	l.base.SetOutput(output)
	l.base.SetLevel(level)
	l.base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		DisableColors:   cfg.Output != nil || l.file != nil,
	})

	if cfg.Enabled && cfg.LogsDir != "" && cfg.SavingDays > 0 {
		go l.cleanOldLogs()
	}

	return l
}

// NewNop возвращает логгер, который ничего не пишет.
func NewNop() *Logger {
	return NewLogger(&Config{Enabled: false}, "")
}

func parseLevel(s string) (logrus.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none":
		return logrus.PanicLevel, false
	case "debug":
		return logrus.DebugLevel, true
	case "warn", "warning":
		return logrus.WarnLevel, true
	case "error":
		return logrus.ErrorLevel, true
	default:
		return logrus.InfoLevel, true // INFO по умолчанию
	}
}

func (l *Logger) WithPrefix(prefix string) *Logger {
	newPrefix := l.prefix
	if newPrefix != "" {
		newPrefix += " "
	}
	newPrefix += "[" + prefix + "]"

	clone := *l
	clone.prefix = newPrefix
	return &clone
}

func (l *Logger) cleanOldLogs() {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		l.removeExpired(time.Now())
		select {
		case <-l.stop:
			return
		case <-ticker.C:
		}
	}
}

func (l *Logger) removeExpired(now time.Time) {
	files, err := os.ReadDir(l.config.LogsDir)
	if err != nil {
		l.Error("Failed to read logs directory", "error", err)
		return
	}

	cutoff := now.AddDate(0, 0, int(-l.config.SavingDays))
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".log") {
			continue
		}
		if info, err := file.Info(); err == nil && info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(l.config.LogsDir, file.Name())); err != nil {
				l.Error("Failed to delete old log file", "file", file.Name(), "error", err)
			}
		}
	}
}

func (l *Logger) entry(fields []interface{}) *logrus.Entry {
	data := make(logrus.Fields, len(fields)/2+1)
	for i := 0; i < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		if i+1 >= len(fields) {
			data[key] = "?"
			continue
		}
		val := fields[i+1]
		if key == "error" {
			if err, ok := val.(error); ok {
				data[logrus.ErrorKey] = err
				continue
			}
		}
		data[key] = val
	}
	return l.base.WithFields(data)
}

func (l *Logger) message(msg string) string {
	if l.prefix == "" {
		return msg
	}
	return l.prefix + " " + msg
}

// Logrus возвращает базовый логгер logrus.
func (l *Logger) Logrus() *logrus.Logger { return l.base }

// ShouldLog сообщает, будет ли записано сообщение уровня level.
func (l *Logger) ShouldLog(level string) bool {
	if !l.config.Enabled {
		return false
	}
	lvl, enabled := parseLevel(level)
	return enabled && l.base.IsLevelEnabled(lvl)
}

func (l *Logger) Debug(msg string, fields ...interface{}) {
	l.entry(fields).Debug(l.message(msg))
}

func (l *Logger) Info(msg string, fields ...interface{}) {
	l.entry(fields).Info(l.message(msg))
}

func (l *Logger) Warn(msg string, fields ...interface{}) {
	l.entry(fields).Warn(l.message(msg))
}

func (l *Logger) Error(msg string, fields ...interface{}) {
	l.entry(fields).Error(l.message(msg))
}

// DebugWriter возвращает writer, каждая строка которого пишется на уровне DEBUG.
// Закрывается вместе с логгером.
func (l *Logger) DebugWriter() io.Writer {
	w := l.base.WithField("source", strings.Trim(l.prefix, "[] ")).WriterLevel(logrus.DebugLevel)
	l.mu.Lock()
	*l.writers = append(*l.writers, w)
	l.mu.Unlock()
	return w
}

func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.stop)
		l.mu.Lock()
		for _, w := range *l.writers {
			_ = w.Close()
		}
		*l.writers = nil
		l.mu.Unlock()
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}
