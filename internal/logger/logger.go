package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
	"github.com/apex/log/handlers/multi"
	"github.com/apex/log/handlers/text"
	"github.com/rivo/tview"
)

type Logger struct {
	tag string
}

type manager struct {
	base    *log.Logger
	logFile *os.File
}

var (
	mu      sync.RWMutex
	current = &manager{base: &log.Logger{Handler: discard.New(), Level: log.DebugLevel}}
	once    sync.Once
)

// InitLogger wires the process-wide sinks. In dev mode messages go to the
// debug view, or to stderr when view is nil. When logPath is set every
// message is also appended to a timestamped file in that directory.
func InitLogger(dev bool, logPath string, view *tview.TextView) error {
	var initErr error
	once.Do(func() {
		var handlers []log.Handler
		if dev {
			if view != nil {
				handlers = append(handlers, &consoleHandler{w: view, colors: true})
			} else {
				handlers = append(handlers, &consoleHandler{w: os.Stderr})
			}
		}

		m := &manager{}
		if logPath != "" {
			timestamp := time.Now().Format("20060102_150405")
			filePath := filepath.Join(logPath, fmt.Sprintf("solver_log_%s.log", timestamp))

			file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				initErr = fmt.Errorf("open log file: %w", err)
				return
			}
			m.logFile = file
			handlers = append(handlers, text.New(file))
		}

		var h log.Handler = discard.New()
		if len(handlers) > 0 {
			h = multi.New(handlers...)
		}
		m.base = &log.Logger{Handler: h, Level: log.DebugLevel}

		mu.Lock()
		current = m
		mu.Unlock()
	})
	return initErr
}

func NewLogger(tag string) *Logger {
	return &Logger{tag: tag}
}

func (l *Logger) entry() *log.Entry {
	mu.RLock()
	base := current.base
	mu.RUnlock()
	return base.WithField("tag", l.tag)
}

func (l *Logger) Info(v ...interface{}) {
	l.entry().Info(fmt.Sprint(v...))
}

func (l *Logger) Infof(format string, v ...interface{}) {
	l.entry().Infof(format, v...)
}

func (l *Logger) Warn(v ...interface{}) {
	l.entry().Warn(fmt.Sprint(v...))
}

func (l *Logger) Error(v ...interface{}) {
	l.entry().Error(fmt.Sprint(v...))
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.entry().Errorf(format, v...)
}

// Close flushes and releases the log file, if any.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if current.logFile != nil {
		current.logFile.Close()
		current.logFile = nil
		current.base = &log.Logger{Handler: discard.New(), Level: log.DebugLevel}
	}
}

// consoleHandler renders entries one per line for a human watching the
// debug console.
type consoleHandler struct {
	mu     sync.Mutex
	w      io.Writer
	colors bool
}

func (h *consoleHandler) HandleLog(e *log.Entry) error {
	tag, _ := e.Fields["tag"].(string)
	msg := e.Message
	if h.colors {
		msg = tview.Escape(msg)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.colors {
		_, err := fmt.Fprintf(h.w, "%s %s (%s): %s\n", e.Timestamp.Format("15:04:05"), levelName(e.Level), tag, msg)
		return err
	}
	_, err := fmt.Fprintf(h.w, "[%s]%s (%s): %s[-]\n", levelColor(e.Level), levelName(e.Level), tag, msg)
	return err
}

func levelName(l log.Level) string {
	switch l {
	case log.DebugLevel:
		return "DEBUG"
	case log.InfoLevel:
		return "INFO"
	case log.WarnLevel:
		return "WARN"
	case log.ErrorLevel:
		return "ERROR"
	case log.FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func levelColor(l log.Level) string {
	switch l {
	case log.WarnLevel:
		return "yellow"
	case log.ErrorLevel, log.FatalLevel:
		return "red"
	default:
		return "green"
	}
}
