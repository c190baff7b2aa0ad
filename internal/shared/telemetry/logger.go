package telemetry

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Levels in increasing severity. Lines below the configured level are dropped.
const (
	LevelDebug = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"debug", "info", "warn", "error"}

var (
	mu       sync.Mutex
	out      io.Writer = os.Stdout
	minLevel           = LevelInfo
)

// SetOutput redirects log lines and returns a func restoring the previous writer.
func SetOutput(w io.Writer) func() {
	mu.Lock()
	defer mu.Unlock()
	prev := out
	out = w
	return func() {
		mu.Lock()
		out = prev
		mu.Unlock()
	}
}

// SetLevel sets the minimum level by name. Unknown names select info.
func SetLevel(name string) {
	level := LevelInfo
	for i, n := range levelNames {
		if strings.EqualFold(strings.TrimSpace(name), n) {
			level = i
		}
	}
	mu.Lock()
	minLevel = level
	mu.Unlock()
}

func Debug(msg string, fields map[string]any) { write(LevelDebug, msg, fields) }

// Info writes an info-level log line with the given fields.
func Info(msg string, fields map[string]any) { write(LevelInfo, msg, fields) }

func Warn(msg string, fields map[string]any) { write(LevelWarn, msg, fields) }

// Error writes an error-level log line with the given fields.
func Error(msg string, fields map[string]any) { write(LevelError, msg, fields) }

// write emits one JSON object per line. ts, level and msg win over fields
// with the same names.
func write(level int, msg string, fields map[string]any) {
	mu.Lock()
	defer mu.Unlock()
	if level < minLevel {
		return
	}

	ts := time.Now().UTC().Format(time.RFC3339)
	entry := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		entry[k] = v
	}
	entry["ts"], entry["level"], entry["msg"] = ts, levelNames[level], msg

	data, err := json.Marshal(entry)
	if err != nil {
		data, _ = json.Marshal(map[string]string{"ts": ts, "level": "error", "msg": "logger marshal failed", "err": err.Error(), "dropped": msg})
	}
	out.Write(append(data, '\n'))
}
