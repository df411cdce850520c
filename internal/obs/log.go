package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"
)

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the shared structured logger used across the module.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// LogError emits a structured JSON log line for a server-side error.
// Security-boundary code calls this before masking the underlying cause.
func LogError(scope string, err error) {
	if err == nil {
		return
	}
	LogEvent("error", map[string]any{
		"level": "error",
		"scope": scope,
		"error": err.Error(),
	})
}

// LogEvent emits a structured JSON log line with arbitrary fields.
func LogEvent(event string, fields map[string]any) {
	entry := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"event": event,
	}
	for k, v := range fields {
		entry[k] = v
	}
	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(`{"level":"error","msg":"log marshal failed"}`)
		return
	}
	Logger().Println(string(data))
}
