// Package telemetry logs what the connector does and keeps named counters.
// Counters are only reported through log messages.
package telemetry

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var (
	logger = log.New(stampedWriter{out: os.Stdout}, "", 0)
	trace  atomic.Bool

	counterLock sync.Mutex
	counters    = make(map[string]int)
)

// stampedWriter prefixes every line with a UTC timestamp.
type stampedWriter struct {
	out io.Writer
}

func (w stampedWriter) Write(line []byte) (int, error) {
	return fmt.Fprint(w.out, time.Now().UTC().Format("2006-01-02 15:04:05")+" "+string(line))
}

// SetOutput redirects log lines, mostly so tests can capture them.
func SetOutput(w io.Writer) {
	logger.SetOutput(stampedWriter{out: w})
}

// SetTrace turns wire level logging on or off.
func SetTrace(on bool) {
	trace.Store(on)
}

func Log(format string, args ...any) {
	logger.Println(fmt.Sprintf(format, args...))
}

// Trace logs only when tracing is on.
func Trace(format string, args ...any) {
	if trace.Load() {
		Log(format, args...)
	}
}

// Error logs a failure and counts it under "errors".
func Error(err error, format string, args ...any) {
	logger.Println("ERROR", fmt.Sprintf(format, args...), fmt.Sprintf("[%v]", err))
	Increment("errors", 1)
}

// Fragment shortens a wire payload for logging.
func Fragment(b []byte) string {
	const max = 300
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}

// Increment increases a count, thread-safe
func Increment(name string, n int) {
	counterLock.Lock()
	defer counterLock.Unlock()
	counters[name] += n
}

func GetCounter(name string) int {
	counterLock.Lock()
	defer counterLock.Unlock()
	return counters[name]
}

// LogCounters writes all counters on one line, sorted by name.
func LogCounters() {
	counterLock.Lock()
	s := make([]string, 0, len(counters))
	for k, v := range counters {
		s = append(s, fmt.Sprintf("%s=%d", k, v))
	}
	counterLock.Unlock()
	if len(s) == 0 {
		Log("no counters were recorded")
		return
	}
	sort.Strings(s)
	Log("%s", strings.Join(s, ", "))
}
