package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

var (
	mu        sync.Mutex
	out       io.Writer = os.Stdout
	log       *WriteDaily
	eventsLog *WriteDaily

	// if true, Verbosef() will log messages
	Verbose bool
)

type Config struct {
	// directory where log files are stored
	// regular logs go to ${Dir}/log, events to ${Dir}/events
	// if empty, we only log to Out
	Dir string
	// where Logf() also prints, os.Stdout if nil
	Out io.Writer
	// called for every Logf() call
	OnLog func(s string)
}

var onLog func(s string)

// Init initializes the logging system. Can be called again to re-configure,
// which closes previously opened log files.
func Init(config *Config) {
	Close()
	mu.Lock()
	defer mu.Unlock()
	out = os.Stdout
	if config.Out != nil {
		out = config.Out
	}
	onLog = config.OnLog
	if config.Dir != "" {
		log = NewWriteDaily(filepath.Join(config.Dir, "log"))
		// files are created on first write so it's a no-op
		// if there are no events
		eventsLog = NewWriteDaily(filepath.Join(config.Dir, "events"))
	}
}

func closeWriteDaily(wd **WriteDaily) {
	if *wd == nil {
		return
	}
	_ = (*wd).Close()
	*wd = nil
}

// Close closes log files. Logf() still prints to Out afterwards.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeWriteDaily(&log)
	closeWriteDaily(&eventsLog)
}

func Logf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	mu.Lock()
	w, fn, wd := out, onLog, log
	mu.Unlock()

	fmt.Fprint(w, s)
	_ = wd.WriteString(s)
	if fn != nil {
		fn(s)
	}
}

func Verbosef(format string, args ...any) {
	if !Verbose {
		return
	}
	Logf(format, args...)
}

func GetCallstackFrames(skip int) []string {
	var callers [32]uintptr
	n := runtime.Callers(skip+1, callers[:])
	if n == 0 {
		return nil
	}
	frames := runtime.CallersFrames(callers[:n])
	var cs []string
	for {
		frame, more := frames.Next()
		cs = append(cs, frame.File+":"+strconv.Itoa(frame.Line))
		if !more {
			break
		}
	}
	return cs
}

func GetCallstack(skip int) string {
	frames := GetCallstackFrames(skip + 1)
	return strings.Join(frames, "\n")
}

// Errorf logs an error message along with the callstack
func Errorf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	cs := GetCallstack(2)
	Logf("%s\n%s\n", strings.TrimSuffix(s, "\n"), cs)
}

// if err != nil, log and return true
// IfErrf(err) => logs err.Error()
// IfErrf(err, "error is: %v", err) => logs message formatted
func IfErrf(err error, a ...any) bool {
	if err == nil {
		return false
	}
	if len(a) == 0 {
		Errorf("%s", err.Error())
		return true
	}
	s, ok := a[0].(string)
	if !ok {
		s = fmt.Sprintf("%s", a[0])
	}
	if len(a) > 1 {
		s = fmt.Sprintf(s, a[1:]...)
	}
	Errorf("%s", s)
	return true
}
