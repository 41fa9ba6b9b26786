package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// WriteDaily appends to a file per day: ${Dir}/YYYY-MM-DD.txt
// All methods are safe to call on nil receiver, which makes them no-ops.
type WriteDaily struct {
	Dir string
	// for tests, time.Now if nil
	now func() time.Time

	currentDay int // YYYYMMDD
	file       *os.File
	mu         sync.Mutex
}

func NewWriteDaily(dir string) *WriteDaily {
	return &WriteDaily{
		Dir: dir,
	}
}

// dayFromTime converts t to YYYYMMDD
func dayFromTime(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

func (w *WriteDaily) timeNow() time.Time {
	if w.now != nil {
		return w.now().UTC()
	}
	return time.Now().UTC()
}

// mu must be held
func (w *WriteDaily) writer() (io.Writer, error) {
	now := w.timeNow()
	today := dayFromTime(now)

	if w.file != nil && w.currentDay != today {
		if err := w.close(); err != nil {
			return nil, err
		}
	}
	if w.file != nil {
		return w.file, nil
	}

	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return nil, err
	}
	path := filepath.Join(w.Dir, now.Format("2006-01-02")+".txt")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	w.file = f
	w.currentDay = today
	return f, nil
}

// Path returns path of the currently open file, "" if no file is open
func (w *WriteDaily) Path() string {
	if w == nil {
		return ""
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return ""
	}
	return w.file.Name()
}

func (w *WriteDaily) Write(d []byte) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	wr, err := w.writer()
	if err != nil {
		return err
	}
	_, err = wr.Write(d)
	return err
}

func (w *WriteDaily) WriteString(s string) error {
	return w.Write([]byte(s))
}

// mu must be held
func (w *WriteDaily) close() error {
	if w.file == nil {
		return nil
	}
	errSync := w.file.Sync()
	errClose := w.file.Close()
	w.file = nil
	w.currentDay = 0
	if errSync != nil {
		return fmt.Errorf("sync: %w", errSync)
	}
	return errClose
}

func (w *WriteDaily) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.close()
}
