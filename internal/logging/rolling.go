package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"

	"squill/internal/version"
)

// LogDirEnv overrides the directory rotated log files are written to. The
// daemon reads it once at start.
const LogDirEnv = "SQUILL_LOG_PATH"

const (
	// DefaultFilePrefix is the rotated log filename prefix.
	DefaultFilePrefix = "server.log"
	// DefaultMaxFiles caps how many rotated files are retained.
	DefaultMaxFiles = 7

	// hourStamp is the rotation suffix layout, one file per hour.
	hourStamp = "2006-01-02-15"
)

// DefaultLogDir resolves the daemon log directory: the SQUILL_LOG_PATH
// override when set, otherwise a tool-managed directory under the user
// cache dir.
func DefaultLogDir() string {
	if dir := os.Getenv(LogDirEnv); dir != "" {
		return dir
	}
	return filepath.Join(xdg.CacheHome, version.Tool+"-logs")
}

// RollingWriter is an io.Writer that appends to hourly-rotated files named
// <prefix>.<yyyy-MM-dd-HH> under a fixed directory, pruning the oldest
// files once more than maxFiles exist. Safe for concurrent use.
type RollingWriter struct {
	dir      string
	prefix   string
	maxFiles int
	now      func() time.Time

	mu   sync.Mutex
	file *os.File
	hour time.Time
}

// NewRollingWriter creates the log directory and returns a writer rotating
// on hourly boundaries. A maxFiles of 0 or less falls back to the default
// retention of 7 files.
func NewRollingWriter(dir, prefix string, maxFiles int) (*RollingWriter, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("rolling writer requires a directory")
	}
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultFilePrefix
	}
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	return &RollingWriter{
		dir:      dir,
		prefix:   prefix,
		maxFiles: maxFiles,
		now:      time.Now,
	}, nil
}

func (w *RollingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Truncate(time.Hour)
	if w.file == nil || !hour.Equal(w.hour) {
		if err := w.rotate(hour); err != nil {
			return 0, err
		}
	}
	return w.file.Write(p)
}

// Close closes the current file. Subsequent writes reopen it.
func (w *RollingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *RollingWriter) rotate(hour time.Time) error {
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
	name := fmt.Sprintf("%s.%s", w.prefix, hour.Format(hourStamp))
	file, err := os.OpenFile(filepath.Join(w.dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", name, err)
	}
	w.file = file
	w.hour = hour
	w.prune()
	return nil
}

// prune removes the oldest rotated files beyond the retention cap. The
// hourly suffix sorts lexicographically, so name order is age order.
func (w *RollingWriter) prune() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	var rotated []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), w.prefix+".") {
			rotated = append(rotated, entry.Name())
		}
	}
	if len(rotated) <= w.maxFiles {
		return
	}
	sort.Strings(rotated)
	for _, name := range rotated[:len(rotated)-w.maxFiles] {
		_ = os.Remove(filepath.Join(w.dir, name))
	}
}
