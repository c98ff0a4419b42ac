package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/naughtyden-us/naughty-den/pkg/state/logger"
	"github.com/naughtyden-us/naughty-den/pkg/timeutil"
)

// PanicReport is one recovered panic, appended as a json line.
type PanicReport struct {
	Timestamp time.Time `json:"timestamp"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	Value     string    `json:"value"`
	Stack     string    `json:"stack"`
}

type PanicWriter struct {
	mu          sync.Mutex
	basePath    string
	current     *os.File
	currentDate string
}

func NewPanicWriter(basePath string) *PanicWriter {
	return &PanicWriter{basePath: basePath}
}

func (pw *PanicWriter) Write(r PanicReport) error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.basePath == "" {
		return fmt.Errorf("panic writer has no base path")
	}
	if err := os.MkdirAll(pw.basePath, 0o700); err != nil {
		return fmt.Errorf("failed to create crash directory: %w", err)
	}

	date := r.Timestamp.Format("2006-01-02")
	if pw.currentDate != date || pw.current == nil {
		if pw.current != nil {
			pw.current.Close()
		}
		name := filepath.Join(pw.basePath, fmt.Sprintf("panics_%s.jsonl", date))
		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open panic file: %w", err)
		}
		pw.current = f
		pw.currentDate = date
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal panic report: %w", err)
	}
	if _, err := pw.current.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write panic report: %w", err)
	}
	return nil
}

func (pw *PanicWriter) Close() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	if pw.current != nil {
		err := pw.current.Close()
		pw.current = nil
		return err
	}
	return nil
}

// Crash writes a crash dump to the crash folder and terminates the process.
func Crash(reason string, err error) {
	crashDir := PathsVar.Crash
	if crashDir == "" {
		logger.Error("crash_path_not_initialized", "reason", reason, "error", err)
		os.Exit(1)
	}
	if e := os.MkdirAll(crashDir, 0o700); e != nil {
		logger.Error("failed_to_create_crash_dir", "error", e, "reason", reason)
		os.Exit(1)
	}

	now := timeutil.Now()
	dumpPath := filepath.Join(crashDir, fmt.Sprintf("crash-%d.log", now.UnixNano()))
	f, ferr := os.Create(dumpPath)
	if ferr != nil {
		logger.Error("failed_to_create_crash_dump", "error", ferr, "reason", reason)
		os.Exit(1)
	}
	defer f.Close()

	fmt.Fprintf(f, "time: %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(f, "reason: %s\n", reason)
	if err != nil {
		fmt.Fprintf(f, "error: %v\n", err)
	}
	fmt.Fprintf(f, "\n--- goroutine stacks ---\n")
	buf := make([]byte, 1<<20)
	n := runtime.Stack(buf, true)
	f.Write(buf[:n])

	logger.Error("crash_dump_written_exiting", "path", dumpPath, "reason", reason, "error", err)
	os.Exit(1)
}
