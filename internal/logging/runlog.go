// Package logging provides the application logger and the per-test run
// logs. A run log is the human-readable trail of one test attempt: what
// was asked, what was answered, what went wrong. It is the file the
// operator reads, as opposed to the structured log the developer reads.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"
)

const timestampLayout = "02-01-2006|15:04:05"

// Characters that cannot appear in file names on any platform we run on.
var reUnsafe = regexp.MustCompile(`[\\/:*?"<>|]+`)

// RunLog writes the event trail of one test to its own file.
type RunLog struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// Open creates a trail file named after the student and the discipline in
// dir, numbering it past any earlier attempts.
func Open(dir, student, discipline string) (*RunLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run log directory: %w", err)
	}
	base := sanitize(student) + "-" + sanitize(discipline)
	for n := 1; ; n++ {
		path := filepath.Join(dir, fmt.Sprintf("%s-%d.log", base, n))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create run log: %w", err)
		}
		return &RunLog{f: f, path: path}, nil
	}
}

// Line appends one timestamped line to the trail.
func (l *RunLog) Line(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return
	}
	fmt.Fprintf(l.f, "%s %s\n", time.Now().Format(timestampLayout),
		fmt.Sprintf(format, args...))
}

// Path returns the location of the trail file.
func (l *RunLog) Path() string { return l.path }

func (l *RunLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

func sanitize(name string) string {
	name = reUnsafe.ReplaceAllString(name, "_")
	if name == "" {
		return "unknown"
	}
	return name
}
