// Package script writes the advisor's action script: an append-only,
// flush-per-line sequence of CREATE INDEX / DROP INDEX statements.
// Flushing every line guarantees a timeout or crash leaves a valid,
// replayable prefix.
package script

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"indexadvisor/internal/schema"
)

// Writer owns the action script file for the lifetime of a run.
type Writer struct {
	w     *bufio.Writer
	close func() error
}

// Open creates (or truncates) path and writes a SQL-comment header
// identifying the run.
func Open(path string, runID uuid.UUID, workloadPath string, startedAt time.Time) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open action script: %w", err)
	}
	w := &Writer{w: bufio.NewWriter(f), close: f.Close}
	header := fmt.Sprintf("-- index advisor run %s\n-- workload: %s\n-- started: %s\n",
		runID, workloadPath, startedAt.Format(time.RFC3339))
	if _, err := w.w.WriteString(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write action script header: %w", err)
	}
	if err := w.w.Flush(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush action script header: %w", err)
	}
	return w, nil
}

// NewWithWriter wraps an arbitrary io.Writer (tests, stdout for
// -dry-run) without managing its lifecycle.
func NewWithWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w), close: func() error { return nil }}
}

func (w *Writer) WriteCreate(idx *schema.Index) error {
	return w.writeLine(idx.CreateStatement())
}

func (w *Writer) WriteDrop(idx *schema.Index) error {
	return w.writeLine(idx.DropStatement())
}

func (w *Writer) writeLine(stmt string) error {
	if _, err := w.w.WriteString(stmt + "\n"); err != nil {
		return fmt.Errorf("write action script line: %w", err)
	}
	return w.w.Flush()
}

func (w *Writer) Close() error {
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.close()
}
