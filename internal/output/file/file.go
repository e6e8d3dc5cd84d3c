// Package file appends NDJSON predictions to a file, rotating it by size.
package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/crimson-sun/reviewclf/internal/model"
	"github.com/crimson-sun/reviewclf/internal/output"
)

const (
	defaultBufSize = 64 * 1024
	defaultBackups = 9
)

// Option configures a file Output.
type Option func(*Output)

// WithMaxSize rotates the file once a write would take it past bytes.
// 0 disables rotation.
func WithMaxSize(bytes int64) Option {
	return func(o *Output) { o.maxSize = bytes }
}

// WithMaxBackups sets how many rotated files ({path}.1 is the newest) are
// kept. Default: 9.
func WithMaxBackups(n int) Option {
	return func(o *Output) {
		if n > 0 {
			o.backups = n
		}
	}
}

// WithBufSize sets the write buffer size. Default: 64KB.
func WithBufSize(bytes int) Option {
	return func(o *Output) { o.bufSize = bytes }
}

// Output is a buffered NDJSON file sink. Safe for concurrent use.
type Output struct {
	path    string
	format  output.Format
	maxSize int64
	backups int
	bufSize int

	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	size int64 // bytes in the current file, buffered ones included
}

// New opens path for appending, creating it and its directory if needed.
func New(path string, format output.Format, opts ...Option) (*Output, error) {
	o := &Output{
		path:    path,
		format:  format,
		backups: defaultBackups,
		bufSize: defaultBufSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("file output: %w", err)
	}
	if err := o.open(); err != nil {
		return nil, err
	}
	return o, nil
}

// Write appends the formatted prediction as one line.
func (o *Output) Write(_ context.Context, p model.Prediction) error {
	line, err := encodeLine(output.FormatPrediction(p, o.format))
	if err != nil {
		return fmt.Errorf("file output: marshal: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.maxSize > 0 && o.size > 0 && o.size+int64(len(line)) > o.maxSize {
		if err := o.rotate(); err != nil {
			return fmt.Errorf("file output: rotate: %w", err)
		}
	}
	n, err := o.w.Write(line)
	o.size += int64(n)
	if err != nil {
		return fmt.Errorf("file output: write: %w", err)
	}
	return nil
}

// Close flushes buffered lines and closes the file.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	flushErr := o.w.Flush()
	closeErr := o.f.Close()
	if flushErr != nil {
		return fmt.Errorf("file output: flush: %w", flushErr)
	}
	return closeErr
}

// encodeLine renders r the way the stdout sink does: one line, HTML
// characters left unescaped.
func encodeLine(r output.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (o *Output) open() error {
	f, err := os.OpenFile(o.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("file output: open %s: %w", o.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("file output: stat %s: %w", o.path, err)
	}
	o.f, o.w, o.size = f, bufio.NewWriterSize(f, o.bufSize), info.Size()
	return nil
}

// rotate moves the current file to {path}.1, shifting older backups up and
// dropping the one past the limit, then reopens path empty.
func (o *Output) rotate() error {
	if err := o.w.Flush(); err != nil {
		return err
	}
	if err := o.f.Close(); err != nil {
		return err
	}

	if err := os.Remove(o.backup(o.backups)); err != nil && !os.IsNotExist(err) {
		return err
	}
	for i := o.backups - 1; i >= 1; i-- {
		if err := os.Rename(o.backup(i), o.backup(i+1)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	if err := os.Rename(o.path, o.backup(1)); err != nil {
		return err
	}
	return o.open()
}

func (o *Output) backup(i int) string {
	return fmt.Sprintf("%s.%d", o.path, i)
}
