package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/crimson-sun/reviewclf/internal/model"
	"github.com/crimson-sun/reviewclf/internal/output"
)

// Output writes JSON-encoded predictions to stdout or another stream.
type Output struct {
	mu     sync.Mutex
	enc    *json.Encoder
	format output.Format
}

// New creates a stdout Output with verbosity-aware field omission and
// optional pretty-printed JSON.
func New(format output.Format, pretty bool) *Output {
	return NewWriter(os.Stdout, format, pretty)
}

// NewWriter is New for an arbitrary stream.
func NewWriter(w io.Writer, format output.Format, pretty bool) *Output {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &Output{enc: enc, format: format}
}

func (o *Output) Write(_ context.Context, p model.Prediction) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.enc.Encode(output.FormatPrediction(p, o.format)); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
