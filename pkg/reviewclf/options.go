package reviewclf

import (
	"log/slog"
	"path/filepath"

	"github.com/crimson-sun/reviewclf/internal/config"
)

type options struct {
	modelDir      string
	modelPath     string
	tokenizerPath string
	onnxPath      string
	onnxLibPath   string
	logger        *slog.Logger
}

// Option configures a Classifier.
type Option func(*options)

// WithModelDir sets the directory containing the trained artifacts.
// Expects: lecture_model.safetensors, tokenizer.json.
func WithModelDir(dir string) Option {
	return func(o *options) {
		o.modelDir = dir
	}
}

// WithModelPaths sets explicit paths for the model and the tokenizer.
// Use this when the files aren't in the default directory layout.
func WithModelPaths(model, tokenizer string) Option {
	return func(o *options) {
		o.modelPath = model
		o.tokenizerPath = tokenizer
	}
}

// WithONNXModel scores with an exported ONNX model through ONNX Runtime
// instead of the native safetensors model. An empty libPath looks for
// libonnxruntime.so next to the model.
func WithONNXModel(model, libPath string) Option {
	return func(o *options) {
		o.onnxPath = model
		o.onnxLibPath = libPath
	}
}

// WithLogger sets the logger for load-time messages. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func defaultOptions() options {
	return options{}
}

// resolvePaths determines the model and tokenizer paths from the
// configured options. Explicit paths take precedence over modelDir.
func resolvePaths(o options) (model, tokenizer string) {
	dir := o.modelDir
	if dir == "" {
		dir = "models"
	}
	model, tokenizer = o.modelPath, o.tokenizerPath
	if model == "" {
		model = filepath.Join(dir, config.ModelFile)
	}
	if tokenizer == "" {
		tokenizer = filepath.Join(dir, config.TokenizerFile)
	}
	return model, tokenizer
}
