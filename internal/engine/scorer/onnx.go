package scorer

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/crimson-sun/reviewclf/internal/config"
)

// ErrModelShape is returned when an ONNX model does not have the expected
// input and output layout.
var ErrModelShape = errors.New("scorer: unexpected onnx model layout")

// ortEnv manages global ONNX Runtime initialization (process-wide singleton).
var ortEnv struct {
	once sync.Once
	err  error
}

// initORT initializes the ONNX Runtime environment. Only the first call has
// any effect.
func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// LibraryPath returns the runtime library location used when none is
// configured: libonnxruntime.so next to the model.
func LibraryPath(modelPath string) string {
	return filepath.Join(filepath.Dir(modelPath), "libonnxruntime.so")
}

// ONNX scores with an exported model: one integer or float input of shape
// [batch, MaxLen] and one float output of shape [batch, NumClasses]
// holding softmax probabilities.
type ONNX struct {
	mu         sync.Mutex
	session    *ort.DynamicAdvancedSession
	inputName  string
	inputType  ort.TensorElementDataType
	outputName string
	seqLen     int64
	classes    int64
}

// NewONNX loads modelPath. An empty libPath means LibraryPath(modelPath).
func NewONNX(modelPath, libPath string, c config.Contract) (*ONNX, error) {
	if libPath == "" {
		libPath = LibraryPath(modelPath)
	}
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}
	in, out, err := checkLayout(inputs, outputs, c)
	if err != nil {
		return nil, err
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(4)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(modelPath, []string{in.Name}, []string{out.Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}

	return &ONNX{
		session:    session,
		inputName:  in.Name,
		inputType:  in.DataType,
		outputName: out.Name,
		seqLen:     int64(c.MaxLen),
		classes:    int64(c.NumClasses),
	}, nil
}

// checkLayout validates the single input and output against the contract.
// Dynamic dimensions (-1) are accepted.
func checkLayout(inputs, outputs []ort.InputOutputInfo, c config.Contract) (ort.InputOutputInfo, ort.InputOutputInfo, error) {
	var none ort.InputOutputInfo
	if len(inputs) != 1 || len(outputs) != 1 {
		return none, none, fmt.Errorf("%w: %d inputs and %d outputs, want 1 and 1", ErrModelShape, len(inputs), len(outputs))
	}
	in, out := inputs[0], outputs[0]

	switch in.DataType {
	case ort.TensorElementDataTypeInt64, ort.TensorElementDataTypeInt32, ort.TensorElementDataTypeFloat:
	default:
		return none, none, fmt.Errorf("%w: input %q has element type %v", ErrModelShape, in.Name, in.DataType)
	}
	if out.DataType != ort.TensorElementDataTypeFloat {
		return none, none, fmt.Errorf("%w: output %q has element type %v", ErrModelShape, out.Name, out.DataType)
	}
	if !dimsMatch(in.Dimensions, int64(c.MaxLen)) {
		return none, none, fmt.Errorf("%w: input dims %v, want [batch %d]", ErrModelShape, in.Dimensions, c.MaxLen)
	}
	if !dimsMatch(out.Dimensions, int64(c.NumClasses)) {
		return none, none, fmt.Errorf("%w: output dims %v, want [batch %d]", ErrModelShape, out.Dimensions, c.NumClasses)
	}
	return in, out, nil
}

func dimsMatch(dims ort.Shape, last int64) bool {
	return len(dims) == 2 && (dims[1] == last || dims[1] < 0)
}

func (s *ONNX) Score(ids []int64) ([]float64, error) {
	out, err := s.ScoreBatch([][]int64{ids})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// ScoreBatch runs one inference call for the whole batch. Calls are
// serialized.
func (s *ONNX) ScoreBatch(batch [][]int64) ([][]float64, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	n := int64(len(batch))
	flat := make([]int64, 0, n*s.seqLen)
	for i, ids := range batch {
		if int64(len(ids)) != s.seqLen {
			return nil, fmt.Errorf("onnx: sequence %d has length %d, want %d", i, len(ids), s.seqLen)
		}
		flat = append(flat, ids...)
	}

	input, err := s.inputTensor(ort.NewShape(n, s.seqLen), flat)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create %s tensor: %w", s.inputName, err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(n, s.classes))
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create output tensor: %w", err)
	}
	defer output.Destroy()

	s.mu.Lock()
	err = s.session.Run([]ort.Value{input}, []ort.Value{output})
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("onnx: inference failed: %w", err)
	}

	data := output.GetData()
	probs := make([][]float64, n)
	for b := range probs {
		row := make([]float64, s.classes)
		for j := range row {
			row[j] = float64(data[int64(b)*s.classes+int64(j)])
		}
		probs[b] = row
	}
	return probs, nil
}

// inputTensor converts ids to the element type the model declares.
func (s *ONNX) inputTensor(shape ort.Shape, ids []int64) (ort.Value, error) {
	switch s.inputType {
	case ort.TensorElementDataTypeInt32:
		return ort.NewTensor(shape, convert[int32](ids))
	case ort.TensorElementDataTypeFloat:
		return ort.NewTensor(shape, convert[float32](ids))
	default:
		return ort.NewTensor(shape, ids)
	}
}

func convert[T int32 | float32](ids []int64) []T {
	out := make([]T, len(ids))
	for i, id := range ids {
		out[i] = T(id)
	}
	return out
}

// Close releases the session.
func (s *ONNX) Close() error {
	return s.session.Destroy()
}
