package network

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/crimson-sun/reviewclf/internal/fileutil"
)

// ErrArtifact wraps every model file decoding failure.
var ErrArtifact = errors.New("network: bad model artifact")

const (
	metadataKey = "__metadata__"
	formatName  = "reviewclf"
)

type tensorMeta struct {
	Dtype       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets [2]int `json:"data_offsets"`
}

// Marshal encodes the network as a safetensors file: an 8-byte little-endian
// header length, a JSON header, then F32 little-endian tensor data. The
// architecture is kept in the header metadata so the file is
// self-describing.
func (n *Network) Marshal() ([]byte, error) {
	arch, err := json.Marshal(n.arch)
	if err != nil {
		return nil, err
	}
	header := map[string]any{
		metadataKey: map[string]string{
			"format":       formatName,
			"architecture": string(arch),
		},
	}

	var data bytes.Buffer
	offset := 0
	for _, p := range n.Params() {
		r, c := p.Shape()
		shape := []int{r, c}
		if r == 1 {
			shape = []int{c}
		}
		size := r * c * 4
		header[p.Name] = tensorMeta{Dtype: "F32", Shape: shape, DataOffsets: [2]int{offset, offset + size}}
		offset += size

		var buf [4]byte
		for _, v := range p.W.RawMatrix().Data {
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(float32(v)))
			data.Write(buf[:])
		}
	}

	hdr, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	// Pad the header with spaces so tensor data starts 8-byte aligned.
	if rem := len(hdr) % 8; rem != 0 {
		hdr = append(hdr, bytes.Repeat([]byte(" "), 8-rem)...)
	}

	out := make([]byte, 8, 8+len(hdr)+data.Len())
	binary.LittleEndian.PutUint64(out, uint64(len(hdr)))
	out = append(out, hdr...)
	out = append(out, data.Bytes()...)
	return out, nil
}

// Save writes the model artifact to path.
func (n *Network) Save(path string) error {
	data, err := n.Marshal()
	if err != nil {
		return fmt.Errorf("network: encode: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("network: write %s: %w", path, err)
	}
	return nil
}

// Load reads a model artifact written by Save.
func Load(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("network: %w", err)
	}
	n, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

// Unmarshal decodes a safetensors model. F32 and F64 tensors are accepted.
func Unmarshal(data []byte) (*Network, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: file too small: %d bytes", ErrArtifact, len(data))
	}
	headerLen := binary.LittleEndian.Uint64(data[:8])
	if uint64(len(data)-8) < headerLen {
		return nil, fmt.Errorf("%w: header length %d exceeds file size", ErrArtifact, headerLen)
	}
	body := data[8+headerLen:]

	var header map[string]json.RawMessage
	if err := json.Unmarshal(data[8:8+headerLen], &header); err != nil {
		return nil, fmt.Errorf("%w: parse header: %v", ErrArtifact, err)
	}

	var meta map[string]string
	if raw, ok := header[metadataKey]; ok {
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("%w: metadata: %v", ErrArtifact, err)
		}
	}
	if meta["format"] != formatName {
		return nil, fmt.Errorf("%w: metadata format %q, want %q", ErrArtifact, meta["format"], formatName)
	}
	var arch Architecture
	if err := json.Unmarshal([]byte(meta["architecture"]), &arch); err != nil {
		return nil, fmt.Errorf("%w: architecture: %v", ErrArtifact, err)
	}

	n, err := allocate(arch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifact, err)
	}
	for _, p := range n.Params() {
		raw, ok := header[p.Name]
		if !ok {
			return nil, fmt.Errorf("%w: tensor %q missing", ErrArtifact, p.Name)
		}
		var tm tensorMeta
		if err := json.Unmarshal(raw, &tm); err != nil {
			return nil, fmt.Errorf("%w: tensor %q: %v", ErrArtifact, p.Name, err)
		}
		if err := readTensor(p, tm, body); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func readTensor(p *Param, tm tensorMeta, body []byte) error {
	r, c := p.Shape()
	count := 1
	for _, d := range tm.Shape {
		count *= d
	}
	if count != r*c {
		return fmt.Errorf("%w: tensor %q shape %v, want %d values", ErrArtifact, p.Name, tm.Shape, r*c)
	}

	var width int
	switch tm.Dtype {
	case "F32":
		width = 4
	case "F64":
		width = 8
	default:
		return fmt.Errorf("%w: tensor %q dtype %s not supported", ErrArtifact, p.Name, tm.Dtype)
	}
	start, end := tm.DataOffsets[0], tm.DataOffsets[1]
	if start < 0 || end > len(body) || end-start != count*width {
		return fmt.Errorf("%w: tensor %q data range [%d:%d] invalid", ErrArtifact, p.Name, start, end)
	}

	dst := p.W.RawMatrix().Data
	for i := range dst {
		off := start + i*width
		if width == 4 {
			dst[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(body[off : off+4])))
		} else {
			dst[i] = math.Float64frombits(binary.LittleEndian.Uint64(body[off : off+8]))
		}
	}
	return nil
}
