// Package scorer turns encoded sequences into class probabilities.
package scorer

import (
	"fmt"

	"github.com/crimson-sun/reviewclf/internal/config"
	"github.com/crimson-sun/reviewclf/internal/engine/network"
)

// Scorer returns one probability per class for each encoded sequence.
// Implementations are safe for concurrent use.
type Scorer interface {
	Score(ids []int64) ([]float64, error)
	ScoreBatch(batch [][]int64) ([][]float64, error)
	Close() error
}

// Native scores with the in-process network.
type Native struct {
	net *network.Network
}

// NewNative wraps net after checking it was built for contract c.
func NewNative(net *network.Network, c config.Contract) (*Native, error) {
	if err := net.Architecture().Matches(c); err != nil {
		return nil, fmt.Errorf("scorer: %w", err)
	}
	return &Native{net: net}, nil
}

// LoadNative reads a safetensors model artifact.
func LoadNative(path string, c config.Contract) (*Native, error) {
	net, err := network.Load(path)
	if err != nil {
		return nil, fmt.Errorf("scorer: %w", err)
	}
	return NewNative(net, c)
}

// Network exposes the wrapped model.
func (s *Native) Network() *network.Network {
	return s.net
}

func (s *Native) Score(ids []int64) ([]float64, error) {
	return s.net.Predict(ids)
}

func (s *Native) ScoreBatch(batch [][]int64) ([][]float64, error) {
	return s.net.PredictBatch(batch)
}

func (s *Native) Close() error {
	return nil
}
