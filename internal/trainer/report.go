package trainer

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/crimson-sun/reviewclf/internal/config"
	"github.com/crimson-sun/reviewclf/internal/engine/network"
	"github.com/crimson-sun/reviewclf/internal/fileutil"
)

// EpochStats is one row of the training history. Epochs are 1-based.
type EpochStats struct {
	Epoch        int     `yaml:"epoch"`
	Loss         float64 `yaml:"loss"`
	Accuracy     float64 `yaml:"accuracy"`
	ValLoss      float64 `yaml:"val_loss"`
	ValAccuracy  float64 `yaml:"val_accuracy"`
	Checkpointed bool    `yaml:"checkpointed,omitempty"`
}

// SplitSizes counts the records in every partition.
type SplitSizes struct {
	Loaded     int `yaml:"loaded"`
	Dropped    int `yaml:"dropped"`
	Train      int `yaml:"train"`
	Validation int `yaml:"validation"`
	Test       int `yaml:"test"`
}

// Artifacts lists the files a run wrote.
type Artifacts struct {
	Model      string `yaml:"model"`
	Checkpoint string `yaml:"checkpoint,omitempty"`
	Tokenizer  string `yaml:"tokenizer"`
}

// Report describes one training run. It is written next to the model as
// training_report.yaml.
type Report struct {
	RunID        string                `yaml:"run_id"`
	StartedAt    time.Time             `yaml:"started_at"`
	FinishedAt   time.Time             `yaml:"finished_at"`
	Dataset      string                `yaml:"dataset"`
	Contract     config.Contract       `yaml:"contract"`
	Training     config.TrainingConfig `yaml:"training"`
	Architecture network.Architecture  `yaml:"architecture"`
	Params       int                   `yaml:"params"`
	Vocabulary   int                   `yaml:"vocabulary"`
	Split        SplitSizes            `yaml:"split"`
	History      []EpochStats          `yaml:"history"`
	BestEpoch    int                   `yaml:"best_epoch,omitempty"`
	StoppedEarly bool                  `yaml:"stopped_early"`
	Test         Metrics               `yaml:"test"`
	Artifacts    Artifacts             `yaml:"artifacts"`
}

// WriteReport saves r as YAML.
func WriteReport(path string, r *Report) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("trainer: encode report: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("trainer: write report: %w", err)
	}
	return nil
}

// ReadReport loads a report written by WriteReport.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("trainer: %w", err)
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("trainer: parse report %s: %w", path, err)
	}
	return &r, nil
}
