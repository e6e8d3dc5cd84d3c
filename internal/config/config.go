package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Artifact file names, relative to Paths.ModelDir.
const (
	ModelFile      = "lecture_model.safetensors"
	CheckpointFile = "lecture_model_best.safetensors"
	TokenizerFile  = "tokenizer.json"
	ReportFile     = "training_report.yaml"
)

// EnvPrefix is prepended to every environment override, e.g.
// REVIEWCLF_TRAINING_EPOCHS.
const EnvPrefix = "REVIEWCLF"

// Contract is the encoding and labeling agreement shared by training and
// inference. It is persisted inside the tokenizer artifact so a loaded model
// always encodes text exactly as it was trained.
type Contract struct {
	VocabSize  int    `mapstructure:"vocabSize" json:"vocab_size" yaml:"vocab_size"`
	MaxLen     int    `mapstructure:"maxLen" json:"max_len" yaml:"max_len"`
	NumClasses int    `mapstructure:"numClasses" json:"num_classes" yaml:"num_classes"`
	OOVToken   string `mapstructure:"oovToken" json:"oov_token" yaml:"oov_token"`
}

// DefaultContract returns the contract the shipped models are trained with.
func DefaultContract() Contract {
	return Contract{
		VocabSize:  20000,
		MaxLen:     100,
		NumClasses: 5,
		OOVToken:   "<OOV>",
	}
}

// Validate reports whether the contract can drive an encoder and a model.
func (c Contract) Validate() error {
	var errs []error
	if c.VocabSize < 2 {
		errs = append(errs, fmt.Errorf("vocab size %d must leave room for padding and OOV ids", c.VocabSize))
	}
	if c.MaxLen < 1 {
		errs = append(errs, fmt.Errorf("max len %d must be positive", c.MaxLen))
	}
	if c.NumClasses < 2 {
		errs = append(errs, fmt.Errorf("num classes %d must be at least 2", c.NumClasses))
	}
	if c.OOVToken == "" {
		errs = append(errs, errors.New("oov token must not be empty"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: invalid contract: %w", errors.Join(errs...))
	}
	return nil
}

// Config holds all reviewclf configuration.
type Config struct {
	Contract Contract       `mapstructure:"contract"`
	Paths    PathsConfig    `mapstructure:"paths"`
	Training TrainingConfig `mapstructure:"training"`
	Log      LogConfig      `mapstructure:"log"`
}

// PathsConfig locates the dataset and the artifact directory. Relative paths
// are resolved against BaseDir.
type PathsConfig struct {
	BaseDir  string `mapstructure:"baseDir"`
	DataPath string `mapstructure:"dataPath"`
	ModelDir string `mapstructure:"modelDir"`
	Table    string `mapstructure:"table"` // SQLite datasets only
}

// TrainingConfig holds the fitting recipe.
type TrainingConfig struct {
	Seed            int64   `mapstructure:"seed" yaml:"seed"`
	TestFraction    float64 `mapstructure:"testFraction" yaml:"test_fraction"`
	ValidationSplit float64 `mapstructure:"validationSplit" yaml:"validation_split"`
	Epochs          int     `mapstructure:"epochs" yaml:"epochs"`
	BatchSize       int     `mapstructure:"batchSize" yaml:"batch_size"`
	Patience        int     `mapstructure:"patience" yaml:"patience"`
	LearningRate    float64 `mapstructure:"learningRate" yaml:"learning_rate"`
	EmbeddingDim    int     `mapstructure:"embeddingDim" yaml:"embedding_dim"`
	LSTMUnits       int     `mapstructure:"lstmUnits" yaml:"lstm_units"`
	DenseUnits      int     `mapstructure:"denseUnits" yaml:"dense_units"`
	Dropout         float64 `mapstructure:"dropout" yaml:"dropout"`
	EvalWorkers     int     `mapstructure:"evalWorkers" yaml:"eval_workers"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// Default returns the configuration used when no file or env override is set.
func Default() Config {
	return Config{
		Contract: DefaultContract(),
		Paths: PathsConfig{
			BaseDir:  ".",
			DataPath: filepath.Join("data", "reviews_extended.csv"),
			ModelDir: "models",
			Table:    "reviews",
		},
		Training: TrainingConfig{
			Seed:            42,
			TestFraction:    0.2,
			ValidationSplit: 0.2,
			Epochs:          30,
			BatchSize:       8,
			Patience:        5,
			LearningRate:    1e-3,
			EmbeddingDim:    128,
			LSTMUnits:       64,
			DenseUnits:      64,
			Dropout:         0.5,
			EvalWorkers:     4,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads configuration from an optional YAML file and environment
// variables on top of Default. An empty configPath searches for
// reviewclf.yaml in the working directory; a missing file is not an error
// in that case.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("reviewclf")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("contract.vocabSize", d.Contract.VocabSize)
	v.SetDefault("contract.maxLen", d.Contract.MaxLen)
	v.SetDefault("contract.numClasses", d.Contract.NumClasses)
	v.SetDefault("contract.oovToken", d.Contract.OOVToken)

	v.SetDefault("paths.baseDir", d.Paths.BaseDir)
	v.SetDefault("paths.dataPath", d.Paths.DataPath)
	v.SetDefault("paths.modelDir", d.Paths.ModelDir)
	v.SetDefault("paths.table", d.Paths.Table)

	v.SetDefault("training.seed", d.Training.Seed)
	v.SetDefault("training.testFraction", d.Training.TestFraction)
	v.SetDefault("training.validationSplit", d.Training.ValidationSplit)
	v.SetDefault("training.epochs", d.Training.Epochs)
	v.SetDefault("training.batchSize", d.Training.BatchSize)
	v.SetDefault("training.patience", d.Training.Patience)
	v.SetDefault("training.learningRate", d.Training.LearningRate)
	v.SetDefault("training.embeddingDim", d.Training.EmbeddingDim)
	v.SetDefault("training.lstmUnits", d.Training.LSTMUnits)
	v.SetDefault("training.denseUnits", d.Training.DenseUnits)
	v.SetDefault("training.dropout", d.Training.Dropout)
	v.SetDefault("training.evalWorkers", d.Training.EvalWorkers)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.json", d.Log.JSON)
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	if err := c.Contract.Validate(); err != nil {
		return err
	}
	t := c.Training
	switch {
	case t.TestFraction <= 0 || t.TestFraction >= 1:
		return fmt.Errorf("config: test fraction %v must be in (0,1)", t.TestFraction)
	case t.ValidationSplit < 0 || t.ValidationSplit >= 1:
		return fmt.Errorf("config: validation split %v must be in [0,1)", t.ValidationSplit)
	case t.Epochs < 1:
		return fmt.Errorf("config: epochs %d must be positive", t.Epochs)
	case t.BatchSize < 1:
		return fmt.Errorf("config: batch size %d must be positive", t.BatchSize)
	case t.Patience < 1:
		return fmt.Errorf("config: patience %d must be positive", t.Patience)
	case t.LearningRate <= 0:
		return fmt.Errorf("config: learning rate %v must be positive", t.LearningRate)
	case t.Dropout < 0 || t.Dropout >= 1:
		return fmt.Errorf("config: dropout %v must be in [0,1)", t.Dropout)
	}
	return nil
}

// Resolve joins p onto BaseDir unless it is already absolute.
func (p PathsConfig) Resolve(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.BaseDir, rel)
}

// Dataset returns the resolved dataset path.
func (p PathsConfig) Dataset() string { return p.Resolve(p.DataPath) }

// Models returns the resolved artifact directory.
func (p PathsConfig) Models() string { return p.Resolve(p.ModelDir) }

// ModelPath returns the canonical classifier artifact path.
func (p PathsConfig) ModelPath() string { return filepath.Join(p.Models(), ModelFile) }

// CheckpointPath returns the best-checkpoint artifact path.
func (p PathsConfig) CheckpointPath() string { return filepath.Join(p.Models(), CheckpointFile) }

// TokenizerPath returns the vocabulary artifact path.
func (p PathsConfig) TokenizerPath() string { return filepath.Join(p.Models(), TokenizerFile) }

// ReportPath returns the training report path.
func (p PathsConfig) ReportPath() string { return filepath.Join(p.Models(), ReportFile) }
