package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(orig) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultContract(), cfg.Contract)
	assert.Equal(t, 20000, cfg.Contract.VocabSize)
	assert.Equal(t, 100, cfg.Contract.MaxLen)
	assert.Equal(t, 5, cfg.Contract.NumClasses)
	assert.Equal(t, "<OOV>", cfg.Contract.OOVToken)

	assert.Equal(t, int64(42), cfg.Training.Seed)
	assert.Equal(t, 0.2, cfg.Training.TestFraction)
	assert.Equal(t, 0.2, cfg.Training.ValidationSplit)
	assert.Equal(t, 30, cfg.Training.Epochs)
	assert.Equal(t, 8, cfg.Training.BatchSize)
	assert.Equal(t, 5, cfg.Training.Patience)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "reviews", cfg.Paths.Table)
}

func TestLoad_File(t *testing.T) {
	dir := chdirTemp(t)

	content := `
training:
  epochs: 3
  batchSize: 2
paths:
  baseDir: /srv/reviews
log:
  level: debug
  json: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reviewclf.yaml"), []byte(content), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Training.Epochs)
	assert.Equal(t, 2, cfg.Training.BatchSize)
	assert.Equal(t, 5, cfg.Training.Patience, "unset keys keep defaults")
	assert.Equal(t, "/srv/reviews", cfg.Paths.BaseDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, filepath.Join("/srv/reviews", "models", ModelFile), cfg.Paths.ModelPath())
}

func TestLoad_EnvOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("REVIEWCLF_TRAINING_EPOCHS", "7")
	t.Setenv("REVIEWCLF_PATHS_BASEDIR", "/opt/lecture")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Training.Epochs)
	assert.Equal(t, "/opt/lecture", cfg.Paths.BaseDir)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	chdirTemp(t)

	_, err := Load("does-not-exist.yaml")
	require.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("training:\n  testFraction: 1.5\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test fraction")
}

func TestContractValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Contract)
		wantErr bool
	}{
		{"default", func(*Contract) {}, false},
		{"tiny vocab", func(c *Contract) { c.VocabSize = 1 }, true},
		{"zero len", func(c *Contract) { c.MaxLen = 0 }, true},
		{"one class", func(c *Contract) { c.NumClasses = 1 }, true},
		{"no oov", func(c *Contract) { c.OOVToken = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultContract()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPathsResolve(t *testing.T) {
	p := Default().Paths
	p.BaseDir = "/base"

	assert.Equal(t, filepath.Join("/base", "data", "reviews_extended.csv"), p.Dataset())
	assert.Equal(t, filepath.Join("/base", "models", TokenizerFile), p.TokenizerPath())
	assert.Equal(t, filepath.Join("/base", "models", CheckpointFile), p.CheckpointPath())
	assert.Equal(t, filepath.Join("/base", "models", ReportFile), p.ReportPath())
	assert.Equal(t, "/abs/data.csv", p.Resolve("/abs/data.csv"))
}
