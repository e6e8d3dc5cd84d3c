package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/reviewclf/internal/config"
	"github.com/crimson-sun/reviewclf/internal/engine"
	"github.com/crimson-sun/reviewclf/internal/logging"
)

// app carries state shared by every subcommand once the root command has
// loaded the configuration.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "reviewclf",
		Short:         "Rate Korean lecture reviews from 1 to 5",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if a.logLevel != "" {
				cfg.Log.Level = a.logLevel
			}
			a.cfg = cfg
			a.logger = logging.Init(cmd.ErrOrStderr(), cfg.Log)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default ./reviewclf.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	root.AddCommand(newTrainCmd(a), newPredictCmd(a), newEvaluateCmd(a))
	return root
}

// artifacts returns the configured artifact locations, with an ONNX model
// replacing the native one when onnxModel is set.
func (a *app) artifacts(onnxModel, onnxLib string) engine.Artifacts {
	return engine.Artifacts{
		Model:       a.cfg.Paths.ModelPath(),
		Tokenizer:   a.cfg.Paths.TokenizerPath(),
		ONNXModel:   onnxModel,
		ONNXLibrary: onnxLib,
	}
}
