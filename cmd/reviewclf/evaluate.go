package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/crimson-sun/reviewclf/internal/dataset"
	"github.com/crimson-sun/reviewclf/internal/engine"
	"github.com/crimson-sun/reviewclf/internal/trainer"
)

func newEvaluateCmd(a *app) *cobra.Command {
	var onnxModel, onnxLib string
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Re-score the held-out split with the saved artifacts",
		Long: "Reloads the dataset, repeats the seeded stratified split used by train\n" +
			"and scores its test part with the saved tokenizer and model.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			paths := a.cfg.Paths

			ds, err := dataset.Load(ctx, paths.Dataset(), paths.Table)
			if err != nil {
				return err
			}
			split, err := dataset.StratifiedSplit(ds.Records, a.cfg.Training.TestFraction, a.cfg.Training.Seed)
			if err != nil {
				return err
			}

			eng, err := engine.Load(a.artifacts(onnxModel, onnxLib))
			if err != nil {
				return err
			}
			defer eng.Close()

			x := eng.Encode(dataset.Texts(split.Test))
			m, err := trainer.Evaluate(ctx, eng.Scorer(), x, dataset.Classes(split.Test), a.cfg.Training.EvalWorkers)
			if err != nil {
				return err
			}
			a.logger.Info("evaluation finished", "samples", m.Samples, "accuracy", m.Accuracy)

			out, err := yaml.Marshal(m)
			if err != nil {
				return fmt.Errorf("evaluate: encode metrics: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVar(&onnxModel, "onnx", "", "score with this ONNX model instead of the safetensors artifact")
	cmd.Flags().StringVar(&onnxLib, "onnx-lib", "", "onnxruntime shared library (default: next to the ONNX model)")
	return cmd
}
