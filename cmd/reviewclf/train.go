package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/reviewclf/internal/trainer"
)

func newTrainCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Fit the tokenizer and classifier and write the model artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := trainer.New(a.cfg, a.logger).Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: test accuracy %.4f, sentiment accuracy %.4f\n",
				report.RunID, report.Test.Accuracy, report.Test.SentimentAccuracy)
			return nil
		},
	}
}
