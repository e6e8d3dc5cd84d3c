package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/reviewclf/internal/engine"
	"github.com/crimson-sun/reviewclf/internal/output"
	"github.com/crimson-sun/reviewclf/internal/output/file"
	"github.com/crimson-sun/reviewclf/internal/output/multi"
	"github.com/crimson-sun/reviewclf/internal/output/stdout"
	"github.com/crimson-sun/reviewclf/internal/pipeline"
)

// predictBatch caps how many reviews are scored per engine call.
const predictBatch = 64

type predictOptions struct {
	input     string
	out       string
	maxSize   int64
	tee       bool
	verbosity string
	korean    bool
	pretty    bool
	onnxModel string
	onnxLib   string
}

func newPredictCmd(a *app) *cobra.Command {
	var opts predictOptions
	cmd := &cobra.Command{
		Use:   "predict [text...]",
		Short: "Rate reviews and print one NDJSON prediction per review",
		Long: "Each argument is one review. Without arguments reviews are read one per\n" +
			"line from --input, or from stdin. Blank lines are skipped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(cmd, a, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "read reviews from this file, one per line (- for stdin)")
	f.StringVarP(&opts.out, "out", "o", "", "append predictions to this file instead of stdout")
	f.Int64Var(&opts.maxSize, "max-size", 0, "rotate --out once it reaches this many bytes (0 disables)")
	f.BoolVar(&opts.tee, "tee", false, "with --out, also print predictions to stdout")
	f.StringVar(&opts.verbosity, "verbosity", "full", "fields to emit: minimal, standard or full")
	f.BoolVar(&opts.korean, "korean", false, "print sentiment as 부정/중립/긍정")
	f.BoolVar(&opts.pretty, "pretty", false, "indent stdout JSON")
	f.StringVar(&opts.onnxModel, "onnx", "", "score with this ONNX model instead of the safetensors artifact")
	f.StringVar(&opts.onnxLib, "onnx-lib", "", "onnxruntime shared library (default: next to the ONNX model)")
	return cmd
}

func runPredict(cmd *cobra.Command, a *app, opts predictOptions, args []string) (err error) {
	if len(args) > 0 && opts.input != "" {
		return errors.New("predict: pass reviews as arguments or --input, not both")
	}

	eng, err := engine.Load(a.artifacts(opts.onnxModel, opts.onnxLib))
	if err != nil {
		return err
	}
	defer eng.Close()

	out, err := openOutput(cmd.OutOrStdout(), opts)
	if err != nil {
		return err
	}
	p := pipeline.New(eng, out, pipeline.WithBatchSize(predictBatch), pipeline.WithLogger(a.logger))
	defer func() {
		if cerr := p.Close(); err == nil {
			err = cerr
		}
	}()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if len(args) > 0 {
		_, err = p.Run(ctx, args)
		return err
	}

	r := cmd.InOrStdin()
	if opts.input != "" && opts.input != "-" {
		f, err := os.Open(opts.input)
		if err != nil {
			return fmt.Errorf("predict: %w", err)
		}
		defer f.Close()
		r = f
	}
	lines, readErr := pipeline.Lines(ctx, r)
	n, err := p.Stream(ctx, lines)
	if err != nil {
		return err
	}
	a.logger.Debug("predictions written", "count", n)
	return readErr()
}

func openOutput(w io.Writer, opts predictOptions) (output.Output, error) {
	v, err := output.ParseVerbosity(opts.verbosity)
	if err != nil {
		return nil, err
	}
	format := output.Format{Verbosity: v, Korean: opts.korean}
	console := stdout.NewWriter(w, format, opts.pretty)
	if opts.out == "" {
		if opts.tee || opts.maxSize > 0 {
			return nil, errors.New("predict: --tee and --max-size need --out")
		}
		return console, nil
	}

	fo, err := file.New(opts.out, format, file.WithMaxSize(opts.maxSize))
	if err != nil {
		return nil, err
	}
	if opts.tee {
		return multi.New(console, fo), nil
	}
	return fo, nil
}
