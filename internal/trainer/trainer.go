// Package trainer fits the review classifier and writes its artifacts.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/reviewclf/internal/config"
	"github.com/crimson-sun/reviewclf/internal/dataset"
	"github.com/crimson-sun/reviewclf/internal/engine/network"
	"github.com/crimson-sun/reviewclf/internal/engine/scorer"
	"github.com/crimson-sun/reviewclf/internal/engine/tokenizer"
	"github.com/crimson-sun/reviewclf/internal/fileutil"
	"github.com/crimson-sun/reviewclf/internal/model"
)

// Data is an encoded labeled set.
type Data struct {
	X [][]int64
	Y []int // zero-based classes
}

// Encode turns records into sequences and classes with tok.
func Encode(tok *tokenizer.Tokenizer, records []model.Review) Data {
	return Data{X: tok.EncodeBatch(dataset.Texts(records)), Y: dataset.Classes(records)}
}

// Len returns the number of samples.
func (d Data) Len() int {
	return len(d.X)
}

// FitResult is what Fit reports about the epochs it ran.
type FitResult struct {
	History      []EpochStats
	BestEpoch    int // 1-based, 0 when validation never improved
	StoppedEarly bool
	Checkpointed bool
}

// Trainer runs the training recipe of a Config.
type Trainer struct {
	cfg    *config.Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Trainer. cfg must already be validated.
func New(cfg *config.Config, logger *slog.Logger) *Trainer {
	return &Trainer{cfg: cfg, logger: logger, now: time.Now}
}

// Run loads the dataset, splits it, fits the tokenizer and the network,
// evaluates on the held-out test set and writes the model, tokenizer and
// report into the model directory.
func (t *Trainer) Run(ctx context.Context) (*Report, error) {
	cfg := t.cfg
	paths := cfg.Paths
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: t.now().UTC(),
		Dataset:   paths.Dataset(),
		Contract:  cfg.Contract,
		Training:  cfg.Training,
	}
	log := t.logger.With("run_id", report.RunID)

	ds, err := dataset.Load(ctx, paths.Dataset(), paths.Table)
	if err != nil {
		return nil, err
	}
	log.Info("dataset loaded", "path", ds.Source, "records", len(ds.Records), "dropped", ds.Dropped)

	split, err := dataset.StratifiedSplit(ds.Records, cfg.Training.TestFraction, cfg.Training.Seed)
	if err != nil {
		return nil, err
	}

	tok := tokenizer.New(cfg.Contract)
	tok.Fit(dataset.Texts(split.Train))

	fitRecords, valRecords := dataset.ValidationTail(split.Train, cfg.Training.ValidationSplit)
	train, val, test := Encode(tok, fitRecords), Encode(tok, valRecords), Encode(tok, split.Test)
	report.Split = SplitSizes{
		Loaded:     len(ds.Records),
		Dropped:    ds.Dropped,
		Train:      train.Len(),
		Validation: val.Len(),
		Test:       test.Len(),
	}
	report.Vocabulary = tok.Len()
	log.Info("data split", "train", train.Len(), "validation", val.Len(), "test", test.Len(), "vocabulary", tok.Len())

	rng := rand.New(rand.NewPCG(uint64(cfg.Training.Seed), uint64(cfg.Training.Seed)))
	arch := network.ArchitectureFor(cfg.Contract, cfg.Training)
	net, err := network.New(arch, rng)
	if err != nil {
		return nil, fmt.Errorf("trainer: %w", err)
	}
	report.Architecture = arch
	report.Params = net.CountParams()
	log.Info("model built", "params", report.Params, "embed_dim", arch.EmbedDim, "lstm_units", arch.LSTMUnits)

	// A checkpoint left by an earlier run must not be mistaken for this one.
	if err := os.Remove(paths.CheckpointPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("trainer: remove stale checkpoint: %w", err)
	}

	fit, err := t.Fit(ctx, net, train, val, rng)
	if err != nil {
		return nil, err
	}
	report.History = fit.History
	report.BestEpoch = fit.BestEpoch
	report.StoppedEarly = fit.StoppedEarly

	native, err := scorer.NewNative(net, cfg.Contract)
	if err != nil {
		return nil, err
	}
	report.Test, err = Evaluate(ctx, native, test.X, test.Y, cfg.Training.EvalWorkers)
	if err != nil {
		return nil, err
	}
	log.Info("test evaluation",
		"loss", report.Test.Loss,
		"accuracy", report.Test.Accuracy,
		"sentiment_accuracy", report.Test.SentimentAccuracy,
	)

	report.Artifacts, err = t.saveArtifacts(net, tok, fit.Checkpointed)
	if err != nil {
		return nil, err
	}

	report.FinishedAt = t.now().UTC()
	if err := WriteReport(paths.ReportPath(), report); err != nil {
		return nil, err
	}
	log.Info("training finished",
		"model", report.Artifacts.Model,
		"tokenizer", report.Artifacts.Tokenizer,
		"report", paths.ReportPath(),
		"elapsed", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
	)
	return report, nil
}

// saveArtifacts writes the canonical model, preferring the best checkpoint
// over the in-memory weights, and the tokenizer.
func (t *Trainer) saveArtifacts(net *network.Network, tok *tokenizer.Tokenizer, checkpointed bool) (Artifacts, error) {
	paths := t.cfg.Paths
	a := Artifacts{Model: paths.ModelPath(), Tokenizer: paths.TokenizerPath()}

	copied := false
	if checkpointed {
		var err error
		copied, err = fileutil.CopyFile(paths.CheckpointPath(), paths.ModelPath())
		if err != nil {
			return a, fmt.Errorf("trainer: copy checkpoint: %w", err)
		}
	}
	if copied {
		a.Checkpoint = paths.CheckpointPath()
	} else if err := net.Save(paths.ModelPath()); err != nil {
		return a, err
	}

	if err := tok.Save(paths.TokenizerPath()); err != nil {
		return a, err
	}
	return a, nil
}

// Fit trains net on train for up to Epochs epochs, shuffling every epoch
// with rng. When val is non-empty, val_loss drives early stopping and
// checkpointing; without it every epoch runs and nothing is checkpointed.
func (t *Trainer) Fit(ctx context.Context, net *network.Network, train, val Data, rng *rand.Rand) (FitResult, error) {
	tc := t.cfg.Training
	if train.Len() == 0 {
		return FitResult{}, errors.New("trainer: no training samples")
	}

	opt := network.NewAdam(tc.LearningRate)
	stopper := NewEarlyStopping(tc.Patience, 0)
	ckpt := NewCheckpoint(t.cfg.Paths.CheckpointPath())
	var best *network.Network
	var res FitResult

	if val.Len() == 0 {
		t.logger.Warn("no validation samples; early stopping and checkpointing disabled")
	}

	order := make([]int, train.Len())
	for i := range order {
		order[i] = i
	}
	bx := make([][]int64, 0, tc.BatchSize)
	by := make([]int, 0, tc.BatchSize)

	for epoch := 0; epoch < tc.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		start := t.now()
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		var lossSum float64
		var correct int
		for s := 0; s < len(order); s += tc.BatchSize {
			bx, by = bx[:0], by[:0]
			for _, i := range order[s:min(s+tc.BatchSize, len(order))] {
				bx = append(bx, train.X[i])
				by = append(by, train.Y[i])
			}
			l, c, err := net.TrainBatch(bx, by, opt, rng)
			if err != nil {
				return res, fmt.Errorf("trainer: epoch %d: %w", epoch+1, err)
			}
			lossSum += l
			correct += c
		}

		stats := EpochStats{
			Epoch:       epoch + 1,
			Loss:        lossSum / float64(train.Len()),
			Accuracy:    float64(correct) / float64(train.Len()),
			ValLoss:     math.NaN(),
			ValAccuracy: math.NaN(),
		}
		stop := false
		if val.Len() > 0 {
			var err error
			stats.ValLoss, stats.ValAccuracy, err = net.Evaluate(val.X, val.Y)
			if err != nil {
				return res, fmt.Errorf("trainer: validate epoch %d: %w", epoch+1, err)
			}

			if ckpt.ShouldSave(stats.ValLoss) {
				if err := net.Save(ckpt.Path); err != nil {
					return res, err
				}
				stats.Checkpointed = true
				res.Checkpointed = true
			}

			var improved bool
			improved, stop = stopper.Observe(epoch, stats.ValLoss)
			if improved {
				best = net.Clone()
				res.BestEpoch = epoch + 1
			}
		}
		res.History = append(res.History, stats)

		t.logger.Info("epoch",
			"epoch", stats.Epoch,
			"of", tc.Epochs,
			"loss", stats.Loss,
			"accuracy", stats.Accuracy,
			"val_loss", stats.ValLoss,
			"val_accuracy", stats.ValAccuracy,
			"checkpoint", stats.Checkpointed,
			"took", t.now().Sub(start).Round(time.Millisecond),
		)

		if stop {
			res.StoppedEarly = true
			if best != nil {
				net.CopyWeights(best)
			}
			t.logger.Info("early stopping", "epoch", stats.Epoch, "best_epoch", res.BestEpoch)
			break
		}
	}
	return res, nil
}
