package external

import (
	"context"
	"fmt"
	"time"

	"github.com/haskel/variantlab/internal/experiment"
)

type TrainRequest struct {
	Op          string                 `json:"op"`
	Variant     experiment.Variant     `json:"variant"`
	Train       experiment.Partition   `json:"train"`
	Validation  experiment.Partition   `json:"validation"`
	Hyperparams experiment.Hyperparams `json:"hyperparams,omitempty"`
}

type TrainResponse struct {
	URI        string            `json:"uri"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// CommandTrainer implements experiment.Trainer.
type CommandTrainer struct {
	runner *Runner
}

func NewCommandTrainer(r *Runner) *CommandTrainer {
	return &CommandTrainer{runner: r}
}

func (t *CommandTrainer) Train(ctx context.Context, variant experiment.Variant, train, val experiment.Partition, hp experiment.Hyperparams) (experiment.ModelHandle, error) {
	var resp TrainResponse
	err := t.runner.Call(ctx, "train", TrainRequest{
		Op:          "train",
		Variant:     variant,
		Train:       train,
		Validation:  val,
		Hyperparams: hp,
	}, &resp)
	if err != nil {
		return experiment.ModelHandle{}, fmt.Errorf("train variant %s: %w", variant, err)
	}

	if resp.URI == "" {
		return experiment.ModelHandle{}, fmt.Errorf("train variant %s: trainer returned no model uri", variant)
	}

	return experiment.ModelHandle{
		Variant:    variant,
		URI:        resp.URI,
		TrainedAt:  time.Now(),
		Attributes: resp.Attributes,
	}, nil
}
