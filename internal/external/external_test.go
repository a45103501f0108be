package external

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haskel/variantlab/internal/config"
	"github.com/haskel/variantlab/internal/experiment"
	"github.com/haskel/variantlab/internal/stats"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func shell(script string) config.CommandConfig {
	return config.CommandConfig{Command: "sh", Args: []string{"-c", script}}
}

func TestCommandTrainer(t *testing.T) {
	requireShell(t)

	r := NewRunner(shell(`cat >/dev/null; echo '{"uri":"file:///models/a.pt","attributes":{"epochs":"3"}}'`), 0, testLogger())
	tr := NewCommandTrainer(r)

	h, err := tr.Train(context.Background(), experiment.VariantA,
		experiment.Partition{Samples: []string{"s1"}, Labels: []string{"l1"}},
		experiment.Partition{},
		experiment.Hyperparams{"lr": 0.01})
	require.NoError(t, err)
	assert.Equal(t, experiment.VariantA, h.Variant)
	assert.Equal(t, "file:///models/a.pt", h.URI)
	assert.Equal(t, "3", h.Attributes["epochs"])
	assert.False(t, h.TrainedAt.IsZero())
}

func TestCommandTrainer_ReceivesRequest(t *testing.T) {
	requireShell(t)

	// Echo the variant back through the uri to prove the request reached stdin.
	script := `req=$(cat); case "$req" in *'"variant":"B"'*) echo '{"uri":"got-b"}';; *) echo '{"uri":"other"}';; esac`
	tr := NewCommandTrainer(NewRunner(shell(script), 0, testLogger()))

	h, err := tr.Train(context.Background(), experiment.VariantB, experiment.Partition{}, experiment.Partition{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "got-b", h.URI)
}

func TestCommandTrainer_Failures(t *testing.T) {
	requireShell(t)

	t.Run("non-zero exit carries stderr", func(t *testing.T) {
		tr := NewCommandTrainer(NewRunner(shell(`echo "CUDA out of memory" >&2; exit 3`), 0, testLogger()))
		_, err := tr.Train(context.Background(), experiment.VariantA, experiment.Partition{}, experiment.Partition{}, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCommandFailed)
		assert.Contains(t, err.Error(), "CUDA out of memory")
		assert.Contains(t, err.Error(), "variant A")
	})

	t.Run("garbage output", func(t *testing.T) {
		tr := NewCommandTrainer(NewRunner(shell(`echo not-json`), 0, testLogger()))
		_, err := tr.Train(context.Background(), experiment.VariantA, experiment.Partition{}, experiment.Partition{}, nil)
		assert.ErrorContains(t, err, "decode response")
	})

	t.Run("missing uri", func(t *testing.T) {
		tr := NewCommandTrainer(NewRunner(shell(`echo '{}'`), 0, testLogger()))
		_, err := tr.Train(context.Background(), experiment.VariantA, experiment.Partition{}, experiment.Partition{}, nil)
		assert.ErrorContains(t, err, "no model uri")
	})

	t.Run("timeout", func(t *testing.T) {
		tr := NewCommandTrainer(NewRunner(shell(`sleep 5`), 50*time.Millisecond, testLogger()))
		_, err := tr.Train(context.Background(), experiment.VariantA, experiment.Partition{}, experiment.Partition{}, nil)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		tr := NewCommandTrainer(NewRunner(shell(`sleep 5`), 0, testLogger()))
		_, err := tr.Train(ctx, experiment.VariantA, experiment.Partition{}, experiment.Partition{}, nil)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("no command", func(t *testing.T) {
		tr := NewCommandTrainer(NewRunner(config.CommandConfig{}, 0, testLogger()))
		_, err := tr.Train(context.Background(), experiment.VariantA, experiment.Partition{}, experiment.Partition{}, nil)
		assert.ErrorContains(t, err, "no command configured")
	})
}

func TestCommandEvaluator(t *testing.T) {
	requireShell(t)

	test := experiment.Partition{Samples: []string{"a", "b", "c"}, Labels: []string{"x", "y", "z"}}
	handle := experiment.ModelHandle{Variant: experiment.VariantB, URI: "m"}

	t.Run("describes each metric", func(t *testing.T) {
		ev := NewCommandEvaluator(NewRunner(shell(`cat >/dev/null; echo '{"metrics":{"dice":[0.8,0.9,1.0],"iou":[0.5,0.6,0.7]}}'`), 0, testLogger()),
			[]string{"dice", "iou"})

		set, err := ev.Evaluate(context.Background(), handle, test)
		require.NoError(t, err)
		assert.Equal(t, experiment.VariantB, set.Variant)
		assert.InDelta(t, 0.9, set.Metrics["dice"].Mean, 1e-9)
		assert.InDelta(t, 0.6, set.Metrics["iou"].Mean, 1e-9)
		assert.Len(t, set.Metrics["dice"].Values, 3)
	})

	t.Run("missing metric", func(t *testing.T) {
		ev := NewCommandEvaluator(NewRunner(shell(`echo '{"metrics":{"dice":[1,1,1]}}'`), 0, testLogger()),
			[]string{"dice", "ssim"})
		_, err := ev.Evaluate(context.Background(), handle, test)
		assert.ErrorContains(t, err, `metric "ssim" missing`)
	})

	t.Run("length mismatch", func(t *testing.T) {
		ev := NewCommandEvaluator(NewRunner(shell(`echo '{"metrics":{"dice":[1,1]}}'`), 0, testLogger()),
			[]string{"dice"})
		_, err := ev.Evaluate(context.Background(), handle, test)
		assert.ErrorContains(t, err, "has 2 values for 3 test items")
	})
}

func TestTail(t *testing.T) {
	assert.Equal(t, "boom", tail("  boom\n"))

	long := make([]byte, stderrTail+100)
	for i := range long {
		long[i] = 'x'
	}
	got := tail(string(long))
	assert.Len(t, got, stderrTail+3)
	assert.Equal(t, "...", got[:3])
}

type fakeTrainer struct {
	mu    sync.Mutex
	calls []experiment.Variant
	sizes []int
}

func (f *fakeTrainer) Train(_ context.Context, v experiment.Variant, train, val experiment.Partition, _ experiment.Hyperparams) (experiment.ModelHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, v)
	f.sizes = append(f.sizes, train.Len()+val.Len())
	return experiment.ModelHandle{Variant: v, URI: fmt.Sprintf("m-%s-%d", v, len(f.calls))}, nil
}

// fakeEvaluator scores A at 0.8 and B at 0.6 on every item.
type fakeEvaluator struct {
	testSizes []int
	failOn    int
	calls     int
}

func (f *fakeEvaluator) Evaluate(_ context.Context, h experiment.ModelHandle, test experiment.Partition) (experiment.MetricsSet, error) {
	f.calls++
	if f.failOn > 0 && f.calls == f.failOn {
		return experiment.MetricsSet{}, fmt.Errorf("evaluator exploded")
	}
	f.testSizes = append(f.testSizes, test.Len())

	score := 0.8
	if h.Variant == experiment.VariantB {
		score = 0.6
	}
	values := make([]float64, test.Len())
	for i := range values {
		values[i] = score
	}
	return experiment.MetricsSet{
		Variant: h.Variant,
		Metrics: map[string]experiment.Distribution{"dice": stats.Describe(values)},
	}, nil
}

func cvConfig() experiment.RunConfig {
	return experiment.RunConfig{
		Seed:    7,
		Ratios:  experiment.SplitRatios{Train: 0.7, Validation: 0.15, Test: 0.15},
		Metrics: []string{"dice"},
		Variants: map[experiment.Variant]experiment.VariantConfig{
			experiment.VariantA: {Name: "a"},
			experiment.VariantB: {Name: "b"},
		},
	}
}

func pairs(n int) ([]string, []string) {
	s := make([]string, n)
	l := make([]string, n)
	for i := range n {
		s[i] = fmt.Sprintf("img-%03d", i)
		l[i] = fmt.Sprintf("mask-%03d", i)
	}
	return s, l
}

func TestFoldValidator_KFold(t *testing.T) {
	tr := &fakeTrainer{}
	ev := &fakeEvaluator{}
	fv := NewFoldValidator(tr, ev, testLogger())

	samples, labels := pairs(23)
	res, err := fv.KFold(context.Background(), samples, labels, cvConfig(), 5)
	require.NoError(t, err)

	assert.Equal(t, 5, res.Folds)
	assert.Len(t, res.PerFold, 10)
	assert.Len(t, tr.calls, 10)
	assert.Equal(t, experiment.VariantA, tr.calls[0])
	assert.Equal(t, experiment.VariantB, tr.calls[1])

	total := 0
	for i, n := range ev.testSizes {
		if i%2 == 0 {
			total += n
		}
	}
	assert.Equal(t, 23, total, "every sample is held out exactly once")
	for i, n := range tr.sizes {
		assert.Equal(t, 23-ev.testSizes[i], n)
	}

	assert.InDelta(t, 0.8, res.Means[experiment.VariantA]["dice"], 1e-9)
	assert.InDelta(t, 0.6, res.Means[experiment.VariantB]["dice"], 1e-9)
	assert.InDelta(t, 0, res.StdDevs[experiment.VariantA]["dice"], 1e-9)
}

func TestFoldValidator_Errors(t *testing.T) {
	samples, labels := pairs(10)

	t.Run("k too small", func(t *testing.T) {
		fv := NewFoldValidator(&fakeTrainer{}, &fakeEvaluator{}, testLogger())
		_, err := fv.KFold(context.Background(), samples, labels, cvConfig(), 1)
		assert.ErrorContains(t, err, "k must be at least 2")
	})

	t.Run("fewer samples than folds", func(t *testing.T) {
		fv := NewFoldValidator(&fakeTrainer{}, &fakeEvaluator{}, testLogger())
		_, err := fv.KFold(context.Background(), samples[:3], labels[:3], cvConfig(), 5)
		assert.ErrorContains(t, err, "need at least 5 samples")
	})

	t.Run("mismatched pairs", func(t *testing.T) {
		fv := NewFoldValidator(&fakeTrainer{}, &fakeEvaluator{}, testLogger())
		_, err := fv.KFold(context.Background(), samples, labels[:9], cvConfig(), 2)
		assert.ErrorContains(t, err, "differ in length")
	})

	t.Run("collaborator failure names the fold", func(t *testing.T) {
		fv := NewFoldValidator(&fakeTrainer{}, &fakeEvaluator{failOn: 3}, testLogger())
		_, err := fv.KFold(context.Background(), samples, labels, cvConfig(), 2)
		assert.ErrorContains(t, err, "fold 2")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		fv := NewFoldValidator(&fakeTrainer{}, &fakeEvaluator{}, testLogger())
		_, err := fv.KFold(ctx, samples, labels, cvConfig(), 2)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestValSize(t *testing.T) {
	r := experiment.SplitRatios{Train: 0.7, Validation: 0.15, Test: 0.15}
	assert.Equal(t, 3, valSize(20, r))
	assert.Equal(t, 0, valSize(20, experiment.SplitRatios{Train: 1}))
	assert.Equal(t, 0, valSize(1, r))
}
