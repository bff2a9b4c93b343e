package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodeStranger-Fred/slither/mdp"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(append([]string{"--no-color", "--log-level", "warn"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// runRaw runs the CLI with exactly args and returns stdout and stderr.
func runRaw(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func loadModel(t *testing.T, path string) (*mdp.Agent, mdp.Metadata) {
	t.Helper()
	a, err := mdp.NewAgent(mdp.DefaultParams(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	md, err := a.Load(path)
	require.NoError(t, err)
	return a, md
}

func trainModel(t *testing.T, dir string, extra ...string) string {
	t.Helper()
	path := filepath.Join(dir, "q.json")
	args := append([]string{"train", "--sessions", "6", "--max-steps", "60", "--seed", "7", "--save", path, "--quiet"}, extra...)
	_, err := runCLI(t, args...)
	require.NoError(t, err)
	return path
}

func TestTrainSavesModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models", "q.json")

	out, err := runCLI(t, "train", "--sessions", "5", "--max-steps", "50", "--seed", "7", "--save", path)
	require.NoError(t, err)

	assert.Contains(t, out, "Episode 0001 - steps=")
	assert.Contains(t, out, "Episode 0005 - steps=")
	assert.Contains(t, out, "Training complete")
	assert.Contains(t, out, "Episodes: 5")
	assert.Contains(t, out, "Model saved to "+path)

	agent, md := loadModel(t, path)
	assert.Greater(t, agent.Len(), 0)
	assert.True(t, agent.Learning())
	assert.Equal(t, float64(5), md["episodes"])
	assert.Equal(t, float64(7), md["seed"])
	assert.NotEmpty(t, md["run_id"])
	assert.Contains(t, md, "avg_reward")
	assert.Contains(t, md, "max_length")
}

func TestTrainIsReproducibleWithSeed(t *testing.T) {
	a := trainModel(t, t.TempDir())
	b := trainModel(t, t.TempDir())

	qa, _ := loadModel(t, a)
	qb, _ := loadModel(t, b)
	ea, err := qa.Encode(nil)
	require.NoError(t, err)
	eb, err := qb.Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, ea, eb)
}

func TestTrainDontLearnKeepsValues(t *testing.T) {
	dir := t.TempDir()
	src := trainModel(t, dir)
	dst := filepath.Join(dir, "frozen.json")

	out, err := runCLI(t, "train", "--load", src, "--dontlearn", "--sessions", "3",
		"--max-steps", "40", "--seed", "9", "--save", dst)
	require.NoError(t, err)
	assert.Contains(t, out, "epsilon=0.000")

	before, _ := loadModel(t, src)
	after, _ := loadModel(t, dst)
	assert.False(t, after.Learning())
	assert.Equal(t, 0.0, after.Epsilon())
	for _, s := range stateKeys(t, src) {
		assert.Equal(t, before.Values(s), after.Values(s), "state %d", s)
	}
}

func stateKeys(t *testing.T, path string) []mdp.State {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rec struct {
		QTable map[string][]float64 `json:"q_table"`
	}
	require.NoError(t, json.Unmarshal(data, &rec))
	a, _ := loadModel(t, path)
	var out []mdp.State
	for s := mdp.State(0); s < 1<<12; s++ {
		if a.Has(s) {
			out = append(out, s)
		}
	}
	require.Len(t, out, len(rec.QTable))
	return out
}

func TestTrainRejectsBadConfig(t *testing.T) {
	_, err := runCLI(t, "train", "--alpha", "0", "--sessions", "1")
	assert.Error(t, err)

	_, err = runCLI(t, "train", "--size", "5", "--sessions", "1")
	assert.Error(t, err)
}

func TestTrainFlagsOverrideConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "slither.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("train:\n  sessions: 4\n  max_steps: 30\n  seed: 5\n"), 0o644))

	out, err := runCLI(t, "train", "--config", cfgPath, "--quiet")
	require.NoError(t, err)
	assert.Contains(t, out, "Episodes: 4")

	out, err = runCLI(t, "train", "--config", cfgPath, "--sessions", "2", "--quiet")
	require.NoError(t, err)
	assert.Contains(t, out, "Episodes: 2")
}

func TestTrainWritesArtifactsAndCheckpoints(t *testing.T) {
	dir := t.TempDir()
	plot := filepath.Join(dir, "charts", "reward.html")
	xlsx := filepath.Join(dir, "reports", "run.xlsx")
	db := filepath.Join(dir, "ckpt")

	path := trainModel(t, dir,
		"--plot", plot,
		"--report", xlsx,
		"--checkpoint-db", db,
		"--checkpoint-every", "2",
		"--metrics-addr", "127.0.0.1:0",
	)
	for _, p := range []string{plot, xlsx} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}

	_, md := loadModel(t, path)
	runID, ok := md["run_id"].(string)
	require.True(t, ok)

	out, err := runCLI(t, "inspect", "--checkpoints", db)
	require.NoError(t, err)
	assert.Equal(t, runID+"\n", out)

	out, err = runCLI(t, "inspect", "--checkpoints", db, "--run", runID)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "episode      2")
	assert.Contains(t, lines[2], "episode      6")

	exported := filepath.Join(dir, "ep4.json")
	out, err = runCLI(t, "inspect", "--checkpoints", db, "--run", runID, "--episode", "4", "--export", exported)
	require.NoError(t, err)
	assert.Contains(t, out, "exported to "+exported)
	_, emd := loadModel(t, exported)
	assert.Equal(t, float64(4), emd["episode"])

	latest := filepath.Join(dir, "latest.json")
	_, err = runCLI(t, "inspect", "--checkpoints", db, "--run", runID, "--export", latest)
	require.NoError(t, err)
	final, _ := loadModel(t, latest)
	trained, _ := loadModel(t, path)
	assert.Equal(t, trained.Len(), final.Len())

	_, err = runCLI(t, "inspect", "--checkpoints", db, "--run", "missing")
	assert.Error(t, err)
}

func TestInspectCheckpointsNeedsExistingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "typo")

	_, err := runCLI(t, "inspect", "--checkpoints", dir)
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, statErr := os.Stat(dir)
	assert.ErrorIs(t, statErr, os.ErrNotExist)

	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = runCLI(t, "inspect", "--checkpoints", file)
	assert.ErrorContains(t, err, "not a directory")
}

func TestInspectModel(t *testing.T) {
	path := trainModel(t, t.TempDir())
	trained, _ := loadModel(t, path)
	known := stateKeys(t, path)[0]

	out, err := runCLI(t, "inspect", "--model", path, "--state", itoa(known), "--state", "4096")
	require.NoError(t, err)

	assert.Contains(t, out, "States: "+strconv.Itoa(trained.Len()))
	assert.Contains(t, out, "Learning: true")
	assert.Contains(t, out, "episodes: 6")
	assert.Contains(t, out, "state "+itoa(known)+": [")
	assert.Contains(t, out, "state 4096: unseen")

	_, err = runCLI(t, "inspect", "--model", path, "--state", "abc")
	assert.Error(t, err)

	_, err = runCLI(t, "inspect")
	assert.Error(t, err)
}

func itoa(s mdp.State) string {
	return strconv.FormatUint(uint64(s), 10)
}

func TestPlay(t *testing.T) {
	path := trainModel(t, t.TempDir())

	out, err := runCLI(t, "play", "--model", path, "--fps", "0", "--max-steps", "15", "--seed", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "score 0  length 3  max 3  moves 0")
	assert.Contains(t, out, "W W W")

	out, err = runCLI(t, "play", "--model", path, "--fps", "0", "--max-steps", "5", "--seed", "3", "--vision", "--games", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "H")
	assert.NotContains(t, out, "score ")

	_, err = runCLI(t, "play", "--fps", "0")
	assert.Error(t, err)

	_, err = runCLI(t, "play", "--model", filepath.Join(t.TempDir(), "none.json"))
	assert.Error(t, err)
}

func TestSweep(t *testing.T) {
	plot := filepath.Join(t.TempDir(), "sweep.html")

	out, err := runCLI(t, "sweep", "--runs", "2", "--sessions", "5", "--max-steps", "30",
		"--seed", "3", "--alphas", "0.1,0.5", "--plot", plot)
	require.NoError(t, err)

	assert.Contains(t, out, "alpha=0.1")
	assert.Contains(t, out, "alpha=0.5")
	assert.Contains(t, out, "runs=2")
	info, err := os.Stat(plot)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	_, err = runCLI(t, "sweep", "--runs", "0")
	assert.Error(t, err)
	_, err = runCLI(t, "sweep", "--runs", "1", "--sessions", "1", "--alphas", "2")
	assert.Error(t, err)
}

func TestTailMean(t *testing.T) {
	assert.Equal(t, 0.0, tailMean(nil, 3))
	assert.Equal(t, 2.0, tailMean([]float64{1, 3}, 10))
	assert.Equal(t, 3.5, tailMean([]float64{100, 3, 4}, 2))
}

func TestConfigLogSection(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "slither.yaml")
	body := "log:\n  level: debug\n  format: json\ntrain:\n  sessions: 2\n  max_steps: 20\n  seed: 4\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))

	_, stderr, err := runRaw(t, "--no-color", "sweep", "--config", cfgPath, "--runs", "1")
	require.NoError(t, err)
	assert.Contains(t, stderr, `"msg":"sweep point done"`)
	assert.Contains(t, stderr, `"level":"DEBUG"`)

	_, stderr, err = runRaw(t, "--no-color", "train", "--config", cfgPath, "--quiet")
	require.NoError(t, err)
	assert.Contains(t, stderr, `"msg":"training started"`)

	_, stderr, err = runRaw(t, "--no-color", "--log-level", "warn", "sweep", "--config", cfgPath, "--runs", "1")
	require.NoError(t, err)
	assert.NotContains(t, stderr, "sweep point done")

	_, stderr, err = runRaw(t, "--no-color", "--log-format", "text", "sweep", "--config", cfgPath, "--runs", "1")
	require.NoError(t, err)
	assert.Contains(t, stderr, `msg="sweep point done"`)
}

func TestTrainVision(t *testing.T) {
	out, err := runCLI(t, "train", "--sessions", "1", "--max-steps", "3", "--seed", "2", "--quiet", "--vision")
	require.NoError(t, err)

	steps := 0
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, " reward=") {
			steps++
		}
	}
	assert.GreaterOrEqual(t, steps, 1)
	assert.LessOrEqual(t, steps, 3)
	assert.Contains(t, out, "H")
	assert.Contains(t, out, "W\n")
	assert.NotContains(t, out, "Episode 0001")
}
