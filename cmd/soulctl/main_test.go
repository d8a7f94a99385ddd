package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const signalsFile = `signals:
  - text: I tell the truth even when it costs me
    confidence: 0.9
    provenance_origin: self
  - text: Even when it costs me, I tell the truth
    confidence: 0.8
    provenance_origin: curated
  - text: i tell the truth even when it costs me.
    confidence: 0.7
    provenance_origin: external
  - text: Curiosity drives how I approach problems
    confidence: 0.6
    provenance_origin: self
`

func offlineEnv(t *testing.T) string {
	t.Helper()
	t.Setenv("LLM_PROVIDER", "mock")
	t.Setenv("EMBEDDING_PROVIDER", "mock")
	t.Setenv("SIMILARITY_BACKEND", "embedding")
	t.Setenv("BACKEND_RPS", "0")
	t.Setenv("NATS_URL", "")
	return filepath.Join(t.TempDir(), "soul.db")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunAndShow(t *testing.T) {
	db := offlineEnv(t)
	path := filepath.Join(t.TempDir(), "signals.yaml")
	require.NoError(t, os.WriteFile(path, []byte(signalsFile), 0o600))

	out, err := execute(t, "run", "--db", db, "--signals", path, "--log-level", "error")
	require.NoError(t, err, out)

	var run runView
	require.NoError(t, yaml.Unmarshal([]byte(out), &run))
	assert.Equal(t, 1, run.Cycle)
	assert.Equal(t, "initial", run.Mode)
	assert.Equal(t, 2, run.Principles)
	assert.Equal(t, 4, run.Stats.SignalsIn)
	assert.Equal(t, 4, run.Stats.Classified)
	require.Len(t, run.Axioms, 1)
	assert.True(t, run.Axioms[0].Promotable)
	assert.Equal(t, 3, run.Axioms[0].Signals)

	out, err = execute(t, "show", "--db", db, "--promotable", "--log-level", "error")
	require.NoError(t, err, out)

	var corpus corpusView
	require.NoError(t, yaml.Unmarshal([]byte(out), &corpus))
	assert.Equal(t, run.CorpusID, corpus.CorpusID)
	assert.Equal(t, 2, corpus.Principles)
	require.Len(t, corpus.Axioms, 1)
	assert.Equal(t, run.Axioms[0].Text, corpus.Axioms[0].Text)
}

func TestRunForce(t *testing.T) {
	db := offlineEnv(t)
	path := filepath.Join(t.TempDir(), "signals.yaml")
	require.NoError(t, os.WriteFile(path, []byte(signalsFile), 0o600))

	_, err := execute(t, "run", "--db", db, "--signals", path, "--log-level", "error")
	require.NoError(t, err)

	out, err := execute(t, "run", "--db", db, "--signals", path, "--force", "--log-level", "error")
	require.NoError(t, err, out)

	var run runView
	require.NoError(t, yaml.Unmarshal([]byte(out), &run))
	assert.Equal(t, 2, run.Cycle)
	assert.Equal(t, "full_resynthesis", run.Mode)
	assert.Equal(t, []string{"manual resynthesis override"}, run.Triggers)
}

func TestShowEmpty(t *testing.T) {
	db := offlineEnv(t)

	out, err := execute(t, "show", "--db", db, "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, "no corpus yet\n", out)
}

func TestRunErrors(t *testing.T) {
	db := offlineEnv(t)

	_, err := execute(t, "run", "--db", db, "--log-level", "error")
	assert.ErrorContains(t, err, `required flag(s) "signals" not set`)

	_, err = execute(t, "run", "--db", db, "--signals", filepath.Join(t.TempDir(), "missing.yaml"), "--log-level", "error")
	assert.ErrorContains(t, err, "read signals")

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("signals: []\n"), 0o600))
	_, err = execute(t, "run", "--db", db, "--signals", empty, "--log-level", "error")
	assert.ErrorContains(t, err, "no signals")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "neon-soul")
}
