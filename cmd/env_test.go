package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitStore_SQLite(t *testing.T) {
	c := testConfig(t)

	st, err := initStore(context.Background(), c)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	require.NoError(t, st.Ping(context.Background()))
	n, err := st.CountPosts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestInitStore_UnknownDriver(t *testing.T) {
	c := testConfig(t)
	c.Store.Driver = "mysql"

	_, err := initStore(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver: mysql")
}

func TestInitExtractor(t *testing.T) {
	c := testConfig(t)

	ext, err := initExtractor(c)
	require.NoError(t, err)
	assert.Contains(t, ext.Extract("best ramen in town"), "ramen")

	path := filepath.Join(t.TempDir(), "vocab.yaml")
	require.NoError(t, os.WriteFile(path, []byte("terms:\n  - birria\n  - tteokbokki\n"), 0o600))
	c.Vocabulary.Path = path

	ext, err = initExtractor(c)
	require.NoError(t, err)
	assert.Equal(t, []string{"birria"}, ext.Extract("Birria tacos are back"))
	assert.Equal(t, 2, ext.Vocabulary().Len())

	c.Vocabulary.Path = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = initExtractor(c)
	assert.Error(t, err)
}

func TestInitCategories(t *testing.T) {
	c := testConfig(t)
	assert.Equal(t, "asian", initCategories(c).Of("ramen"))

	c.Categories = map[string][]string{"street": {"birria"}}
	cats := initCategories(c)
	assert.Equal(t, "street", cats.Of("birria"))
	assert.Equal(t, "other", cats.Of("ramen"))

	c.Categories = nil
	assert.Equal(t, "mexican", initCategories(c).Of("tacos"))
}

func TestInitPipeline_UnknownClassifier(t *testing.T) {
	c := testConfig(t)
	c.Classifier.Provider = "magic"

	_, err := initPipeline(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestPredictItem_NoDataMapping(t *testing.T) {
	_, env := testEnv(t)
	seedPosts(t, env)
	runPipeline(t, env)

	pred, err := predictItem(context.Background(), env.Pipeline, "Haggis", 7)
	require.NoError(t, err)
	assert.Equal(t, "haggis", pred.Food)
	assert.Equal(t, "no_data", pred.Status)
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"collect", "run", "predict", "report", "predictions", "categories", "serve", "status"} {
		assert.True(t, names[want], want)
	}
}
