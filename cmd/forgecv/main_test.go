package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/forgecv/internal/llm"
	"github.com/jonathan/forgecv/internal/storage"
	"github.com/jonathan/forgecv/internal/types"
)

// TestMain runs before all tests and loads .env if available
func TestMain(m *testing.M) {
	_ = godotenv.Load()
	os.Exit(m.Run())
}

// execute runs the root command against a fresh data directory.
func execute(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("FORGECV_DATA_DIR", dataDir)
	t.Setenv("FORGECV_AUTH_MODE", "byok")
	for _, env := range []string{"FORGECV_ACCESS_TOKEN", "FORGECV_REFRESH_TOKEN", "GEMINI_API_KEY", "GROQ_API_KEY", "CEREBRAS_API_KEY", "MISTRAL_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(env, "")
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seedWorkspace(t *testing.T, dataDir string) {
	t.Helper()
	store, err := storage.Open(dataDir)
	require.NoError(t, err)
	defer store.Close()
	base := &types.Resume{
		Name:       "Jane Doe",
		Summary:    "Backend engineer.",
		Experience: []types.Item{{ID: "exp-1", Company: "Acme", Role: "Engineer", Bullets: []string{"Built billing in Go"}}},
	}
	require.NoError(t, storage.NewSession(store).SaveBaseResume(context.Background(), base))
}

func TestVersionsEmptyWorkspace(t *testing.T) {
	out, err := execute(t, t.TempDir(), "versions")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved versions.")
}

func TestExport(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, dir, "export", "html")
	require.Error(t, err, "nothing to export before an import")

	seedWorkspace(t, dir)
	target := filepath.Join(dir, "resume.tex")
	_, err = execute(t, dir, "export", "tex", "--out", target)
	require.NoError(t, err)
	tex, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(tex), "Jane Doe")

	exportOut = ""
	_, err = execute(t, dir, "export", "docx")
	assert.Error(t, err)
}

func TestTailorWithoutProviders(t *testing.T) {
	dir := t.TempDir()
	seedWorkspace(t, dir)
	jd := filepath.Join(dir, "jd.txt")
	require.NoError(t, os.WriteFile(jd, []byte("Go engineer wanted."), 0o644))

	_, err := execute(t, dir, "tailor", "--jd-file", jd, "--pages", "3")
	assert.ErrorContains(t, err, "--pages")

	tailorPages = 0
	_, err = execute(t, dir, "tailor", "--jd-file", jd)
	assert.ErrorIs(t, err, llm.ErrNotLoggedIn, "no personal keys and no hosted session")
}

func TestReadPassword(t *testing.T) {
	t.Setenv("FORGECV_PASSWORD", "")
	pw, err := readPassword(strings.NewReader("hunter22\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "hunter22", pw)

	_, err = readPassword(strings.NewReader(""))
	assert.Error(t, err)

	t.Setenv("FORGECV_PASSWORD", "from-env")
	pw, err = readPassword(strings.NewReader("ignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", pw)
}

func TestProviderKeys(t *testing.T) {
	keys := providerKeys(map[string]string{"groq": "g", "gemini": "k"})
	assert.Equal(t, map[llm.Provider]string{llm.ProviderGroq: "g", llm.ProviderGemini: "k"}, keys)
}

func TestStrategyFlag(t *testing.T) {
	defer func() { tailorStrategy = "" }()
	assert.Equal(t, types.TailoringStrategy(""), strategyFlag())
	tailorStrategy = "jd_focus"
	assert.Equal(t, types.StrategyJDFocus, strategyFlag())
	tailorStrategy = "nonsense"
	assert.Equal(t, types.StrategyBalanced, strategyFlag())
}
