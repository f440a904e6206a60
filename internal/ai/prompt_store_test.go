package ai

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"skillpick/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPromptsRenderForEveryOperation(t *testing.T) {
	store := NewDefaultPromptStore()

	data := map[string]any{
		"Title":        "Backend Engineer",
		"Description":  "Build Go services",
		"ExtraContext": "",
		"JDAnalysis":   `{"skills":["go"]}`,
		"ResumeText":   "Five years of Go",
		"NumMCQ":       3,
		"NumCoding":    1,
		"NumTheory":    2,
		"UsedIDs":      "",
		"Questions":    `[]`,
		"Answers":      `{}`,
		"Report":       `{}`,
	}

	for _, op := range config.Operations {
		t.Run(op, func(t *testing.T) {
			spec, err := store.Spec(op, data)
			require.NoError(t, err)
			assert.Equal(t, op, spec.Operation)
			assert.NotEmpty(t, spec.SystemPrompt)
			assert.NotEmpty(t, spec.UserPrompt)
			assert.NotNil(t, spec.Schema, "every operation has a response schema")
			assert.NotContains(t, spec.UserPrompt, "<no value>")
		})
	}
}

func TestQuestionPromptCarriesCounts(t *testing.T) {
	store := NewDefaultPromptStore()
	_, user, err := store.Render(config.OperationQuestions, map[string]any{
		"NumMCQ": 4, "NumCoding": 0, "NumTheory": 2, "UsedIDs": "mcq-1, mcq-2",
	})
	require.NoError(t, err)
	assert.Contains(t, user, "exactly 4 items")
	assert.Contains(t, user, "exactly 0 items")
	assert.Contains(t, user, "must not reuse any of: mcq-1, mcq-2")
}

func TestPromptStoreOverridesAndReload(t *testing.T) {
	dir := t.TempDir()
	userFile := filepath.Join(dir, "theory.user.md")
	require.NoError(t, os.WriteFile(userFile, []byte("Grade {{.Answers}} strictly."), 0600))

	store, err := NewPromptStore(map[string]string{"theory.user": userFile}, nil)
	require.NoError(t, err)

	system, user, err := store.Render(config.OperationTheory, map[string]string{"Answers": `{"theory-1":"x"}`})
	require.NoError(t, err)
	assert.Equal(t, `Grade {"theory-1":"x"} strictly.`, user)
	assert.Equal(t, strings.TrimSpace(DefaultPrompts[config.OperationTheory].System), system)

	require.NoError(t, os.WriteFile(userFile, []byte("Be lenient with {{.Answers}}."), 0600))
	require.NoError(t, store.Reload())
	_, user, err = store.Render(config.OperationTheory, map[string]string{"Answers": "a"})
	require.NoError(t, err)
	assert.Equal(t, "Be lenient with a.", user)

	// A broken template keeps the previous prompts active
	require.NoError(t, os.WriteFile(userFile, []byte("Broken {{.Answers"), 0600))
	assert.Error(t, store.Reload())
	_, user, err = store.Render(config.OperationTheory, map[string]string{"Answers": "b"})
	require.NoError(t, err)
	assert.Equal(t, "Be lenient with b.", user)
}

func TestPromptStoreRejectsMissingFile(t *testing.T) {
	_, err := NewPromptStore(map[string]string{"jd.system": filepath.Join(t.TempDir(), "missing.md")}, nil)
	assert.Error(t, err)
}

func TestPromptStoreUnknownOperation(t *testing.T) {
	_, _, err := NewDefaultPromptStore().Render("poetry", nil)
	assert.Error(t, err)
}

func TestPromptWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	systemFile := filepath.Join(dir, "summary.system.md")
	require.NoError(t, os.WriteFile(systemFile, []byte("first version"), 0600))

	store, err := NewPromptStore(map[string]string{"summary.system": systemFile}, nil)
	require.NoError(t, err)

	watcher := NewPromptWatcher(store, 10*time.Millisecond, nil)
	require.NoError(t, watcher.Start())
	t.Cleanup(func() { _ = watcher.Stop() })

	// Make sure the new mtime differs on coarse filesystems
	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.WriteFile(systemFile, []byte("second version"), 0600))
	require.NoError(t, os.Chtimes(systemFile, later, later))

	assert.Eventually(t, func() bool {
		system, _, err := store.Render(config.OperationSummary, map[string]string{})
		return err == nil && system == "second version"
	}, 3*time.Second, 20*time.Millisecond)
}
