package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateHookScript(t *testing.T) {
	script := generateHookScript("", "text")

	assert.True(t, strings.HasPrefix(script, hookMarkerStart+"\n"))
	assert.True(t, strings.HasSuffix(script, hookMarkerEnd+"\n"))
	assert.Contains(t, script, "danger local --format text\n")
	assert.Contains(t, script, "DANGER_EXIT=$?")
	assert.Contains(t, script, "exit 1")
	assert.Contains(t, script, "allowing push")
}

func TestGenerateHookScript_Dangerfile(t *testing.T) {
	script := generateHookScript("ci/Dangerfile.yml", "json")
	assert.Contains(t, script, "danger local --format json --dangerfile ci/Dangerfile.yml\n")
}

func TestReplaceDangerSection_NoExisting(t *testing.T) {
	existing := "#!/bin/sh\nsome-other-hook\n"
	result := replaceDangerSection(existing, generateHookScript("", "text"))

	assert.True(t, strings.HasPrefix(result, existing))
	assert.Contains(t, result, hookMarkerStart)
}

func TestReplaceDangerSection_NoTrailingNewline(t *testing.T) {
	result := replaceDangerSection("#!/bin/sh\nsome-hook", generateHookScript("", "text"))
	assert.Contains(t, result, "some-hook\n"+hookMarkerStart)
}

func TestReplaceDangerSection_ExistingSection(t *testing.T) {
	existing := "#!/bin/sh\nbefore\n" + generateHookScript("", "text") + "after\n"
	result := replaceDangerSection(existing, generateHookScript("", "json"))

	assert.Contains(t, result, "before")
	assert.Contains(t, result, "after")
	assert.Contains(t, result, "--format json")
	assert.NotContains(t, result, "--format text")
	assert.Equal(t, 1, strings.Count(result, hookMarkerStart))
}

func TestRemoveDangerSection(t *testing.T) {
	existing := "#!/bin/sh\nbefore\n" + generateHookScript("", "text") + "after\n"
	assert.Equal(t, "#!/bin/sh\nbefore\nafter\n", removeDangerSection(existing))

	plain := "#!/bin/sh\nsome-hook\n"
	assert.Equal(t, plain, removeDangerSection(plain))
}

func TestHookInstallAndUninstall(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	t.Chdir(dir)
	exitCode = ExitSuccess

	hookPath, err := getHookPath(".")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".git", "hooks", "pre-push"), hookPath)

	require.NoError(t, hookInstallCmd.RunE(hookInstallCmd, nil))
	data, err := os.ReadFile(hookPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "#!/bin/sh\n"+hookMarkerStart))

	require.NoError(t, hookUninstallCmd.RunE(hookUninstallCmd, nil))
	_, err = os.Stat(hookPath)
	assert.True(t, os.IsNotExist(err), "a hook that only ran danger is removed")
	assert.Equal(t, ExitSuccess, exitCode)
}

func TestHookUninstall_KeepsOtherHooks(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	t.Chdir(dir)

	hookPath := filepath.Join(dir, ".git", "hooks", "pre-push")
	require.NoError(t, os.MkdirAll(filepath.Dir(hookPath), 0o755))
	require.NoError(t, os.WriteFile(hookPath, []byte("#!/bin/sh\nmake lint\n"+generateHookScript("", "text")), 0o755))

	require.NoError(t, hookUninstallCmd.RunE(hookUninstallCmd, nil))
	data, err := os.ReadFile(hookPath)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\nmake lint\n", string(data))
}

func TestGetHookPath_NotARepository(t *testing.T) {
	_, err := getHookPath(t.TempDir())
	assert.Error(t, err)
}
