package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return newLogger(&buf, slog.LevelDebug, true), &buf
}

func TestLoadTextFile_Verbatim(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"hello world": "Hello\nWorld",
		"crlf":        "line one\r\nline two\r\n",
		"padded":      "   leading and trailing   \n\n",
		"unicode":     "Réponds en français 🙂",
		"empty":       "",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "prompt.txt")
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))

			logger, logs := captureLogger()
			assert.Equal(t, content, LoadTextFile(logger, path, "default"))
			assert.Empty(t, logs.String())
		})
	}
}

func TestLoadTextFile_MissingReturnsDefault(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing.txt")
	logger, logs := captureLogger()

	assert.Equal(t, "fallback", LoadTextFile(logger, path, "fallback"))
	assert.Contains(t, logs.String(), "WRN")
	assert.Contains(t, logs.String(), "file not found")
	assert.Contains(t, logs.String(), path)
}

func TestLoadTextFile_MissingNoDefault(t *testing.T) {
	t.Parallel()

	logger, _ := captureLogger()
	assert.Equal(t, "", LoadTextFile(logger, filepath.Join(t.TempDir(), "nope.txt"), ""))
}

func TestLoadTextFile_DirectoryIsError(t *testing.T) {
	t.Parallel()

	logger, logs := captureLogger()
	assert.Equal(t, "fallback", LoadTextFile(logger, t.TempDir(), "fallback"))
	assert.Contains(t, logs.String(), "ERR")
	assert.Contains(t, logs.String(), "failed to load file")
}

func TestLoadTextFile_InvalidUTF8(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "latin1.txt")
	require.NoError(t, os.WriteFile(path, []byte{'c', 'a', 'f', 0xe9}, 0644))

	logger, logs := captureLogger()
	assert.Equal(t, "fallback", LoadTextFile(logger, path, "fallback"))
	assert.Contains(t, logs.String(), "ERR")
	assert.Contains(t, logs.String(), "not valid UTF-8")
}

func TestLoadTextFile_PermissionDenied(t *testing.T) {
	t.Parallel()

	if os.Geteuid() == 0 {
		t.Skip("root ignores file permissions")
	}

	path := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(path, []byte("hidden"), 0000))

	logger, logs := captureLogger()
	assert.Equal(t, "fallback", LoadTextFile(logger, path, "fallback"))
	assert.Contains(t, logs.String(), "ERR")
}

func TestLoadTextFile_NilLogger(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		assert.Equal(t, "d", LoadTextFile(nil, filepath.Join(t.TempDir(), "missing"), "d"))
	})
}

func TestLoadAgentSpec(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	instructions := filepath.Join(dir, "instructions.txt")
	require.NoError(t, os.WriteFile(instructions, []byte("Build pages."), 0644))

	logger, logs := captureLogger()
	spec := loadAgentSpec(logger, AgentConfig{
		Name:             "website_builder_simple",
		InstructionsFile: instructions,
		DescriptionFile:  filepath.Join(dir, "missing.txt"),
	})

	assert.Equal(t, "website_builder_simple", spec.Name)
	assert.Equal(t, "Build pages.", spec.Instruction)
	assert.Equal(t, defaultDescription, spec.Description)
	assert.Contains(t, logs.String(), "missing.txt")
}

func TestLoadAgentSpec_NoPathsUsesEmbeddedPrompts(t *testing.T) {
	t.Parallel()

	logger, logs := captureLogger()
	spec := loadAgentSpec(logger, AgentConfig{Name: "builder"})

	assert.Equal(t, defaultInstruction, spec.Instruction)
	assert.Equal(t, defaultDescription, spec.Description)
	assert.Contains(t, spec.Instruction, writeToFileTool)
	assert.Empty(t, logs.String())
}
