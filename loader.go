package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"unicode/utf8"
)

// LoadTextFile returns the contents of path, or def if the file cannot be
// read. It never fails: a missing file is logged as a warning, anything
// else as an error.
func LoadTextFile(logger *slog.Logger, path, def string) string {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err == nil && !utf8.Valid(data) {
		err = fmt.Errorf("%s is not valid UTF-8", path)
	}

	switch {
	case err == nil:
		return string(data)
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn("file not found, using default", "path", path)
	default:
		logger.Error("failed to load file, using default", "path", path, "err", err)
	}
	return def
}
