// Package prefs persists the console's theme preference. The stored value
// survives restarts and is written through on every change rather than held
// as hidden in-process state.
package prefs

import (
	"encoding/json"
	"errors"
	"os"
	"sync"

	"go.uber.org/zap"
)

// Theme values.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// ErrInvalidTheme is returned when a set request names an unknown theme.
var ErrInvalidTheme = errors.New("invalid theme")

type fileFormat struct {
	Theme string `json:"theme"`
}

// Store holds the theme preference, backed by a JSON file.
type Store struct {
	path   string
	logger *zap.Logger

	mu    sync.Mutex
	theme string
}

// Open reads the preference file at path. A missing file, unreadable JSON
// or an unknown theme value all fall back to light.
func Open(path string, logger *zap.Logger) *Store {
	s := &Store{path: path, logger: logger, theme: ThemeLight}

	payload, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("read prefs file", zap.String("path", path), zap.Error(err))
		}
		return s
	}

	var f fileFormat
	if err := json.Unmarshal(payload, &f); err != nil {
		logger.Warn("parse prefs file, using defaults", zap.String("path", path), zap.Error(err))
		return s
	}
	if f.Theme == ThemeLight || f.Theme == ThemeDark {
		s.theme = f.Theme
	}
	return s
}

// Theme returns the current theme.
func (s *Store) Theme() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// SetTheme validates and persists the theme. The file write happens on
// every change; a failed write keeps the in-memory value unchanged so the
// store never reports a theme it could not persist.
func (s *Store) SetTheme(theme string) error {
	if theme != ThemeLight && theme != ThemeDark {
		return ErrInvalidTheme
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(fileFormat{Theme: theme})
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, payload, 0o644); err != nil {
		s.logger.Error("write prefs file", zap.String("path", s.path), zap.Error(err))
		return err
	}
	s.theme = theme
	return nil
}
