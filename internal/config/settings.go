package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Settings is the flat run configuration the operator edits between
// sessions. Keys are key=value lines; '#' starts a comment. Unknown keys
// are ignored so old files keep working.
type Settings struct {
	// UseProxy leases a proxy from the pool for the browser.
	UseProxy bool
	// UseHotkey enables the manual-override toggle.
	UseHotkey bool
	// FakeErrors turns on the deliberate-miss budget.
	FakeErrors bool
	// UseAI enables the model fallback for unknown questions.
	UseAI bool
	// UseOnlyAISearch asks the model for every question, bypassing the
	// store.
	UseOnlyAISearch bool
	// TimeoutForAnswer is the per-question thinking time in seconds.
	TimeoutForAnswer int
	// NameAI picks the model backend and overrides config.yaml.
	NameAI string
}

// DefaultSettings returns the values used for keys absent from the file.
func DefaultSettings() *Settings {
	return &Settings{
		UseHotkey:        true,
		FakeErrors:       true,
		TimeoutForAnswer: 15,
	}
}

// LoadSettings parses settings.cfg. A missing file yields the defaults.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		key, value, found := strings.Cut(text, "=")
		if !found {
			return nil, fmt.Errorf("settings line %d: no '=' in %q", line, text)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "use_proxy":
			s.UseProxy = parseFlag(value)
		case "use_hotkey":
			s.UseHotkey = parseFlag(value)
		case "fake_errors":
			s.FakeErrors = parseFlag(value)
		case "use_ai":
			s.UseAI = parseFlag(value)
		case "use_only_ai_search":
			s.UseOnlyAISearch = parseFlag(value)
		case "timeout_for_answer":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("settings line %d: %q is not a number", line, value)
			}
			s.TimeoutForAnswer = n
		case "name_ai":
			s.NameAI = value
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	return s, nil
}

func parseFlag(value string) bool {
	return value == "1" || strings.EqualFold(value, "true")
}
