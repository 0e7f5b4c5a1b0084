package model

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Length limits enforced both by forms and by the mock backend.
const (
	MaxNameLength  = 64
	MaxTitleLength = 128
	MaxValueLength = 255
)

// Bounds of RANDOM bindings. Numbers stay within the integers a JSON number
// (float64) holds exactly; strings are at most MaxRandomLength characters.
const (
	MaxRandomNumber = 1 << 53
	MaxRandomLength = 4096
)

// CheckName applies the naming rules shared by structures, structure fields
// and parameters: non-empty, no whitespace, bounded length. An empty Status
// means the name is acceptable.
func CheckName(name string) Status {
	if name == "" {
		return StatusNameEmpty
	}
	if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return StatusNameContainsWhitespace
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return StatusNameTooLong
	}
	return ""
}

// CheckScenarioName is CheckName without the whitespace rule; scenario names
// such as "Login Flow" are free text.
func CheckScenarioName(name string) Status {
	if strings.TrimSpace(name) == "" {
		return StatusNameEmpty
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return StatusNameTooLong
	}
	return ""
}

// CheckTitle validates a step title.
func CheckTitle(title string) Status {
	if strings.TrimSpace(title) == "" {
		return StatusTitleEmpty
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return StatusTitleTooLong
	}
	return ""
}

// CheckParameterValue validates a parameter's initial value.
func CheckParameterValue(value string) Status {
	if value == "" {
		return StatusValueEmpty
	}
	if utf8.RuneCountInString(value) > MaxValueLength {
		return StatusValueTooLong
	}
	return ""
}
