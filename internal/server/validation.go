package server

import (
	"errors"
	"fmt"
	"strings"
)

const (
	maxBodyBytes   = 512 * 1024
	maxGuessLength = 60
	maxPathLength  = 512
	maxFieldCount  = 64
)

func validateGuess(text string) (string, error) {
	trimmed := normalizeText(text)
	if trimmed == "" {
		return "", errors.New("guess is required")
	}
	if len(trimmed) > maxGuessLength {
		return "", fmt.Errorf("guess must be %d characters or fewer", maxGuessLength)
	}
	return trimmed, nil
}

func validateFields(fields map[string]any) error {
	if len(fields) == 0 {
		return errors.New("fields are required")
	}
	if len(fields) > maxFieldCount {
		return fmt.Errorf("at most %d fields per write", maxFieldCount)
	}
	for key := range fields {
		if strings.TrimSpace(key) == "" {
			return errors.New("field names must not be blank")
		}
	}
	return nil
}

func validatePathLength(path string) error {
	if len(path) > maxPathLength {
		return fmt.Errorf("path must be %d characters or fewer", maxPathLength)
	}
	return nil
}

func normalizeText(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	return strings.Join(fields, " ")
}
