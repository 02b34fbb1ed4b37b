package utils

import (
	"errors"
	"strings"
	"testing"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestReadAll(t *testing.T) {
	data, err := readAll(strings.NewReader("buy kūmara\n"))
	if err != nil {
		t.Fatalf("readAll failed: %v", err)
	}
	if string(data) != "buy kūmara\n" {
		t.Errorf("Unexpected data %q", data)
	}

	if _, err := readAll(strings.NewReader("")); err == nil {
		t.Error("Expected an error for empty input")
	}

	if _, err := readAll(failingReader{}); err == nil || !strings.Contains(err.Error(), "broken pipe") {
		t.Errorf("Expected the read error to be wrapped, got %v", err)
	}
}
