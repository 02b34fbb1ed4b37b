package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ReadStdin returns everything piped to the process. It refuses to block on
// an interactive terminal; hint tells the user what to do instead.
func ReadStdin(hint string) ([]byte, error) {
	if IsTerminal() {
		return nil, fmt.Errorf("nothing piped on stdin (%s)", hint)
	}
	return readAll(os.Stdin)
}

func readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("stdin is empty")
	}
	return data, nil
}
