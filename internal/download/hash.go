package download

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// FileSHA512 computes the hex sha512 of a file, streaming it in one pass.
func FileSHA512(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	h := sha512.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyFile recomputes a file's sha512 and compares it to expected,
// case-insensitively.
func VerifyFile(path, expected string) error {
	actual, err := FileSHA512(path)
	if err != nil {
		return err
	}
	if !strings.EqualFold(actual, expected) {
		return &HashMismatchError{Filename: path, Expected: expected, Actual: actual}
	}
	return nil
}
