package hash

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
)

// Sum returns the hex-encoded sha256 of data.
func Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum)
}

// SumFile returns the hex-encoded sha256 of a file's contents.
func SumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
