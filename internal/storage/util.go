package storage

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
)

// EnsureDir ensures a directory exists with default permissions.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// NewRecordID generates a unique record ID.
func NewRecordID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// This should never happen with a working system RNG
		panic(fmt.Sprintf("failed to generate random record ID: %v", err))
	}
	return hex.EncodeToString(bytes)
}
