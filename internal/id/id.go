// Package id generates prefixed identifiers for live subscriptions.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// alphabet avoids '-' and '_' so the prefix separator stays unambiguous.
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// shortSize keeps log lines readable; collisions only matter within one process.
const shortSize = 10

// Short creates a compact prefixed ID from a lowercase alphanumeric alphabet
// (e.g., "sub-k3v9q0z1xa").
func Short(prefix string) (string, error) {
	id, err := gonanoid.Generate(alphabet, shortSize)
	if err != nil {
		return "", fmt.Errorf("generate short nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustShort is like Short but panics if ID generation fails.
func MustShort(prefix string) string {
	id, err := Short(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}
