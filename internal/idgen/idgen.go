// Package idgen provides short, URL-safe unique ID generation backed by nanoid.
// Record primary keys are UUIDs; these ids are used where a short token reads
// better, such as object storage keys and simulated platform post ids.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet defines the character set used for the random portion of the ID.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
var Length = 10

// GenerateWithPrefix returns a new unique ID with the given prefix.
func GenerateWithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// ObjectKey returns a storage key of the form "<dir>/<id><ext>".
func ObjectKey(dir, ext string) (string, error) {
	id, err := GenerateWithPrefix("")
	if err != nil {
		return "", err
	}
	if dir == "" {
		return id + ext, nil
	}
	return dir + "/" + id + ext, nil
}
