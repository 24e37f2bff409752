// Package idgen mints client-side record ids. Ids are known before the
// insert is issued, so a writer can mark them pending for echo suppression
// ahead of the database round trip.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

const (
	ProjectPrefix      = "pr-"
	NotificationPrefix = "nt-"
)

// Alphabet is the character set of the random part of an id.
const Alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Length is the number of random characters after the prefix.
const Length = 12

// Project returns a new project id.
func Project() (string, error) {
	return WithPrefix(ProjectPrefix)
}

// Notification returns a new notification id.
func Notification() (string, error) {
	return WithPrefix(NotificationPrefix)
}

// WithPrefix returns prefix followed by Length random characters.
func WithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
