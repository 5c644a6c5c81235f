// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package uuid provides the account identifiers of the platform.

Identifiers are Version 7 UUIDs: time-ordered, so new accounts append to the
primary-key B-tree in PostgreSQL instead of scattering across it.
*/
package uuid

import "github.com/google/uuid"

// # Generators

// New generates a new UUIDv7 string.
func New() string {
	id, err := uuid.NewV7()

	// entropy failure is an unrecoverable system-level error
	if err != nil {
		panic("uuid: failed to generate UUIDv7: " + err.Error())
	}

	return id.String()
}

// # Validation

// Valid reports whether s is a well-formed UUID in canonical 36-character form.
//
// Token claims carry account IDs as plain strings, so callers check them here
// before spending a database round trip on a value that can never match.
func Valid(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
