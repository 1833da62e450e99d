package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// User is a single record of the user list: an "id" plus whatever fields the client sent.
type User map[string]any

// Users is the whole persisted collection.
type Users []User

// StatusResponse is the body of every mutating API call.
// ID is omitted when the operation does not report one.
type StatusResponse struct {
	Status string `json:"status"`
	ID     any    `json:"id,omitempty"`
}

const (
	StatusSuccess     = "success"
	StatusNoFile      = "no file"
	StatusNoFilePatch = "No file"
	StatusFileDeleted = "file was deleted"
)

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)

// IDKey is the field of a User holding its identifier.
const IDKey = "id"

// ID returns the numeric identifier of the user and whether it has one.
// Only JSON numbers count: a string "2" is not the id 2.
func (u User) ID() (float64, bool) {
	switch id := u[IDKey].(type) {
	case json.Number:
		f, err := id.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case float64:
		return id, true
	case int:
		return float64(id), true
	case int64:
		return float64(id), true
	}

	return 0, false
}

// HasID reports whether the numeric identifier of the user equals id.
func (u User) HasID(id float64) bool {
	own, ok := u.ID()
	return ok && own == id
}

// Merge copies every field of partial over u.
func (u User) Merge(partial User) {
	for key, value := range partial {
		u[key] = value
	}
}

// Clone returns a shallow copy of u.
func (u User) Clone() User {
	clone := make(User, len(u)+1)
	clone.Merge(u)
	return clone
}

// ParseID coerces an identifier arriving as text (a path segment) to a number.
// Surrounding whitespace is ignored and an empty string is zero.
// Anything else that is not a decimal number yields NaN, which equals no id.
func ParseID(raw string) float64 {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0
	}
	id, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return math.NaN()
	}
	return id
}

// IDValue is the representation of a coerced identifier in responses:
// integral values become integers, NaN echoes the original text.
func IDValue(id float64, raw string) any {
	if math.IsNaN(id) || math.IsInf(id, 0) {
		return raw
	}
	if id == math.Trunc(id) && math.Abs(id) < 1<<53 {
		return int64(id)
	}
	return id
}
