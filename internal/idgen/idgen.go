// Package idgen generates farm session and worker instance identifiers.
// Identifiers are opaque; callers must not parse them.
package idgen

import (
	"strconv"

	"github.com/google/uuid"
)

// NewFunc generates a unique identifier; tests may stub it.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new unique identifier
func New() string { return NewFunc() }

// Instance returns an identifier for one started instance of a worker slot
func Instance(workerID int) string {
	return "worker-" + strconv.Itoa(workerID) + "-" + New()
}
