// Package id provides identifier generation for script runs and hosts.
//
// Run IDs are prefixed ULIDs, so they sort by start time in logs and in the
// /logs API. Host IDs are random UUIDs; hosts are long lived and only need
// to be unique.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// RunID identifies a single script evaluation
type RunID string

// HostID identifies a script host instance
type HostID string

const (
	RunPrefix  = "run"
	HostPrefix = "host"
)

// NewTraceID generates an unprefixed ULID for request tracing.
func NewTraceID() string {
	return Default().Generate().String()
}

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewRunID generates a new run ID
func NewRunID() RunID {
	return RunID(Default().GenerateWithPrefix(RunPrefix))
}

// NewHostID generates a new host ID
func NewHostID() HostID {
	return HostID(HostPrefix + "_" + uuid.NewString())
}

func (id RunID) String() string  { return string(id) }
func (id HostID) String() string { return string(id) }
