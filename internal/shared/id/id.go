// Package id generates task identifiers.
//
// Task identifiers are prefixed ULIDs ("task_01J...") drawn from a
// monotonic entropy source, so identifiers created by one generator sort
// in creation order even inside the same millisecond.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// TaskID identifies a session task for its whole lifetime
type TaskID string

// TaskPrefix is prepended to every task identifier
const TaskPrefix = "task"

// String returns the identifier text
func (id TaskID) String() string { return string(id) }

// Generator generates ULIDs with optional prefixes
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand
func NewGenerator() *Generator {
	return NewGeneratorWithEntropy(rand.Reader)
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Useful for deterministic tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: ulid.Monotonic(entropy, 0)}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewTaskID generates a task identifier from g
func (g *Generator) NewTaskID() TaskID {
	return TaskID(g.GenerateWithPrefix(TaskPrefix))
}

// NewTaskID generates a task identifier from the default generator
func NewTaskID() TaskID {
	return Default().NewTaskID()
}

// IsValid checks if a string is a valid ULID
func IsValid(s string) bool {
	_, err := ulid.Parse(s)
	return err == nil
}

// ParseTaskID validates a task identifier and returns its ULID part
func ParseTaskID(id TaskID) (ulid.ULID, error) {
	raw, ok := strings.CutPrefix(string(id), TaskPrefix+"_")
	if !ok {
		return ulid.ULID{}, fmt.Errorf("task id %q: missing %q prefix", id, TaskPrefix)
	}
	return ulid.Parse(raw)
}

// Created extracts the creation time of a task identifier
func Created(id TaskID) (time.Time, error) {
	parsed, err := ParseTaskID(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
