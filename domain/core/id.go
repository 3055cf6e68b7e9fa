package core

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	RunID     ID
	RequestID ID
	FileID    ID
)

func (id RunID) String() string     { return ID(id).String() }
func (id RequestID) String() string { return ID(id).String() }
func (id FileID) String() string    { return ID(id).String() }

// NewRunID identifies one analysis run.
func NewRunID() RunID { return RunID(NewID()) }

// NewRequestID identifies one inbound HTTP or MCP request.
func NewRequestID() RequestID { return RequestID(NewID()) }

// ParseFileID validates an uploaded-file identifier.
func ParseFileID(s string) (FileID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("file ID cannot be empty")
	}
	if _, err := ulid.ParseStrict(s); err != nil {
		return "", fmt.Errorf("invalid file ID %q: %w", s, err)
	}
	return FileID(s), nil
}

// FileIDGenerator hands out monotonic ULIDs. Safe for concurrent use.
type FileIDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// NewFileIDGenerator creates a generator seeded from crypto/rand.
func NewFileIDGenerator() *FileIDGenerator {
	return &FileIDGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// Next returns a fresh identifier, strictly increasing within the generator.
func (g *FileIDGenerator) Next() (FileID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(g.now()), g.entropy)
	if err != nil {
		return "", fmt.Errorf("generate file ID: %w", err)
	}
	return FileID(id.String()), nil
}
