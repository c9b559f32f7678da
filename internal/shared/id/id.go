// Package id generates sortable identifiers for published stream messages.
//
// IDs are ULIDs with a type prefix (msg_01J...). ULIDs generated within the
// same millisecond by one Generator are strictly increasing, so message ids
// sort in publish order.
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

// MessagePrefix marks stream message ids.
const MessagePrefix = "msg"

// MessageID identifies one published message.
type MessageID string

func (id MessageID) String() string { return string(id) }

// Timestamp returns the generation time encoded in the id.
func (id MessageID) Timestamp() (time.Time, error) {
	u, err := parsePrefixed(string(id), MessagePrefix)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()), nil
}

// ParseMessageID validates s as a message id.
func ParseMessageID(s string) (MessageID, error) {
	if _, err := parsePrefixed(s, MessagePrefix); err != nil {
		return "", err
	}
	return MessageID(s), nil
}

// Generator produces monotonic ULIDs.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator(rand.Reader)
	})
	return defaultGenerator
}

// NewGenerator creates a generator drawing randomness from entropy.
func NewGenerator(entropy io.Reader) *Generator {
	return &Generator{
		entropy: ulid.Monotonic(entropy, 0),
		now:     time.Now,
	}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return prefix + "_" + g.Generate().String()
}

// MessageID creates a new message id.
func (g *Generator) MessageID() MessageID {
	return MessageID(g.GenerateWithPrefix(MessagePrefix))
}

// NewMessageID creates a message id from the default generator.
func NewMessageID() MessageID {
	return Default().MessageID()
}

func parsePrefixed(s, prefix string) (ulid.ULID, error) {
	rest, ok := strings.CutPrefix(s, prefix+"_")
	if !ok {
		return ulid.ULID{}, fmt.Errorf("id %q: missing %s_ prefix", s, prefix)
	}
	u, err := ulid.ParseStrict(rest)
	if err != nil {
		return ulid.ULID{}, fmt.Errorf("id %q: %w", s, err)
	}
	return u, nil
}
