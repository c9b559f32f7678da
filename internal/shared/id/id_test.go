package id

import (
	"crypto/rand"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestGenerateIsMonotonic(t *testing.T) {
	gen := NewGenerator(rand.Reader)
	fixed := time.UnixMilli(1_700_000_000_000)
	gen.now = func() time.Time { return fixed }

	prev := gen.Generate()
	for i := 0; i < 100; i++ {
		next := gen.Generate()
		if next.Compare(prev) <= 0 {
			t.Fatalf("ids not increasing within one millisecond: %s then %s", prev, next)
		}
		prev = next
	}
}

func TestGenerateWithPrefix(t *testing.T) {
	gen := NewGenerator(rand.Reader)

	for _, prefix := range []string{"msg", "evt"} {
		got := gen.GenerateWithPrefix(prefix)

		if !strings.HasPrefix(got, prefix+"_") {
			t.Errorf("ID should start with '%s_', got: %s", prefix, got)
		}
		if len(got) != len(prefix)+1+26 {
			t.Errorf("unexpected length %d for %s", len(got), got)
		}
	}
}

func TestMessageIDRoundTrip(t *testing.T) {
	before := time.Now().Truncate(time.Millisecond)
	msgID := NewMessageID()

	parsed, err := ParseMessageID(msgID.String())
	if err != nil {
		t.Fatalf("ParseMessageID(%s): %v", msgID, err)
	}
	if parsed != msgID {
		t.Errorf("got %s, want %s", parsed, msgID)
	}

	ts, err := msgID.Timestamp()
	if err != nil {
		t.Fatalf("Timestamp: %v", err)
	}
	if ts.Before(before) || ts.After(time.Now()) {
		t.Errorf("timestamp %v outside generation window", ts)
	}
}

func TestParseMessageIDRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"no prefix", "01ARZ3NDEKTSV4RRFFQ69G5FAV"},
		{"wrong prefix", "req_01ARZ3NDEKTSV4RRFFQ69G5FAV"},
		{"bad ulid", "msg_not-a-ulid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseMessageID(tt.input); err == nil {
				t.Errorf("ParseMessageID(%q) should fail", tt.input)
			}
		})
	}
}

func TestConcurrentGeneration(t *testing.T) {
	gen := Default()
	const workers, perWorker = 8, 200

	var mu sync.Mutex
	seen := make(map[MessageID]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := gen.MessageID()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Errorf("expected %d unique ids, got %d", workers*perWorker, len(seen))
	}
}
