package share

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

/***************
 * Shared fakes
 ***************/

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// testToken returns a well-formed 32-char hex token.
func testToken(n int) string {
	return fmt.Sprintf("%032x", n)
}

// plainVerifier stores "hashed:"+plaintext so tests avoid bcrypt's cost.
type plainVerifier struct {
	mu          sync.Mutex
	verifyCalls int
	hashErr     error
}

func (v *plainVerifier) Hash(plaintext string) (string, error) {
	if v.hashErr != nil {
		return "", v.hashErr
	}
	return "hashed:" + plaintext, nil
}

func (v *plainVerifier) Verify(plaintext, digest string) bool {
	v.mu.Lock()
	v.verifyCalls++
	v.mu.Unlock()
	return strings.TrimPrefix(digest, "hashed:") == plaintext && strings.HasPrefix(digest, "hashed:")
}

func (v *plainVerifier) calls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.verifyCalls
}

// captureRecorder keeps every record it is handed.
type captureRecorder struct {
	mu      sync.Mutex
	records []AccessRecord
}

func (c *captureRecorder) Record(rec AccessRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, rec)
}

func (c *captureRecorder) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// prefixHasher is a readable stand-in for the keyed viewer hash.
type prefixHasher struct{}

func (prefixHasher) Sum(identity string) string { return "viewer:" + identity }

// sequenceMinter hands out tokens in order, then repeats the last one.
type sequenceMinter struct {
	tokens []string
	err    error
	calls  int
}

func (m *sequenceMinter) Mint() (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	idx := m.calls - 1
	if idx >= len(m.tokens) {
		idx = len(m.tokens) - 1
	}
	return m.tokens[idx], nil
}

func int32p(v int32) *int32 { return &v }

func strp(s string) *string { return &s }

func boolp(b bool) *bool { return &b }

func timep(t time.Time) *time.Time { return &t }

// seedLink stores a link with the given mutations applied and returns it.
func seedLink(t *testing.T, repo *MemoryRepository, owner uuid.UUID, token string, mutate func(*Link)) Link {
	t.Helper()

	link := Link{
		OwnerID:     owner,
		Token:       token,
		Title:       "doc",
		Content:     "hello",
		ContentType: "text/plain",
		IsActive:    true,
	}
	if mutate != nil {
		mutate(&link)
	}
	active := link.IsActive
	views := link.CurrentViews

	created, err := repo.Create(context.Background(), link)
	if err != nil {
		t.Fatalf("seed Create() unexpected error: %v", err)
	}

	// Create always starts active with zero views; apply the seeded state directly.
	repo.mu.Lock()
	stored := repo.links[created.ID]
	stored.CurrentViews = views
	stored.IsActive = active
	snapshot := cloneLink(*stored)
	repo.mu.Unlock()

	return snapshot
}
