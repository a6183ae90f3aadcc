// Package stats holds the server's process-wide counters and the
// SIGHUP-triggered reporter that prints them.
package stats

import (
	"sync"

	"github.com/danmuck/faceguard/internal/observability"
)

// Stats is mutated only while holding mu; it is always the innermost
// (leaf-level) lock in the server — never acquired while holding the
// scratch-file lock or the cascade lock.
type Stats struct {
	mu sync.Mutex

	currentClients    uint64
	completedClients  uint64
	faceDetectOK      uint64
	faceReplaceOK     uint64
	malformedRequests uint64
}

// New returns a zeroed Stats.
func New() *Stats {
	return &Stats{}
}

// ClientConnected records one newly accepted connection.
func (s *Stats) ClientConnected() {
	s.mu.Lock()
	s.currentClients++
	s.mu.Unlock()
	observability.SetCurrentClients(s.snapshotCurrent())
}

// ClientCompleted moves one connection from current to completed. It is
// called exactly once per worker, on every exit path including the
// bad-magic path: completion is always recorded after the response has been
// sent, never before, matching the prefix-response-file quirk noted in
// spec.md §9.
func (s *Stats) ClientCompleted() {
	s.mu.Lock()
	s.currentClients--
	s.completedClients++
	s.mu.Unlock()
	observability.SetCurrentClients(s.snapshotCurrent())
	observability.IncCompletedClients()
}

// FaceDetectOK records one successful detect response.
func (s *Stats) FaceDetectOK() {
	s.mu.Lock()
	s.faceDetectOK++
	s.mu.Unlock()
	observability.IncFaceDetectOK()
}

// FaceReplaceOK records one successful replace response.
func (s *Stats) FaceReplaceOK() {
	s.mu.Lock()
	s.faceReplaceOK++
	s.mu.Unlock()
	observability.IncFaceReplaceOK()
}

// MalformedRequest records one bad-magic connection.
func (s *Stats) MalformedRequest() {
	s.mu.Lock()
	s.malformedRequests++
	s.mu.Unlock()
	observability.IncMalformedRequests()
}

// Snapshot is an immutable copy of the five reported counters.
type Snapshot struct {
	CurrentClients    uint64
	CompletedClients  uint64
	FaceDetectOK      uint64
	FaceReplaceOK     uint64
	MalformedRequests uint64
}

// Snapshot takes the lock once and copies out all five counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		CurrentClients:    s.currentClients,
		CompletedClients:  s.completedClients,
		FaceDetectOK:      s.faceDetectOK,
		FaceReplaceOK:     s.faceReplaceOK,
		MalformedRequests: s.malformedRequests,
	}
}

func (s *Stats) snapshotCurrent() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentClients
}
