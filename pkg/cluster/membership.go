package cluster

import (
	"sync"
	"time"
)

// ReplicaStatus classifies a replica from its recent probe history.
type ReplicaStatus string

const (
	StatusUp      ReplicaStatus = "up"
	StatusSuspect ReplicaStatus = "suspect"
	StatusDown    ReplicaStatus = "down"
)

// Failure thresholds driving status transitions. The counter alone
// determines status, so transitions are deterministic and replayable.
const (
	SuspectAfterFailures = 2
	DownAfterFailures    = 5
)

// priority orders statuses for replica selection: UP before SUSPECT
// before DOWN.
func (s ReplicaStatus) priority() int {
	switch s {
	case StatusUp:
		return 0
	case StatusSuspect:
		return 1
	default:
		return 2
	}
}

// ReplicaState is the membership record for one replica. A replica starts
// SUSPECT and not ready until its first probe answers.
type ReplicaState struct {
	Status              ReplicaStatus `json:"status"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	LastSeen            time.Time     `json:"last_seen_ts"`
	LastRTTMS           float64       `json:"last_rtt_ms"`
	Ready               bool          `json:"ready"`
}

func newReplicaState() *ReplicaState {
	return &ReplicaState{Status: StatusSuspect}
}

// Membership tracks replica states. The heartbeat loop is the only
// writer; request handlers read momentary snapshots and tolerate slight
// staleness. Locks are held only around map access, never across I/O.
type Membership struct {
	mu       sync.RWMutex
	replicas map[string]*ReplicaState
}

// NewMembership creates a table pre-seeded with the given replicas.
func NewMembership(bases []string) *Membership {
	m := &Membership{replicas: make(map[string]*ReplicaState, len(bases))}
	for _, base := range bases {
		m.replicas[base] = newReplicaState()
	}
	return m
}

// Ensure adds any unseen replicas in their starting state.
func (m *Membership) Ensure(bases ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, base := range bases {
		if _, ok := m.replicas[base]; !ok {
			m.replicas[base] = newReplicaState()
		}
	}
}

// MarkSuccess records a 200 probe: the failure counter resets and the
// replica is ready.
func (m *Membership) MarkSuccess(base string, rttMS float64, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.state(base)
	state.ConsecutiveFailures = 0
	state.LastSeen = now
	state.LastRTTMS = rttMS
	state.Ready = true
	state.Status = statusFor(state.ConsecutiveFailures)
}

// MarkFailure records a failed probe. Non-200 responses still carry a
// round-trip time; transport errors do not (pass rttMS < 0).
func (m *Membership) MarkFailure(base string, rttMS float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.state(base)
	state.ConsecutiveFailures++
	state.Ready = false
	if rttMS >= 0 {
		state.LastRTTMS = rttMS
	}
	state.Status = statusFor(state.ConsecutiveFailures)
}

// state returns the record for base, creating it if the heartbeat races a
// topology the table has not seen. Callers hold the write lock.
func (m *Membership) state(base string) *ReplicaState {
	s, ok := m.replicas[base]
	if !ok {
		s = newReplicaState()
		m.replicas[base] = s
	}
	return s
}

func statusFor(failures int) ReplicaStatus {
	switch {
	case failures >= DownAfterFailures:
		return StatusDown
	case failures >= SuspectAfterFailures:
		return StatusSuspect
	default:
		return StatusUp
	}
}

// Snapshot returns a copy of one replica's state.
func (m *Membership) Snapshot(base string) (ReplicaState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.replicas[base]
	if !ok {
		return ReplicaState{}, false
	}
	return *s, true
}

// SnapshotAll returns a copy of the whole table.
func (m *Membership) SnapshotAll() map[string]ReplicaState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]ReplicaState, len(m.replicas))
	for base, s := range m.replicas {
		out[base] = *s
	}
	return out
}

// StatusOf returns a replica's current status; unknown replicas count as
// SUSPECT, the starting state.
func (m *Membership) StatusOf(base string) ReplicaStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if s, ok := m.replicas[base]; ok {
		return s.Status
	}
	return StatusSuspect
}
