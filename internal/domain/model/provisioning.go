package model

import "time"

// SagaState tracks one orchestrator operation.
type SagaState string

const (
	SagaStarted       SagaState = "started"
	SagaRemoteApplied SagaState = "remote_applied"
	SagaLocalApplied  SagaState = "local_applied"
	SagaCommitted     SagaState = "committed"
	SagaRollingBack   SagaState = "rolling_back"
	SagaRolledBack    SagaState = "rolled_back"
	SagaFailed        SagaState = "failed"
)

// ProvisioningTx is the in-memory record of saga progress. It is only
// persisted, as a RollbackEntry, when compensation fails.
type ProvisioningTx struct {
	Operation     string
	SubscriberID  string
	ServerID      string
	ServerName    string
	ClientID      string
	ClientExisted bool
	State         SagaState
	RemoteApplied bool
	LocalApplied  bool
	Err           error
}

// Advance moves the saga to next and records the step flags.
func (t *ProvisioningTx) Advance(next SagaState) {
	t.State = next
	switch next {
	case SagaRemoteApplied:
		t.RemoteApplied = true
	case SagaLocalApplied, SagaCommitted:
		t.LocalApplied = true
	}
}

// Fail marks the saga failed with err unless it is already rolling back.
func (t *ProvisioningTx) Fail(err error) {
	t.Err = err
	if t.State != SagaRollingBack && t.State != SagaRolledBack {
		t.State = SagaFailed
	}
}

// CompensationFailed records that the rollback step itself failed; err is
// the original failure that triggered it.
func (t *ProvisioningTx) CompensationFailed(err error) {
	t.Err = err
	t.State = SagaFailed
}

// Terminal reports whether the saga reached an end state.
func (t *ProvisioningTx) Terminal() bool {
	switch t.State {
	case SagaCommitted, SagaRolledBack, SagaFailed:
		return true
	}
	return false
}

type RollbackStatus string

const (
	RollbackStatusPending  RollbackStatus = "pending"
	RollbackStatusResolved RollbackStatus = "resolved"
)

// RollbackEntry is a failed compensation awaiting operator action.
type RollbackEntry struct {
	ID             string // ULID
	Operation      string
	SubscriberID   string
	ServerID       string
	ClientID       string
	OriginalError  string
	RollbackError  string
	Status         RollbackStatus
	CreatedAt      time.Time
	ResolvedAt     *time.Time
	ResolutionNote string
}

// NewRollbackEntry captures a failed compensation from a saga record.
func NewRollbackEntry(id string, tx *ProvisioningTx, original, rollback error, now time.Time) *RollbackEntry {
	e := &RollbackEntry{
		ID:           id,
		Operation:    tx.Operation,
		SubscriberID: tx.SubscriberID,
		ServerID:     tx.ServerID,
		ClientID:     tx.ClientID,
		Status:       RollbackStatusPending,
		CreatedAt:    now,
	}
	if original != nil {
		e.OriginalError = original.Error()
	}
	if rollback != nil {
		e.RollbackError = rollback.Error()
	}
	return e
}
