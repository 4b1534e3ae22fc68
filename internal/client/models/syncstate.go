package models

// SyncState tracks whether a locally stored record has been confirmed by the
// remote document store.
type SyncState string

const (
	// SyncStatePending marks a record written locally but not confirmed
	// remotely.
	SyncStatePending SyncState = "PENDING"

	// SyncStateInSync is reserved. No operation currently assigns it; it is
	// kept so stored values round-trip and a future "sync in progress" phase
	// can use it without a schema change.
	SyncStateInSync SyncState = "IN_SYNC"

	// SyncStateSynced marks a record confirmed present in the remote store.
	SyncStateSynced SyncState = "SYNCED"
)
