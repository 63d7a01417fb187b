package model

// Collection names shared by all backends.
const (
	CollectionUsers    = "users"
	CollectionSessions = "sessions"
	CollectionChatLogs = "chat_logs"
)

// Collections lists the collections every backend maintains, in reporting order.
var Collections = []string{CollectionUsers, CollectionSessions, CollectionChatLogs}

// StoreStatus is the diagnostic snapshot reported by a storage backend.
// Only the health endpoint acts on it, through Connected.
type StoreStatus struct {
	Backend        string           `json:"backend"`
	Connected      bool             `json:"connected"`
	Database       string           `json:"database,omitempty"`
	Collections    []string         `json:"collections,omitempty"`
	DocumentCounts map[string]int64 `json:"document_counts,omitempty"`
	SizeEstimate   string           `json:"size_estimate,omitempty"`
	Message        string           `json:"message"`
}
