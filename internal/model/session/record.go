package session

import "time"

// Record describes one chat session owned by a tenant partition.
type Record struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
}

// Project is a saved canvas document. Projects are namespaced per session;
// the same project id under two sessions refers to two independent records.
type Project struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	DocumentState string    `json:"documentState"`
	LastModified  time.Time `json:"lastModified"`
}

// CompositeKey joins a session id and project id into the storage key that
// keeps per-session project namespaces disjoint.
func CompositeKey(sessionID, projectID string) string {
	return sessionID + "-" + projectID
}
