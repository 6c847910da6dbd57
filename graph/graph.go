// Package graph provides node discovery over the reserved graph subjects.
// Every node announces itself periodically; monitors maintain the live set
// and prune nodes whose announcements stop arriving.
package graph

import (
	"encoding/json"
	"time"
)

// Default timings. A node is considered gone after missing three
// announcement intervals.
const (
	DefaultInterval = 1 * time.Second
	DefaultTTL      = 3 * DefaultInterval
)

// NodeInfo is one node's announcement payload.
type NodeInfo struct {
	Name      string    `json:"name"`
	GID       string    `json:"gid"`
	Topics    []string  `json:"topics,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Marshal encodes the announcement.
func (i *NodeInfo) Marshal() ([]byte, error) {
	return json.Marshal(i)
}

// UnmarshalNodeInfo decodes an announcement payload.
func UnmarshalNodeInfo(data []byte) (*NodeInfo, error) {
	var info NodeInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
