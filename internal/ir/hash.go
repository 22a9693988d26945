package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// DomainHistory is the domain prefix for history entry hashes.
// The version suffix leaves room for a future algorithm migration.
const DomainHistory = "taskflow/history/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// HistoryHash computes the chained hash of a history entry.
// Covers every field except ID and Hash itself; PrevHash links the chain.
func HistoryHash(e HistoryEntry) (string, error) {
	obj := map[string]any{
		"task_id":     e.TaskID,
		"seq":         e.Seq,
		"actor":       e.Actor,
		"action":      string(e.Action),
		"description": e.Description,
		"created_at":  e.CreatedAt.UTC().Format(time.RFC3339Nano),
		"prev_hash":   e.PrevHash,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("HistoryHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainHistory, canonical), nil
}
