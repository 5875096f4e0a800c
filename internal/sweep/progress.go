package sweep

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Status is the lifecycle state of a sweep run, persisted alongside its
// progress record.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusPaused    Status = "paused"
	StatusError     Status = "error"
)

// Progress mirrors spec §3's SweepProgress record, persisted in a
// key-value store with a 7-day TTL (spec §6: Redis key
// `strategy_progress:{inst}:{period}`).
type Progress struct {
	Inst                  string `json:"inst"`
	Period                string `json:"period"`
	ConfigHash            string `json:"config_hash"`
	TotalCombinations     int    `json:"total_combinations"`
	CompletedCombinations int    `json:"completed_combinations"`
	CurrentIndex          int    `json:"current_index"`
	LastUpdateMS          int64  `json:"last_update_ms"`
	Status                Status `json:"status"`
}

// ConfigHash returns the hex SHA-256 digest of a canonical serialization of
// lists, used to detect when the parameter grid itself has changed between
// runs. Canonicalization is list order (as given, not sorted — the caller's
// list order is the grid's identity) joined with value %v formatting; two
// generators built from the same lists in the same order always hash equal.
func ConfigHash(lists []ParamList) string {
	var sb strings.Builder
	for _, l := range lists {
		sb.WriteString(l.Name)
		sb.WriteByte('=')
		vals := make([]string, len(l.Values))
		for i, v := range l.Values {
			vals[i] = fmt.Sprintf("%v", v)
		}
		sb.WriteString(strings.Join(vals, ","))
		sb.WriteByte(';')
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

// Store is the key-value persistence boundary for Progress records. The
// concrete implementation (Redis, per spec §6) lives in internal/store/redis
// and is injected here to keep this package free of a Redis dependency.
type Store interface {
	Load(inst, period string) (*Progress, error)
	Save(p *Progress) error
}

// Resume decides whether driver state should resume from a stored Progress
// record or restart fresh, per spec §4.I: same config hash and status
// other than completed resumes; anything else restarts at index 0.
func Resume(stored *Progress, configHash string) (startIndex int, fresh bool) {
	if stored == nil {
		return 0, true
	}
	if stored.ConfigHash != configHash {
		return 0, true
	}
	if stored.Status == StatusCompleted {
		return 0, true
	}
	return stored.CurrentIndex, false
}
