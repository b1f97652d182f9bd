package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mercator-hq/sovereign/pkg/audit"
)

const entryColumns = `seq, id, timestamp, actor, tenant_id, action, target, outcome, success, reason, metadata`

// placeholder renders the n-th (1-based) bind parameter.
type placeholder func(n int) string

func questionMark(int) string { return "?" }

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

// whereClause renders the filter part of q. Timestamps are bound through
// toTime so each backend can choose its column representation.
func whereClause(q *audit.Query, ph placeholder, toTime func(time.Time) interface{}) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, ph(len(args))))
	}

	if q.Actor != "" {
		add("actor = %s", q.Actor)
	}
	if q.TenantID != "" {
		add("tenant_id = %s", q.TenantID)
	}
	if q.Action != "" {
		add("action = %s", string(q.Action))
	}
	if q.Target != "" {
		add("target = %s", q.Target)
	}
	if q.Outcome != "" {
		add("outcome = %s", string(q.Outcome))
	}
	if q.StartTime != nil {
		add("timestamp >= %s", toTime(q.StartTime.UTC()))
	}
	if q.EndTime != nil {
		add("timestamp <= %s", toTime(q.EndTime.UTC()))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func encodeMetadata(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return string(b), nil
}

func decodeMetadata(s string) (map[string]string, error) {
	if s == "" || s == "{}" {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return m, nil
}
