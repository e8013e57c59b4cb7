package agent

import (
	"encoding/json"
	"fmt"

	"github.com/typhonlabs/missioncore/pkg/providers"
)

// sessionState is the loop bookkeeping persisted at step boundaries.
type sessionState struct {
	SessionID       string              `json:"session_id"`
	Mission         string              `json:"mission"`
	Messages        []providers.Message `json:"messages"`
	Step            int                 `json:"step"`
	Status          Status              `json:"status"`
	PendingQuestion *PendingQuestion    `json:"pending_question,omitempty"`
	Usage           providers.UsageInfo `json:"usage"`
}

// encodeState converts the typed state into the generic mapping the
// state manager persists.
func encodeState(st *sessionState) (map[string]any, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", st.SessionID, err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("encode session %s: %w", st.SessionID, err)
	}
	return m, nil
}

func decodeState(m map[string]any) (*sessionState, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	var st sessionState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	return &st, nil
}
