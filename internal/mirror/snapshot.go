package mirror

import (
	"encoding/json"
	"fmt"
	"time"
)

const snapshotVersion = 1

// envelope is the persisted form of a store: the full ordered list plus a
// format version.
type envelope struct {
	Version int             `json:"version"`
	State   json.RawMessage `json:"state"`
	SavedAt time.Time       `json:"savedAt"`
}

func encodeSnapshot[T any](items []T, now time.Time) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	state, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encoding state: %w", err)
	}
	return json.Marshal(envelope{Version: snapshotVersion, State: state, SavedAt: now.UTC()})
}

func decodeSnapshot[T any](payload []byte) ([]T, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}
	if env.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", env.Version)
	}
	var items []T
	if len(env.State) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(env.State, &items); err != nil {
		return nil, fmt.Errorf("decoding state: %w", err)
	}
	return items, nil
}
