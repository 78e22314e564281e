package rules

import (
	"encoding/json"
	"fmt"

	"github.com/obsidianstack/synthetics/pkg/types"
)

// encoded holds the JSON columns shared by the SQL registries.
type encoded struct {
	tags    []byte
	params  []byte
	actions []byte
}

func encodeColumns(tags []string, params map[string]any, actions []types.Action) (encoded, error) {
	var (
		e   encoded
		err error
	)
	if tags == nil {
		tags = []string{}
	}
	if params == nil {
		params = map[string]any{}
	}
	if actions == nil {
		actions = []types.Action{}
	}
	if e.tags, err = json.Marshal(tags); err != nil {
		return e, fmt.Errorf("encode tags: %w", err)
	}
	if e.params, err = json.Marshal(params); err != nil {
		return e, fmt.Errorf("encode params: %w", err)
	}
	if e.actions, err = json.Marshal(actions); err != nil {
		return e, fmt.Errorf("encode actions: %w", err)
	}
	return e, nil
}

func decodeColumns(r *types.Rule, tags, params, actions []byte) error {
	if err := json.Unmarshal(tags, &r.Tags); err != nil {
		return fmt.Errorf("decode tags: %w", err)
	}
	if err := json.Unmarshal(params, &r.Params); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	if err := json.Unmarshal(actions, &r.Actions); err != nil {
		return fmt.Errorf("decode actions: %w", err)
	}
	return nil
}
