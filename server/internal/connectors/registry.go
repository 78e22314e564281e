package connectors

import (
	"context"

	"github.com/obsidianstack/synthetics/pkg/types"
)

// Registry lists configured action connectors. GetAll may fail; callers
// decide whether that is fatal.
type Registry interface {
	GetAll(ctx context.Context) ([]types.Connector, error)
}

// Static is a Registry over a fixed connector list.
type Static struct {
	connectors []types.Connector
}

// NewStatic returns a Registry serving a copy of cs in the given order.
func NewStatic(cs []types.Connector) *Static {
	return &Static{connectors: append([]types.Connector(nil), cs...)}
}

// GetAll returns a copy of the configured connectors.
func (s *Static) GetAll(context.Context) ([]types.Connector, error) {
	return append([]types.Connector(nil), s.connectors...), nil
}

// Find returns the connector with the given id from r.
func Find(ctx context.Context, r Registry, id string) (types.Connector, bool, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return types.Connector{}, false, err
	}
	for _, c := range all {
		if c.ID == id {
			return c, true, nil
		}
	}
	return types.Connector{}, false, nil
}
