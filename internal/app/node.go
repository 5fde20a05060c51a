package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/modbridge/internal/adapters/config"
	"go.trai.ch/modbridge/internal/adapters/logger"
	"go.trai.ch/modbridge/internal/core/ports"
)

// NodeID is the unique identifier for the application components Graft node.
const NodeID graft.ID = "app.components"

func init() {
	graft.Register(graft.Node[*Components]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID, config.NodeID},
		Run: func(ctx context.Context) (*Components, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			loader, err := graft.Dep[ports.ConfigLoader](ctx)
			if err != nil {
				return nil, err
			}
			return &Components{
				App:    New(loader, log),
				Logger: log,
			}, nil
		},
	})
}
