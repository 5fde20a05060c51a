// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/modbridge/internal/adapters/config"
	_ "go.trai.ch/modbridge/internal/adapters/logger"
	// Register app nodes.
	_ "go.trai.ch/modbridge/internal/app"
)
