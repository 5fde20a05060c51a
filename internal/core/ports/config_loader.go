package ports

import "go.trai.ch/modbridge/internal/core/domain"

// ConfigLoader loads the bridge configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load discovers and reads the configuration starting from cwd.
	// A missing configuration file yields defaults, not an error.
	Load(cwd string) (*domain.Config, error)
}
