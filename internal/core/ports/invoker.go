// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.trai.ch/modbridge/internal/core/domain"
)

// Invoker runs the external graph-inspection tool.
//
//go:generate mockgen -source=invoker.go -destination=mocks/mock_invoker.go -package=mocks
type Invoker interface {
	// Inspect invokes the tool for the given specifier in workingDir and
	// returns the parsed dependency graph snapshot.
	//
	// The invocation may install a missing foreign package as a side effect;
	// that is idempotent and outside the Invoker's control. Callers are
	// responsible for serializing Inspect calls that share a working
	// directory, since the tool mutates shared on-disk state there.
	Inspect(ctx context.Context, specifier, workingDir string) (*domain.GraphSnapshot, error)
}
