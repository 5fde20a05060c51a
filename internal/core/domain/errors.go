package domain

import "go.trai.ch/zerr"

var (
	// ErrInvocationFailed is returned when the inspection tool exits nonzero.
	ErrInvocationFailed = zerr.New("inspection command failed")

	// ErrMalformedOutput is returned when the inspection tool's stdout cannot be parsed.
	ErrMalformedOutput = zerr.New("inspection command produced malformed output")

	// ErrModuleNotFound is returned when a module is retrieved before it was resolved.
	ErrModuleNotFound = zerr.New("module not found in resolution cache")

	// ErrImporterNotESM is returned when a nested lookup names an importer that is not a cached ESM module.
	ErrImporterNotESM = zerr.New("importer is not a cached ESM module")

	// ErrCacheMarshalFailed is returned when the session cache cannot be marshaled.
	ErrCacheMarshalFailed = zerr.New("failed to marshal session cache")

	// ErrCacheWriteFailed is returned when the session cache cannot be written.
	ErrCacheWriteFailed = zerr.New("failed to write session cache")

	// ErrConfigReadFailed is returned when the bridge config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the bridge config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrMissingTool is returned when the configured inspection tool name is empty.
	ErrMissingTool = zerr.New("inspection tool is not configured")

	// ErrNoSpecifiers is returned when a command is invoked without specifiers.
	ErrNoSpecifiers = zerr.New("no specifiers given")

	// ErrResolutionFailed is returned by the CLI surface when a requested
	// specifier has no answer and no fallback resolver exists.
	ErrResolutionFailed = zerr.New("specifier could not be resolved")
)
