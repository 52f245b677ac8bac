package sqldoctest

import "errors"

// Common errors used throughout the sqldoctest package
var (
	// ErrNoInputFiles is returned when the CLI is invoked without any input paths.
	// Input errors
	ErrNoInputFiles = errors.New("no input files provided")
	// ErrUnmatchedStartMarker indicates a test start marker with no matching end marker.
	ErrUnmatchedStartMarker = errors.New("could not find test end marker")
	// ErrOrphanOutputBlock indicates an output block with no preceding query block.
	ErrOrphanOutputBlock = errors.New("output block has no preceding query block")

	// ErrEngineInit indicates the storage init tool failed.
	// Engine startup errors
	ErrEngineInit = errors.New("engine storage initialization failed")
	// ErrEngineStart indicates the engine server process could not be spawned.
	ErrEngineStart = errors.New("engine server failed to start")
	// ErrEngineStartTimeout indicates the engine never answered the health probe.
	ErrEngineStartTimeout = errors.New("engine did not respond within startup timeout")
	// ErrEngineExited indicates the engine process exited while being health-checked.
	ErrEngineExited = errors.New("engine process exited during startup")
	// ErrEngineNotReady indicates an operation was attempted before the engine was ready.
	ErrEngineNotReady = errors.New("engine instance is not ready")

	// ErrShutdown indicates graceful termination could not be delivered.
	// Teardown errors (reported, never fatal)
	ErrShutdown = errors.New("could not shut down engine process")

	// ErrConfigValidation is returned when configuration validation fails.
	// Config errors
	ErrConfigValidation = errors.New("configuration validation failed")
)
