package qdeepneuro

import "github.com/pkg/errors"

var (
	// ErrInsufficientData is returned by Memory.Sample when fewer transitions are stored than requested.
	ErrInsufficientData = errors.New("insufficient data in replay memory")
	// ErrNoValidMoves is returned when an action is requested with an empty set of legal moves.
	ErrNoValidMoves = errors.New("no valid moves")
	// ErrIllegalMove is returned when a legal-move set contains an index outside the action space.
	ErrIllegalMove = errors.New("move outside of action space")
	// ErrCorruptCheckpoint is returned when a checkpoint does not fit the current estimator.
	ErrCorruptCheckpoint = errors.New("corrupt checkpoint")
	// ErrBatchLength is returned by Memory.AppendBatch when the parallel slices differ in length.
	ErrBatchLength = errors.New("batch slices differ in length")
	// ErrStateShape is returned when an encoded state does not match the configured input size.
	ErrStateShape = errors.New("state has wrong size")
	// ErrInvalidConfig is returned by Config.Validate and NewLearner for out-of-range hyper-parameters.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrNonFinite is returned when the estimator has diverged and holds NaN or infinite values.
	ErrNonFinite = errors.New("non-finite parameter")
)
