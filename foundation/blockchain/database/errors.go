package database

import "errors"

// Set of reasons a block or a chain is rejected. They are wrapped with the
// values involved so an operator can tell which rule was violated.
var (
	ErrPrevHashMismatch = errors.New("previous hash mismatch")
	ErrInvalidProof     = errors.New("invalid proof")
	ErrGenesisMismatch  = errors.New("genesis block mismatch")
	ErrEmptyChain       = errors.New("empty chain")
)

// ErrNoWorkAvailable is returned when a block is requested to be mined and
// there are no pending transactions. It is a normal outcome.
var ErrNoWorkAvailable = errors.New("no work available, no pending transactions")

// ErrRedaction is returned when a block can't be redacted.
var ErrRedaction = errors.New("redaction refused")
