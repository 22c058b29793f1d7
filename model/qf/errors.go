package qf

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEmptyTransactions is returned when constructing or validating a
	// block without any transactions.
	ErrEmptyTransactions = errors.New("block contains no transactions")

	// ErrMissingHeader is returned when a decoded block carries no header.
	ErrMissingHeader = errors.New("block has no header")

	// ErrInvalidVersion is returned for entities with a zero version field.
	ErrInvalidVersion = errors.New("invalid version")

	// ErrInvalidAddress is returned for transactions with an empty sender or
	// recipient address.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidGasLimit is returned for transactions or blocks declaring a
	// zero gas limit.
	ErrInvalidGasLimit = errors.New("invalid gas limit")

	// ErrMissingSignature is returned when an operation requires a signature
	// that has not been attached yet.
	ErrMissingSignature = errors.New("missing signature")
)

// FutureTimestampError indicates that an entity carries a timestamp ahead of
// the local clock.
type FutureTimestampError struct {
	Timestamp time.Time
	Now       time.Time
}

func (e FutureTimestampError) Error() string {
	return fmt.Sprintf("timestamp %s is ahead of local clock %s", e.Timestamp, e.Now)
}

// IsFutureTimestampError returns whether an error is FutureTimestampError.
func IsFutureTimestampError(err error) bool {
	var e FutureTimestampError
	return errors.As(err, &e)
}

// InvalidBeaconError indicates that a block's randomness beacon does not have
// the expected length.
type InvalidBeaconError struct {
	Length int
}

func (e InvalidBeaconError) Error() string {
	return fmt.Sprintf("randomness beacon has %d bytes, expected %d", e.Length, BeaconLength)
}

// IsInvalidBeaconError returns whether an error is InvalidBeaconError.
func IsInvalidBeaconError(err error) bool {
	var e InvalidBeaconError
	return errors.As(err, &e)
}

// InvalidTxRootError indicates that the transactions root in a block header
// does not match the Merkle root of its transaction list.
type InvalidTxRootError struct {
	Computed Identifier
	Declared Identifier
}

func (e InvalidTxRootError) Error() string {
	return fmt.Sprintf("transactions root mismatch (computed: %x, declared: %x)", e.Computed, e.Declared)
}

// IsInvalidTxRootError returns whether an error is InvalidTxRootError.
func IsInvalidTxRootError(err error) bool {
	var e InvalidTxRootError
	return errors.As(err, &e)
}

// InvalidValidatorSetError indicates that a block's validator set is
// internally inconsistent.
type InvalidValidatorSetError struct {
	Err error
}

func (e InvalidValidatorSetError) Error() string {
	return fmt.Sprintf("invalid validator set: %s", e.Err.Error())
}

func (e InvalidValidatorSetError) Unwrap() error {
	return e.Err
}

// IsInvalidValidatorSetError returns whether an error is InvalidValidatorSetError.
func IsInvalidValidatorSetError(err error) bool {
	var e InvalidValidatorSetError
	return errors.As(err, &e)
}

// InvalidConsensusDataError indicates that the consensus metadata attached to
// a block is malformed.
type InvalidConsensusDataError struct {
	Field string
}

func (e InvalidConsensusDataError) Error() string {
	return fmt.Sprintf("invalid consensus data: %s", e.Field)
}

// IsInvalidConsensusDataError returns whether an error is InvalidConsensusDataError.
func IsInvalidConsensusDataError(err error) bool {
	var e InvalidConsensusDataError
	return errors.As(err, &e)
}
