package state

import (
	"errors"
	"fmt"
)

// ErrWalletNotFound is returned when an operation references an address with
// no registered wallet.
var ErrWalletNotFound = errors.New("wallet not found")

// ErrWalletAlreadyExists is returned when registering a wallet for an
// address that already has one.
var ErrWalletAlreadyExists = errors.New("wallet already exists")

// InsufficientFundsError is returned when a debit or stake would take a
// wallet balance below zero.
type InsufficientFundsError struct {
	Address   string
	Balance   uint64
	Requested uint64
}

func (e InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds for %s: balance %d, requested %d", e.Address, e.Balance, e.Requested)
}

// IsInsufficientFundsError returns whether err is an InsufficientFundsError.
func IsInsufficientFundsError(err error) bool {
	var target InsufficientFundsError
	return errors.As(err, &target)
}

// InsufficientStakeError is returned when an unstake requests more than the
// wallet has staked.
type InsufficientStakeError struct {
	Address   string
	Staked    uint64
	Requested uint64
}

func (e InsufficientStakeError) Error() string {
	return fmt.Sprintf("insufficient stake for %s: staked %d, requested %d", e.Address, e.Staked, e.Requested)
}

// IsInsufficientStakeError returns whether err is an InsufficientStakeError.
func IsInsufficientStakeError(err error) bool {
	var target InsufficientStakeError
	return errors.As(err, &target)
}

// InvalidSnapshotError is returned when restoring from a snapshot that fails
// integrity checks.
type InvalidSnapshotError struct {
	Msg string
}

func (e InvalidSnapshotError) Error() string {
	return fmt.Sprintf("invalid snapshot: %s", e.Msg)
}

// IsInvalidSnapshotError returns whether err is an InvalidSnapshotError.
func IsInvalidSnapshotError(err error) bool {
	var target InvalidSnapshotError
	return errors.As(err, &target)
}
