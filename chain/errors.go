package chain

import (
	"errors"
	"fmt"

	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
)

// ErrDuplicateBlock is returned when adding a block that is already part of
// the chain.
var ErrDuplicateBlock = errors.New("block already finalized")

// UnknownParentError is returned when a block does not extend the current
// head.
type UnknownParentError struct {
	ParentID qf.Identifier
	HeadID   qf.Identifier
}

func (e UnknownParentError) Error() string {
	return fmt.Sprintf("block parent %x does not match head %x", e.ParentID, e.HeadID)
}

// IsUnknownParentError returns whether err is an UnknownParentError.
func IsUnknownParentError(err error) bool {
	var target UnknownParentError
	return errors.As(err, &target)
}

// InvalidHeightError is returned when a block's height does not directly
// follow the head.
type InvalidHeightError struct {
	Height     uint64
	HeadHeight uint64
}

func (e InvalidHeightError) Error() string {
	return fmt.Sprintf("block height %d does not follow head height %d", e.Height, e.HeadHeight)
}

// IsInvalidHeightError returns whether err is an InvalidHeightError.
func IsInvalidHeightError(err error) bool {
	var target InvalidHeightError
	return errors.As(err, &target)
}

// SuspiciousTransactionError is returned when the transaction scorer flags a
// transaction above the rejection threshold.
type SuspiciousTransactionError struct {
	TxID  qf.Identifier
	Score float64
}

func (e SuspiciousTransactionError) Error() string {
	return fmt.Sprintf("transaction %x flagged as suspicious: score %.2f", e.TxID, e.Score)
}

// IsSuspiciousTransactionError returns whether err is a
// SuspiciousTransactionError.
func IsSuspiciousTransactionError(err error) bool {
	var target SuspiciousTransactionError
	return errors.As(err, &target)
}
