package consensus

import (
	"errors"
	"fmt"

	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
)

var (
	// ErrUnknownMechanism is returned when a block carries a consensus
	// mechanism the engine has no validator for.
	ErrUnknownMechanism = errors.New("unknown consensus mechanism")
)

// InvalidProofError indicates that a block's consensus proof does not satisfy
// the rules of the mechanism that produced it. Callers must not retry
// validation with the same input.
type InvalidProofError struct {
	Mechanism qf.Mechanism
	Msg       string
}

func NewInvalidProofErrorf(mechanism qf.Mechanism, msg string, args ...interface{}) error {
	return InvalidProofError{Mechanism: mechanism, Msg: fmt.Sprintf(msg, args...)}
}

func (e InvalidProofError) Error() string {
	return fmt.Sprintf("invalid consensus data (%s): %s", e.Mechanism, e.Msg)
}

// IsInvalidProofError returns whether an error is InvalidProofError.
func IsInvalidProofError(err error) bool {
	var e InvalidProofError
	return errors.As(err, &e)
}

// InvalidBlockSignatureError indicates that a validator endorsement on a
// block failed verification.
type InvalidBlockSignatureError struct {
	SignerID qf.Identifier
	Err      error
}

func (e InvalidBlockSignatureError) Error() string {
	return fmt.Sprintf("invalid block signature from %x: %s", e.SignerID, e.Err.Error())
}

func (e InvalidBlockSignatureError) Unwrap() error {
	return e.Err
}

// IsInvalidBlockSignatureError returns whether an error is InvalidBlockSignatureError.
func IsInvalidBlockSignatureError(err error) bool {
	var e InvalidBlockSignatureError
	return errors.As(err, &e)
}

// InsufficientSignaturesError indicates that a block carries fewer valid
// validator endorsements than the multi-signature threshold requires.
type InsufficientSignaturesError struct {
	Received uint
	Required uint
}

func (e InsufficientSignaturesError) Error() string {
	return fmt.Sprintf("insufficient signatures: received %d, required %d", e.Received, e.Required)
}

// IsInsufficientSignaturesError returns whether an error is InsufficientSignaturesError.
func IsInsufficientSignaturesError(err error) bool {
	var e InsufficientSignaturesError
	return errors.As(err, &e)
}

// InvalidProposerError indicates that the proposer of a block is not entitled
// to propose under the active mechanism.
type InvalidProposerError struct {
	NodeID qf.Identifier
	Msg    string
}

func (e InvalidProposerError) Error() string {
	return fmt.Sprintf("invalid proposer %x: %s", e.NodeID, e.Msg)
}

// IsInvalidProposerError returns whether an error is InvalidProposerError.
func IsInvalidProposerError(err error) bool {
	var e InvalidProposerError
	return errors.As(err, &e)
}
