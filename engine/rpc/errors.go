package rpc

import (
	"errors"
	"net/http"

	"github.com/CreoDAMO/quantumfuse-sdk/chain"
	"github.com/CreoDAMO/quantumfuse-sdk/consensus"
	"github.com/CreoDAMO/quantumfuse-sdk/crypto/pqc"
	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
	"github.com/CreoDAMO/quantumfuse-sdk/sharding"
	"github.com/CreoDAMO/quantumfuse-sdk/state"
	"github.com/CreoDAMO/quantumfuse-sdk/storage"
)

// classify maps an error to the HTTP status and machine-readable error kind
// returned to clients. Unrecognized errors are reported as internal.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, qf.ErrMissingHeader):
		return http.StatusBadRequest, "malformed_request"
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, state.ErrWalletNotFound):
		return http.StatusNotFound, "wallet_not_found"
	case errors.Is(err, chain.ErrDuplicateBlock):
		return http.StatusConflict, "duplicate_block"
	case errors.Is(err, pqc.ErrInvalidSignature):
		return http.StatusUnprocessableEntity, "invalid_signature"
	case state.IsInsufficientFundsError(err):
		return http.StatusUnprocessableEntity, "insufficient_funds"
	case state.IsInsufficientStakeError(err):
		return http.StatusUnprocessableEntity, "insufficient_stake"
	case chain.IsSuspiciousTransactionError(err):
		return http.StatusUnprocessableEntity, "suspicious_transaction"
	case chain.IsUnknownParentError(err), chain.IsInvalidHeightError(err):
		return http.StatusConflict, "fork_rejected"
	case sharding.IsShardOverloadedError(err):
		return http.StatusServiceUnavailable, "shard_overloaded"
	case consensus.IsInvalidProofError(err),
		consensus.IsInvalidBlockSignatureError(err),
		consensus.IsInsufficientSignaturesError(err):
		return http.StatusUnprocessableEntity, "consensus_rejected"
	default:
		return http.StatusBadRequest, "rejected"
	}
}
