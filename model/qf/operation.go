package qf

import "fmt"

// OperationType enumerates the state mutations a transaction can request.
type OperationType uint8

const (
	OperationTransfer OperationType = iota
	OperationStake
	OperationUnstake
	OperationBridgeAsset
	OperationSyncIdentity
	OperationDeployContract
	OperationCallContract
	OperationCreateValidator
	OperationRemoveValidator
	OperationUpdateConsensus
)

// String returns the string representation of an operation type.
func (op OperationType) String() string {
	switch op {
	case OperationTransfer:
		return "TRANSFER"
	case OperationStake:
		return "STAKE"
	case OperationUnstake:
		return "UNSTAKE"
	case OperationBridgeAsset:
		return "BRIDGE_ASSET"
	case OperationSyncIdentity:
		return "SYNC_IDENTITY"
	case OperationDeployContract:
		return "DEPLOY_CONTRACT"
	case OperationCallContract:
		return "CALL_CONTRACT"
	case OperationCreateValidator:
		return "CREATE_VALIDATOR"
	case OperationRemoveValidator:
		return "REMOVE_VALIDATOR"
	case OperationUpdateConsensus:
		return "UPDATE_CONSENSUS"
	default:
		return fmt.Sprintf("UNKNOWN_OPERATION_%d", op)
	}
}

// baseGas is the gas charged for an operation before accounting for its
// payload size.
func (op OperationType) baseGas() uint64 {
	switch op {
	case OperationTransfer:
		return 21_000
	case OperationStake, OperationUnstake:
		return 50_000
	case OperationBridgeAsset:
		return 100_000
	case OperationSyncIdentity:
		return 30_000
	case OperationDeployContract:
		return 200_000
	case OperationCallContract:
		return 50_000
	case OperationCreateValidator:
		return 200_000
	case OperationRemoveValidator:
		return 50_000
	case OperationUpdateConsensus:
		return 100_000
	default:
		return 21_000
	}
}
