package sharding

import (
	"errors"
	"fmt"
)

// ErrNoShards is returned when a manager is created without any shards.
var ErrNoShards = errors.New("shard count must be positive")

// ErrUnknownShard is returned when an operation references a shard index
// outside the managed range.
var ErrUnknownShard = errors.New("unknown shard")

// ShardOverloadedError is returned when a transaction is routed to a shard
// that has reached its capacity.
type ShardOverloadedError struct {
	ShardID  uint32
	Load     uint
	Capacity uint
}

func (e ShardOverloadedError) Error() string {
	return fmt.Sprintf("shard %d overloaded: %d/%d transactions", e.ShardID, e.Load, e.Capacity)
}

// IsShardOverloadedError returns whether err is a ShardOverloadedError.
func IsShardOverloadedError(err error) bool {
	var target ShardOverloadedError
	return errors.As(err, &target)
}

// InvalidCrossLinkError is returned when a cross-shard link fails
// verification.
type InvalidCrossLinkError struct {
	Msg string
}

func (e InvalidCrossLinkError) Error() string {
	return fmt.Sprintf("invalid cross-shard link: %s", e.Msg)
}

// IsInvalidCrossLinkError returns whether err is an InvalidCrossLinkError.
func IsInvalidCrossLinkError(err error) bool {
	var target InvalidCrossLinkError
	return errors.As(err, &target)
}
