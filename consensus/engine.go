package consensus

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/CreoDAMO/quantumfuse-sdk/crypto/pqc"
	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
	"github.com/CreoDAMO/quantumfuse-sdk/module"
)

// signatureQuorum is the fraction of the validator set that must co-sign a
// block for it to pass the multi-signature check.
const signatureQuorum = 0.67

// Engine drives consensus for one chain. It dispatches block validation and
// production to the mechanism the block was produced under and enforces the
// validator multi-signature quorum on top of the per-mechanism rules.
type Engine struct {
	log        zerolog.Logger
	metrics    module.ConsensusMetrics
	cfg        Config
	controller *Controller
	validators qf.IdentityList
}

// NewEngine creates the consensus engine over the given validator set. The
// set must be internally consistent and large enough to sustain the
// configured quorum.
func NewEngine(
	log zerolog.Logger,
	metrics module.ConsensusMetrics,
	cfg Config,
	controller *Controller,
	validators qf.IdentityList,
) (*Engine, error) {

	err := validators.CheckConsistency()
	if err != nil {
		return nil, fmt.Errorf("inconsistent validator set: %w", err)
	}
	if uint(len(validators)) < cfg.MinValidators {
		return nil, fmt.Errorf("insufficient validators: %d < %d", len(validators), cfg.MinValidators)
	}

	e := &Engine{
		log:        log.With().Str("engine", "consensus").Logger(),
		metrics:    metrics,
		cfg:        cfg,
		controller: controller,
		validators: validators,
	}
	return e, nil
}

// Validators returns the engine's validator set.
func (e *Engine) Validators() qf.IdentityList {
	return e.validators
}

// CurrentMechanism returns the mechanism currently selected by the hybrid
// controller.
func (e *Engine) CurrentMechanism() qf.Mechanism {
	return e.controller.CurrentType()
}

// RequiredSignatures returns the number of validator signatures a block
// needs to pass the quorum check.
func (e *Engine) RequiredSignatures() uint {
	return uint(math.Ceil(signatureQuorum * float64(len(e.validators))))
}

// ValidateBlock checks a block against the model-level rules, the rules of
// the mechanism it declares, and the multi-signature quorum. Expected
// failures return benign sentinel or typed errors; any other error is an
// unexpected internal failure.
func (e *Engine) ValidateBlock(block *qf.Block) error {

	err := block.Validate()
	if err != nil {
		e.metrics.BlockValidated(false)
		return fmt.Errorf("invalid block: %w", err)
	}

	// blocks are checked under the mechanism they were produced with, not
	// the one currently selected, so that mechanism switches do not
	// invalidate the existing chain
	mechanism, ok := e.controller.ByType(block.ConsensusData.Mechanism)
	if !ok {
		e.metrics.BlockValidated(false)
		return fmt.Errorf("mechanism %s: %w", block.ConsensusData.Mechanism, ErrUnknownMechanism)
	}

	err = mechanism.ValidateBlock(block)
	if err != nil {
		e.metrics.BlockValidated(false)
		return fmt.Errorf("mechanism validation failed: %w", err)
	}

	err = e.checkSignatureQuorum(block)
	if err != nil {
		e.metrics.BlockValidated(false)
		return err
	}

	e.metrics.BlockValidated(true)
	return nil
}

// checkSignatureQuorum verifies each attached validator signature against
// the block signing root and checks that enough of them were collected. The
// quorum only applies to blocks that carry signatures; nonce-based blocks
// prove their work through the nonce instead.
func (e *Engine) checkSignatureQuorum(block *qf.Block) error {

	if len(block.Signatures) == 0 {
		return nil
	}

	signingRoot := block.Header.SigningRoot()

	seen := make(map[qf.Identifier]struct{}, len(block.Signatures))
	valid := uint(0)
	for _, sig := range block.Signatures {
		identity, ok := e.validators.ByNodeID(sig.SignerID)
		if !ok {
			return InvalidBlockSignatureError{
				SignerID: sig.SignerID,
				Err:      fmt.Errorf("signer is not a known validator"),
			}
		}
		if _, dup := seen[sig.SignerID]; dup {
			return InvalidBlockSignatureError{
				SignerID: sig.SignerID,
				Err:      fmt.Errorf("duplicate signature"),
			}
		}
		seen[sig.SignerID] = struct{}{}
		err := pqc.Verify(identity.StakingPubKey, signingRoot, sig.Signature)
		if err != nil {
			return InvalidBlockSignatureError{SignerID: sig.SignerID, Err: err}
		}
		valid++
	}

	required := e.RequiredSignatures()
	if valid < required {
		return InsufficientSignaturesError{Received: valid, Required: required}
	}

	return nil
}

// MineBlock produces a new block on top of the given parent using the
// mechanism currently selected by the hybrid controller.
func (e *Engine) MineBlock(
	ctx context.Context,
	parent *qf.Header,
	txs []*qf.Transaction,
	stateRoot qf.Identifier,
	proposer *Proposer,
) (*qf.Block, error) {

	mechanism := e.controller.Current()
	block, err := mechanism.MineBlock(ctx, parent, txs, stateRoot, e.validators, proposer)
	if err != nil {
		return nil, fmt.Errorf("could not mine block with %s: %w", mechanism.Type(), err)
	}

	e.metrics.BlockMined(mechanism.Type().String())
	return block, nil
}

// AppendSignature co-signs the block with the given validator key and
// appends the signature. It is used to collect the quorum after the
// proposer has produced the block.
func (e *Engine) AppendSignature(block *qf.Block, signerID qf.Identifier, key *pqc.KeyPair) error {

	if _, ok := e.validators.ByNodeID(signerID); !ok {
		return fmt.Errorf("signer %x is not a known validator", signerID)
	}

	block.Signatures = append(block.Signatures, qf.BlockSignature{
		SignerID:  signerID,
		Signature: key.Sign(block.Header.SigningRoot()),
	})
	return nil
}

// DistributeRewards credits the block reward to validators according to the
// rules of the currently selected mechanism.
func (e *Engine) DistributeRewards(ledger RewardLedger) (uint64, error) {

	mechanism := e.controller.Current()
	total, err := mechanism.DistributeRewards(ledger, e.validators)
	if err != nil {
		return 0, fmt.Errorf("could not distribute rewards with %s: %w", mechanism.Type(), err)
	}

	if total > 0 {
		e.metrics.RewardsDistributed(total)
	}
	return total, nil
}

// AdjustParameters runs one adjustment tick: every mechanism retargets its
// own parameters against the observed conditions, then the hybrid
// controller re-evaluates the mechanism selection.
func (e *Engine) AdjustParameters(cond Conditions) qf.Mechanism {

	for _, mechanism := range e.controller.mechanisms {
		mechanism.AdjustParameters(cond)
	}
	return e.controller.Adjust(cond)
}
