package qf

import (
	"errors"
	"time"

	"github.com/CreoDAMO/quantumfuse-sdk/crypto/pqc"
	"github.com/CreoDAMO/quantumfuse-sdk/model/fingerprint"
	"github.com/CreoDAMO/quantumfuse-sdk/module/merkle"
)

// BeaconLength is the required length of the per-block randomness beacon.
// The beacon is drawn from a CSPRNG; it is not sourced from quantum hardware.
const BeaconLength = 32

// Header contains the block metadata that commits to the block content.
type Header struct {

	// protocol version of the block format
	Version uint32

	// ChainID is a chain-specific value to prevent replay across chains.
	ChainID string

	// Height is the sequence number of the block; heights are strictly
	// increasing by one per accepted block.
	Height uint64

	// ParentID is the ID of the previous accepted block.
	ParentID Identifier

	// Timestamp is the proposal time of the block.
	Timestamp time.Time

	// TxRoot is the Merkle root over the ordered transaction list.
	TxRoot Identifier

	// StateRoot is the state commitment after applying the block.
	StateRoot Identifier

	// ValidatorSetHash commits to the validator set authorizing the block.
	ValidatorSetHash Identifier

	// Beacon is the per-block randomness value.
	Beacon []byte
}

type headerCanonicalForm struct {
	Version          uint32
	ChainID          string
	Height           uint64
	ParentID         Identifier
	Timestamp        uint64
	TxRoot           Identifier
	StateRoot        Identifier
	ValidatorSetHash Identifier
	Beacon           []byte
}

func (h Header) canonicalForm() headerCanonicalForm {
	return headerCanonicalForm{
		Version:          h.Version,
		ChainID:          h.ChainID,
		Height:           h.Height,
		ParentID:         h.ParentID,
		Timestamp:        uint64(h.Timestamp.UnixNano()),
		TxRoot:           h.TxRoot,
		StateRoot:        h.StateRoot,
		ValidatorSetHash: h.ValidatorSetHash,
		Beacon:           h.Beacon,
	}
}

// ID returns a unique identifier for the header, and thereby the block.
func (h Header) ID() Identifier {
	return MakeID(h.canonicalForm())
}

// Checksum returns the checksum of the header.
func (h Header) Checksum() Identifier {
	return MakeID(h.canonicalForm())
}

// SigningRoot returns the canonical message validators sign to endorse the
// block. It covers the full header, including the beacon.
func (h Header) SigningRoot() []byte {
	return fingerprint.Fingerprint(h.canonicalForm())
}

// ConsensusData carries the proof material of the mechanism that produced
// the block.
type ConsensusData struct {
	Mechanism  Mechanism
	Difficulty uint64
	Nonce      uint64
	GasLimit   uint64

	// EnergyAttestation is a signature-backed renewable-energy attestation,
	// only set by green proof of work.
	EnergyAttestation []byte
}

// BlockSignature is a single validator endorsement over the signing root.
type BlockSignature struct {
	SignerID  Identifier
	Signature []byte
}

// Block is an ordered batch of transactions plus a header committing to the
// transaction root and validator set. A block becomes immutable once appended
// to the chain.
type Block struct {
	Header        *Header
	Transactions  []*Transaction
	ConsensusData ConsensusData
	ValidatorSet  IdentityList
	Signatures    []BlockSignature
}

// NewBlock builds a block over the given transactions. It fails if the
// transaction list is empty, computes the Merkle root over the ordered list
// and draws a fresh randomness beacon.
func NewBlock(
	chainID string,
	parentID Identifier,
	height uint64,
	transactions []*Transaction,
	stateRoot Identifier,
	validators IdentityList,
) (*Block, error) {

	if len(transactions) == 0 {
		return nil, ErrEmptyTransactions
	}

	txRoot, err := TransactionsRoot(transactions)
	if err != nil {
		return nil, err
	}

	beacon, err := pqc.Beacon()
	if err != nil {
		return nil, err
	}

	header := Header{
		Version:          1,
		ChainID:          chainID,
		Height:           height,
		ParentID:         parentID,
		Timestamp:        time.Now().UTC(),
		TxRoot:           txRoot,
		StateRoot:        stateRoot,
		ValidatorSetHash: validators.Hash(),
		Beacon:           beacon,
	}

	block := &Block{
		Header:       &header,
		Transactions: transactions,
		ValidatorSet: validators,
	}

	return block, nil
}

// Genesis returns the genesis block for the given chain. The genesis block
// carries no transactions and is bootstrapped directly into storage; it never
// passes through block validation.
func Genesis(chainID string, validators IdentityList) *Block {
	header := Header{
		Version:          1,
		ChainID:          chainID,
		Height:           0,
		ParentID:         ZeroID,
		Timestamp:        time.Unix(0, 0).UTC(),
		ValidatorSetHash: validators.Hash(),
		Beacon:           make([]byte, BeaconLength),
	}

	return &Block{
		Header:       &header,
		ValidatorSet: validators,
	}
}

// ID returns the ID of the header. A block without a header, as decoded
// from a malformed submission, has the zero ID.
func (b *Block) ID() Identifier {
	if b.Header == nil {
		return ZeroID
	}
	return b.Header.ID()
}

// Checksum returns a checksum over the block including signatures.
func (b *Block) Checksum() Identifier {
	sigs := make([][]byte, 0, len(b.Signatures))
	for _, sig := range b.Signatures {
		sigs = append(sigs, sig.Signature)
	}
	return MakeID(struct {
		Header     headerCanonicalForm
		Signatures [][]byte
	}{
		Header:     b.Header.canonicalForm(),
		Signatures: sigs,
	})
}

// GasUsed returns the total gas consumed by the block's transactions.
func (b *Block) GasUsed() uint64 {
	var total uint64
	for _, tx := range b.Transactions {
		total += tx.GasUsed
	}
	return total
}

// Validate checks the structural and temporal validity of the block. Checks
// run in a fixed order and the first failure is returned; mechanism-specific
// proof and signature threshold checks are the consensus engine's
// responsibility.
func (b *Block) Validate() error {

	if b.Header == nil {
		return ErrMissingHeader
	}

	if b.Header.Version == 0 {
		return ErrInvalidVersion
	}

	now := time.Now().UTC()
	if b.Header.Timestamp.After(now) {
		return FutureTimestampError{Timestamp: b.Header.Timestamp, Now: now}
	}

	if len(b.Transactions) == 0 {
		return ErrEmptyTransactions
	}

	if len(b.Header.Beacon) != BeaconLength {
		return InvalidBeaconError{Length: len(b.Header.Beacon)}
	}

	txRoot, err := TransactionsRoot(b.Transactions)
	if err != nil {
		return err
	}
	if txRoot != b.Header.TxRoot {
		return InvalidTxRootError{Computed: txRoot, Declared: b.Header.TxRoot}
	}

	if err := b.ValidatorSet.CheckConsistency(); err != nil {
		return InvalidValidatorSetError{Err: err}
	}
	if b.ValidatorSet.Hash() != b.Header.ValidatorSetHash {
		return InvalidValidatorSetError{Err: errors.New("validator set hash does not match header commitment")}
	}

	if b.ConsensusData.Difficulty == 0 {
		return InvalidConsensusDataError{Field: "difficulty is zero"}
	}
	if b.ConsensusData.GasLimit == 0 {
		return InvalidConsensusDataError{Field: "gas limit is zero"}
	}

	return nil
}

// TransactionsRoot computes the Merkle root over the ordered transaction
// list. The root is deterministic for a given input order.
func TransactionsRoot(transactions []*Transaction) (Identifier, error) {
	leaves := make([][]byte, 0, len(transactions))
	for _, tx := range transactions {
		txID := tx.ID()
		leaves = append(leaves, txID[:])
	}
	root, err := merkle.Root(leaves)
	if err != nil {
		return ZeroID, err
	}
	return HashToID(root), nil
}
