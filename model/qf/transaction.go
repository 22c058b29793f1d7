package qf

import (
	"sort"
	"time"

	"github.com/CreoDAMO/quantumfuse-sdk/model/fingerprint"
)

// Transaction is a signed state-mutation request with gas accounting. A
// transaction is immutable after signing: mutating any signed field without
// re-signing invalidates signature verification, and the transaction ID is
// recomputed whenever the content changes.
type Transaction struct {

	// protocol version of the transaction format
	Version uint32

	// sequence number of the sender, to prevent replay
	Nonce uint64

	// sender and recipient wallet addresses
	Sender    string
	Recipient string

	// amount and fee in base units
	Amount uint64
	Fee    uint64

	// gas accounting
	GasLimit uint64
	GasUsed  uint64

	// requested operation and its payload
	Data TransactionData

	// creation time, set by the originating wallet
	CreatedAt time.Time

	// ML-DSA signature over the signing message, nil until signed
	Signature []byte

	// optional KEM-backed proof, nil unless attached
	Proof *QuantumProof
}

// TransactionData carries the operation a transaction requests together with
// its parameters and opaque payload.
type TransactionData struct {
	Op      OperationType
	Params  map[string]string
	Payload []byte
}

// QuantumProof is a KEM ciphertext bound to the transaction signature. It is
// an ordinary ML-KEM/ML-DSA construct; the name is kept for wire
// compatibility with older clients.
type QuantumProof struct {
	Ciphertext []byte
	Signature  []byte
	CreatedAt  time.Time
}

// NewTransaction creates an unsigned transaction and validates its basic
// structure. The nonce is expected to be set by the wallet before signing.
func NewTransaction(sender, recipient string, amount, fee, gasLimit uint64, data TransactionData) (*Transaction, error) {
	if sender == "" || recipient == "" {
		return nil, ErrInvalidAddress
	}
	if gasLimit == 0 {
		return nil, ErrInvalidGasLimit
	}

	tx := &Transaction{
		Version:   1,
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
		Fee:       fee,
		GasLimit:  gasLimit,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}

	return tx, nil
}

// ID returns a content hash over all transaction fields, including the
// signature and proof if present.
func (tx *Transaction) ID() Identifier {
	return MakeID(struct {
		Payload   interface{}
		Signature []byte
		Proof     interface{}
	}{
		Payload:   tx.payloadCanonicalForm(),
		Signature: tx.Signature,
		Proof:     tx.Proof.canonicalForm(),
	})
}

// Checksum returns the same value as ID; a transaction has no mutable fields
// beyond its signature and proof, which are part of the ID.
func (tx *Transaction) Checksum() Identifier {
	return tx.ID()
}

// SigningMessage returns the canonical encoding of the fields covered by the
// transaction signature. The signature and proof themselves are excluded.
func (tx *Transaction) SigningMessage() []byte {
	return fingerprint.Fingerprint(tx.payloadCanonicalForm())
}

// EstimatedGas returns the gas estimate for the requested operation,
// accounting for payload size where the operation carries code.
func (tx *Transaction) EstimatedGas() uint64 {
	gas := tx.Data.Op.baseGas()
	if tx.Data.Op == OperationDeployContract {
		gas += uint64(len(tx.Data.Payload)) * 100
	}
	return gas
}

// ValidateBasics checks the structural and temporal validity of the
// transaction without touching the signature.
func (tx *Transaction) ValidateBasics() error {
	if tx.Version == 0 {
		return ErrInvalidVersion
	}
	if tx.Sender == "" || tx.Recipient == "" {
		return ErrInvalidAddress
	}
	if tx.GasLimit == 0 {
		return ErrInvalidGasLimit
	}
	now := time.Now().UTC()
	if tx.CreatedAt.After(now) {
		return FutureTimestampError{Timestamp: tx.CreatedAt, Now: now}
	}
	return nil
}

// TotalCost returns the full amount deducted from the sender on application.
func (tx *Transaction) TotalCost() uint64 {
	return tx.Amount + tx.Fee
}

type transactionParam struct {
	Key   string
	Value string
}

type transactionCanonicalForm struct {
	Version   uint32
	Nonce     uint64
	Sender    string
	Recipient string
	Amount    uint64
	Fee       uint64
	GasLimit  uint64
	CreatedAt uint64
	Op        uint64
	Params    []transactionParam
	Payload   []byte
}

// payloadCanonicalForm flattens the transaction's signed fields into an
// RLP-encodable struct. Map parameters are sorted by key so the encoding is
// deterministic.
func (tx *Transaction) payloadCanonicalForm() transactionCanonicalForm {
	params := make([]transactionParam, 0, len(tx.Data.Params))
	for key, value := range tx.Data.Params {
		params = append(params, transactionParam{Key: key, Value: value})
	}
	sort.Slice(params, func(i, j int) bool { return params[i].Key < params[j].Key })

	return transactionCanonicalForm{
		Version:   tx.Version,
		Nonce:     tx.Nonce,
		Sender:    tx.Sender,
		Recipient: tx.Recipient,
		Amount:    tx.Amount,
		Fee:       tx.Fee,
		GasLimit:  tx.GasLimit,
		CreatedAt: uint64(tx.CreatedAt.UnixNano()),
		Op:        uint64(tx.Data.Op),
		Params:    params,
		Payload:   tx.Data.Payload,
	}
}

type proofCanonicalForm struct {
	Ciphertext []byte
	Signature  []byte
	CreatedAt  uint64
}

func (p *QuantumProof) canonicalForm() proofCanonicalForm {
	if p == nil {
		return proofCanonicalForm{}
	}
	return proofCanonicalForm{
		Ciphertext: p.Ciphertext,
		Signature:  p.Signature,
		CreatedAt:  uint64(p.CreatedAt.UnixNano()),
	}
}
