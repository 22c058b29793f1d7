package unittest

import (
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CreoDAMO/quantumfuse-sdk/crypto/pqc"
	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
)

// IdentifierFixture returns a random identifier.
func IdentifierFixture() qf.Identifier {
	var id qf.Identifier
	_, _ = rand.Read(id[:])
	return id
}

// KeyPairFixture returns a fresh ML-DSA key pair.
func KeyPairFixture(t testing.TB) *pqc.KeyPair {
	key, err := pqc.GenerateKeyPair()
	require.NoError(t, err)
	return key
}

// IdentityFixture returns a validator identity with a fresh signing key,
// applying any options.
func IdentityFixture(t testing.TB, opts ...func(*qf.Identity)) (*qf.Identity, *pqc.KeyPair) {
	key := KeyPairFixture(t)
	suffix := IdentifierFixture()
	identity := &qf.Identity{
		NodeID:        qf.MakeID(key.PublicKey()),
		Address:       fmt.Sprintf("validator-%x", suffix[:4]),
		Stake:         1000,
		Reputation:    100,
		StakingPubKey: key.PublicKey(),
	}
	for _, opt := range opts {
		opt(identity)
	}
	return identity, key
}

// WithStake sets the identity stake.
func WithStake(stake uint64) func(*qf.Identity) {
	return func(identity *qf.Identity) {
		identity.Stake = stake
	}
}

// WithDelegate marks the identity as a delegate.
func WithDelegate() func(*qf.Identity) {
	return func(identity *qf.Identity) {
		identity.Delegate = true
	}
}

// WithRenewable marks the identity as running on renewable energy.
func WithRenewable() func(*qf.Identity) {
	return func(identity *qf.Identity) {
		identity.Renewable = true
	}
}

// IdentityListFixture returns n validator identities with their keys.
func IdentityListFixture(t testing.TB, n int, opts ...func(*qf.Identity)) (qf.IdentityList, []*pqc.KeyPair) {
	identities := make(qf.IdentityList, 0, n)
	keys := make([]*pqc.KeyPair, 0, n)
	for i := 0; i < n; i++ {
		identity, key := IdentityFixture(t, opts...)
		identities = append(identities, identity)
		keys = append(keys, key)
	}
	return identities, keys
}

// TransactionFixture returns a signed transfer transaction from the given
// sender, applying any options before signing.
func TransactionFixture(t testing.TB, sender string, key *pqc.KeyPair, opts ...func(*qf.Transaction)) *qf.Transaction {
	tx, err := qf.NewTransaction(sender, "recipient-"+sender, 100, 10, 21000, qf.TransactionData{
		Op: qf.OperationTransfer,
	})
	require.NoError(t, err)
	for _, opt := range opts {
		opt(tx)
	}
	tx.Signature = key.Sign(tx.SigningMessage())
	return tx
}

// WithAmount sets the transaction amount.
func WithAmount(amount uint64) func(*qf.Transaction) {
	return func(tx *qf.Transaction) {
		tx.Amount = amount
	}
}

// WithFee sets the transaction fee.
func WithFee(fee uint64) func(*qf.Transaction) {
	return func(tx *qf.Transaction) {
		tx.Fee = fee
	}
}

// WithRecipient sets the transaction recipient.
func WithRecipient(recipient string) func(*qf.Transaction) {
	return func(tx *qf.Transaction) {
		tx.Recipient = recipient
	}
}

// WithOperation sets the requested operation.
func WithOperation(op qf.OperationType) func(*qf.Transaction) {
	return func(tx *qf.Transaction) {
		tx.Data.Op = op
	}
}

// WithNonce sets the transaction nonce.
func WithNonce(nonce uint64) func(*qf.Transaction) {
	return func(tx *qf.Transaction) {
		tx.Nonce = nonce
	}
}

// BlockFixture returns a structurally valid block over the given validators,
// containing one signed transaction.
func BlockFixture(t testing.TB, validators qf.IdentityList, keys []*pqc.KeyPair) *qf.Block {
	sender := validators[0].Address
	tx := TransactionFixture(t, sender, keys[0])

	block, err := qf.NewBlock("quantumfuse-test", IdentifierFixture(), 1, []*qf.Transaction{tx}, IdentifierFixture(), validators)
	require.NoError(t, err)
	block.ConsensusData = qf.ConsensusData{
		Mechanism:  qf.MechanismProofOfStake,
		Difficulty: 1,
		GasLimit:   10_000_000,
	}
	return block
}
