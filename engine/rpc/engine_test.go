package rpc_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	badgerdb "github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CreoDAMO/quantumfuse-sdk/chain"
	"github.com/CreoDAMO/quantumfuse-sdk/consensus"
	"github.com/CreoDAMO/quantumfuse-sdk/engine/rpc"
	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
	"github.com/CreoDAMO/quantumfuse-sdk/module/mempool/stdmap"
	"github.com/CreoDAMO/quantumfuse-sdk/module/metrics"
	"github.com/CreoDAMO/quantumfuse-sdk/module/scoring"
	"github.com/CreoDAMO/quantumfuse-sdk/sharding"
	"github.com/CreoDAMO/quantumfuse-sdk/state"
	bstorage "github.com/CreoDAMO/quantumfuse-sdk/storage/badger"
	"github.com/CreoDAMO/quantumfuse-sdk/utils/unittest"
)

type testServer struct {
	handler http.Handler
	state   *state.Manager
}

func newTestServer(t *testing.T, db *badgerdb.DB) *testServer {
	log := unittest.Logger()
	noop := metrics.NewNoopCollector()
	cfg := consensus.DefaultConfig()

	validators, _ := unittest.IdentityListFixture(t, 4)

	mechanisms := map[qf.Mechanism]consensus.Mechanism{
		qf.MechanismProofOfWork:           consensus.NewProofOfWork(log, cfg),
		qf.MechanismProofOfStake:          consensus.NewProofOfStake(log, cfg),
		qf.MechanismDelegatedProofOfStake: consensus.NewDelegatedProofOfStake(log, cfg),
		qf.MechanismGreenProofOfWork:      consensus.NewGreenProofOfWork(log, cfg),
	}
	controller := consensus.NewController(log, noop, 0, mechanisms)
	engine, err := consensus.NewEngine(log, noop, cfg, controller, validators)
	require.NoError(t, err)

	stateManager := state.NewManager(log, noop, stdmap.NewTransactions(1000))
	shardManager, err := sharding.NewManager(log, noop, 4, 100, unittest.KeyPairFixture(t))
	require.NoError(t, err)

	blocks := bstorage.NewBlocks(db)
	blockchain := chain.New(
		log, noop, cfg, engine, stateManager, shardManager,
		scoring.NewHeuristic(1_000_000),
		blocks,
		bstorage.NewChainState(db),
		bstorage.NewCommitLog(db),
		bstorage.NewSnapshots(db),
	)
	require.NoError(t, blockchain.Bootstrap(qf.Genesis(cfg.ChainID, validators)))
	require.NoError(t, blockchain.Recover())

	server := rpc.New(log, ":0", blockchain, stateManager, blocks)
	return &testServer{handler: server.Handler(), state: stateManager}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func TestStatusEndpoint(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badgerdb.DB) {
		ts := newTestServer(t, db)

		rec := ts.do(t, http.MethodGet, "/v1/status", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var status map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		assert.Equal(t, float64(0), status["height"])
		assert.Equal(t, "POS", status["mechanism"])
		assert.Equal(t, float64(4), status["validators"])
	})
}

func TestWalletEndpoints(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badgerdb.DB) {
		ts := newTestServer(t, db)
		key := unittest.KeyPairFixture(t)

		rec := ts.do(t, http.MethodPost, "/v1/wallets", map[string]interface{}{
			"address":    "alice",
			"public_key": key.PublicKey(),
			"balance":    1000,
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = ts.do(t, http.MethodPost, "/v1/wallets", map[string]interface{}{
			"address": "alice",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)

		rec = ts.do(t, http.MethodGet, "/v1/wallets/alice", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var wallet state.Wallet
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wallet))
		assert.Equal(t, uint64(1000), wallet.Balance)

		rec = ts.do(t, http.MethodGet, "/v1/wallets/nobody", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSubmitTransaction(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badgerdb.DB) {
		ts := newTestServer(t, db)

		aliceKey := unittest.KeyPairFixture(t)
		require.NoError(t, ts.state.RegisterWallet("alice", aliceKey.PublicKey(), 10_000))

		tx := unittest.TransactionFixture(t, "alice", aliceKey, unittest.WithRecipient("bob"))
		rec := ts.do(t, http.MethodPost, "/v1/transactions", tx)
		require.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, uint64(1), ts.state.Network().MempoolSize)

		t.Run("invalid signature rejected", func(t *testing.T) {
			forged := unittest.TransactionFixture(t, "alice", unittest.KeyPairFixture(t), unittest.WithNonce(1))
			rec := ts.do(t, http.MethodPost, "/v1/transactions", forged)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

			var resp map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "invalid_signature", resp["error"])
		})

		t.Run("malformed body rejected", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/transactions", bytes.NewReader([]byte("{not json")))
			rec := httptest.NewRecorder()
			ts.handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	})
}

func TestBlockEndpoints(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badgerdb.DB) {
		ts := newTestServer(t, db)

		rec := ts.do(t, http.MethodGet, "/v1/blocks/height/0", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var genesis qf.Block
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &genesis))
		assert.Equal(t, uint64(0), genesis.Header.Height)

		rec = ts.do(t, http.MethodGet, "/v1/blocks/"+genesis.ID().String(), nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = ts.do(t, http.MethodGet, "/v1/blocks/height/42", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = ts.do(t, http.MethodGet, "/v1/blocks/zzzz", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSubmitBlockWithoutHeader(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badgerdb.DB) {
		ts := newTestServer(t, db)

		// an empty JSON object decodes into a block with a nil header and
		// must be rejected, not crash the handler
		rec := ts.do(t, http.MethodPost, "/v1/blocks", map[string]interface{}{})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "malformed_request", resp["error"])

		rec = ts.do(t, http.MethodPost, "/v1/blocks/validate", map[string]interface{}{})
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, false, resp["valid"])
	})
}

func TestValidateBlockEndpoint(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badgerdb.DB) {
		ts := newTestServer(t, db)

		validators, keys := unittest.IdentityListFixture(t, 4)
		block := unittest.BlockFixture(t, validators, keys)

		rec := ts.do(t, http.MethodPost, "/v1/blocks/validate", block)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, true, resp["valid"])

		block.Header.Beacon = nil
		rec = ts.do(t, http.MethodPost, "/v1/blocks/validate", block)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, false, resp["valid"])
	})
}
