// Package rpc exposes the node's HTTP API: transaction submission, block
// submission and validation, and chain and wallet queries.
package rpc

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"github.com/CreoDAMO/quantumfuse-sdk/chain"
	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
	"github.com/CreoDAMO/quantumfuse-sdk/state"
	"github.com/CreoDAMO/quantumfuse-sdk/storage"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Engine serves the HTTP API.
type Engine struct {
	log    zerolog.Logger
	chain  *chain.Blockchain
	state  *state.Manager
	blocks storage.Blocks
	server *http.Server
}

// New creates the RPC engine listening on the given address.
func New(
	log zerolog.Logger,
	address string,
	blockchain *chain.Blockchain,
	stateManager *state.Manager,
	blocks storage.Blocks,
) *Engine {

	e := &Engine{
		log:    log.With().Str("engine", "rpc").Logger(),
		chain:  blockchain,
		state:  stateManager,
		blocks: blocks,
	}

	router := mux.NewRouter()
	router.HandleFunc("/v1/transactions", e.submitTransaction).Methods(http.MethodPost)
	router.HandleFunc("/v1/blocks", e.submitBlock).Methods(http.MethodPost)
	router.HandleFunc("/v1/blocks/validate", e.validateBlock).Methods(http.MethodPost)
	router.HandleFunc("/v1/blocks/{id}", e.blockByID).Methods(http.MethodGet)
	router.HandleFunc("/v1/blocks/height/{height:[0-9]+}", e.blockByHeight).Methods(http.MethodGet)
	router.HandleFunc("/v1/wallets", e.registerWallet).Methods(http.MethodPost)
	router.HandleFunc("/v1/wallets/{address}", e.wallet).Methods(http.MethodGet)
	router.HandleFunc("/v1/status", e.status).Methods(http.MethodGet)

	e.server = &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return e
}

// Handler returns the HTTP handler, mainly for testing.
func (e *Engine) Handler() http.Handler {
	return e.server.Handler
}

// Start begins serving. It blocks until the listener fails or the server is
// shut down.
func (e *Engine) Start() error {
	e.log.Info().Str("address", e.server.Addr).Msg("rpc server starting")
	listener, err := net.Listen("tcp", e.server.Addr)
	if err != nil {
		return err
	}
	err = e.server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts the server down, draining in-flight requests.
func (e *Engine) Stop(ctx context.Context) error {
	return e.server.Shutdown(ctx)
}

func (e *Engine) submitTransaction(w http.ResponseWriter, r *http.Request) {

	var tx qf.Transaction
	err := json.NewDecoder(r.Body).Decode(&tx)
	if err != nil {
		e.writeError(w, http.StatusBadRequest, "malformed_request", err)
		return
	}

	err = e.chain.ProcessTransaction(&tx)
	if err != nil {
		status, kind := classify(err)
		e.writeError(w, status, kind, err)
		return
	}

	e.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"transaction_id": tx.ID(),
	})
}

func (e *Engine) submitBlock(w http.ResponseWriter, r *http.Request) {

	var block qf.Block
	err := json.NewDecoder(r.Body).Decode(&block)
	if err != nil {
		e.writeError(w, http.StatusBadRequest, "malformed_request", err)
		return
	}

	err = e.chain.AddBlock(&block)
	if err != nil {
		status, kind := classify(err)
		e.writeError(w, status, kind, err)
		return
	}

	e.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"block_id": block.ID(),
		"height":   block.Header.Height,
	})
}

func (e *Engine) validateBlock(w http.ResponseWriter, r *http.Request) {

	var block qf.Block
	err := json.NewDecoder(r.Body).Decode(&block)
	if err != nil {
		e.writeError(w, http.StatusBadRequest, "malformed_request", err)
		return
	}

	err = block.Validate()
	if err != nil {
		e.writeJSON(w, http.StatusOK, map[string]interface{}{
			"valid":  false,
			"reason": err.Error(),
		})
		return
	}

	e.writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid": true,
	})
}

func (e *Engine) blockByID(w http.ResponseWriter, r *http.Request) {

	blockID, err := qf.HexStringToIdentifier(mux.Vars(r)["id"])
	if err != nil {
		e.writeError(w, http.StatusBadRequest, "malformed_request", err)
		return
	}

	block, err := e.blocks.ByID(blockID)
	if err != nil {
		status, kind := classify(err)
		e.writeError(w, status, kind, err)
		return
	}

	e.writeJSON(w, http.StatusOK, block)
}

func (e *Engine) blockByHeight(w http.ResponseWriter, r *http.Request) {

	height, err := strconv.ParseUint(mux.Vars(r)["height"], 10, 64)
	if err != nil {
		e.writeError(w, http.StatusBadRequest, "malformed_request", err)
		return
	}

	block, err := e.blocks.ByHeight(height)
	if err != nil {
		status, kind := classify(err)
		e.writeError(w, status, kind, err)
		return
	}

	e.writeJSON(w, http.StatusOK, block)
}

func (e *Engine) registerWallet(w http.ResponseWriter, r *http.Request) {

	var req struct {
		Address   string `json:"address"`
		PublicKey []byte `json:"public_key"`
		Balance   uint64 `json:"balance"`
	}
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		e.writeError(w, http.StatusBadRequest, "malformed_request", err)
		return
	}

	err = e.state.RegisterWallet(req.Address, req.PublicKey, req.Balance)
	if err != nil {
		if errors.Is(err, state.ErrWalletAlreadyExists) {
			e.writeError(w, http.StatusConflict, "wallet_exists", err)
			return
		}
		status, kind := classify(err)
		e.writeError(w, status, kind, err)
		return
	}

	e.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"address": req.Address,
	})
}

func (e *Engine) wallet(w http.ResponseWriter, r *http.Request) {

	wallet, err := e.state.Wallet(mux.Vars(r)["address"])
	if err != nil {
		status, kind := classify(err)
		e.writeError(w, status, kind, err)
		return
	}

	e.writeJSON(w, http.StatusOK, wallet)
}

func (e *Engine) status(w http.ResponseWriter, r *http.Request) {

	head, headID := e.chain.Head()
	network := e.state.Network()

	e.writeJSON(w, http.StatusOK, map[string]interface{}{
		"height":       head.Height,
		"head_id":      headID,
		"state_root":   e.state.StateRoot(),
		"mechanism":    e.chain.CurrentMechanism().String(),
		"validators":   len(e.chain.Validators()),
		"wallet_count": network.WalletCount,
		"mempool_size": network.MempoolSize,
		"total_staked": network.TotalStaked,
	})
}

func (e *Engine) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(payload)
	if err != nil {
		e.log.Error().Err(err).Msg("could not write response")
	}
}

func (e *Engine) writeError(w http.ResponseWriter, status int, kind string, err error) {
	e.writeJSON(w, status, map[string]interface{}{
		"error": kind,
		"msg":   err.Error(),
	})
}
