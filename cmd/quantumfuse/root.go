package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/CreoDAMO/quantumfuse-sdk/chain"
	"github.com/CreoDAMO/quantumfuse-sdk/consensus"
	"github.com/CreoDAMO/quantumfuse-sdk/crypto/pqc"
	"github.com/CreoDAMO/quantumfuse-sdk/engine/rpc"
	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
	"github.com/CreoDAMO/quantumfuse-sdk/module/mempool/stdmap"
	"github.com/CreoDAMO/quantumfuse-sdk/module/metrics"
	"github.com/CreoDAMO/quantumfuse-sdk/module/scoring"
	"github.com/CreoDAMO/quantumfuse-sdk/sharding"
	"github.com/CreoDAMO/quantumfuse-sdk/state"
	bstorage "github.com/CreoDAMO/quantumfuse-sdk/storage/badger"
)

func rootCmd() *cobra.Command {

	cmd := &cobra.Command{
		Use:   "quantumfuse",
		Short: "QuantumFuse consensus node",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode()
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("datadir", "data", "directory for the badger database")
	flags.String("rpc-addr", ":8545", "listen address for the HTTP API")
	flags.Uint("metrics-port", 9090, "port for the prometheus metrics endpoint")
	flags.Uint32("shards", 4, "number of transaction shards")
	flags.Uint("shard-capacity", 1024, "per-shard transaction capacity")
	flags.Uint("validators", 4, "number of local validators to generate")
	flags.Uint("mempool-limit", 10000, "maximum pending transactions")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	flags.VisitAll(func(flag *pflag.Flag) {
		err := viper.BindPFlag(flag.Name, flag)
		if err != nil {
			panic(err)
		}
	})
	viper.SetEnvPrefix("QUANTUMFUSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	return cmd
}

func runNode() error {

	level, err := zerolog.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	db, err := badger.Open(badger.DefaultOptions(viper.GetString("datadir")).WithLogger(nil))
	if err != nil {
		return fmt.Errorf("could not open database: %w", err)
	}

	chainMetrics := metrics.NewChainCollector(prometheus.DefaultRegisterer)
	consensusMetrics := metrics.NewConsensusCollector(prometheus.DefaultRegisterer)
	stateMetrics := metrics.NewStateCollector(prometheus.DefaultRegisterer)
	shardMetrics := metrics.NewShardCollector(prometheus.DefaultRegisterer)

	cfg := consensus.DefaultConfig()

	// a local validator committee; each validator holds its own signing key
	proposers := make([]*consensus.Proposer, 0, viper.GetUint("validators"))
	validators := make(qf.IdentityList, 0, viper.GetUint("validators"))
	for i := uint(0); i < viper.GetUint("validators"); i++ {
		key, err := pqc.GenerateKeyPair()
		if err != nil {
			return fmt.Errorf("could not generate validator key: %w", err)
		}
		identity := &qf.Identity{
			NodeID:        qf.MakeID(key.PublicKey()),
			Address:       pqc.AddressFromPublicKey(key.PublicKey()),
			Stake:         cfg.MinimumStake * 10,
			Reputation:    100,
			Delegate:      true,
			Renewable:     i%2 == 0,
			StakingPubKey: key.PublicKey(),
		}
		validators = append(validators, identity)
		proposers = append(proposers, &consensus.Proposer{Identity: identity, Signer: key})
	}

	mechanisms := map[qf.Mechanism]consensus.Mechanism{
		qf.MechanismProofOfWork:           consensus.NewProofOfWork(log, cfg),
		qf.MechanismProofOfStake:          consensus.NewProofOfStake(log, cfg),
		qf.MechanismDelegatedProofOfStake: consensus.NewDelegatedProofOfStake(log, cfg),
		qf.MechanismGreenProofOfWork:      consensus.NewGreenProofOfWork(log, cfg),
	}
	controller := consensus.NewController(log, consensusMetrics, cfg.AdjustmentInterval, mechanisms)
	engine, err := consensus.NewEngine(log, consensusMetrics, cfg, controller, validators)
	if err != nil {
		return fmt.Errorf("could not create consensus engine: %w", err)
	}

	pending := stdmap.NewTransactions(viper.GetUint("mempool-limit"))
	stateManager := state.NewManager(log, stateMetrics, pending)

	shardSigner, err := pqc.GenerateKeyPair()
	if err != nil {
		return fmt.Errorf("could not generate shard signing key: %w", err)
	}
	shardManager, err := sharding.NewManager(
		log,
		shardMetrics,
		viper.GetUint32("shards"),
		viper.GetUint("shard-capacity"),
		shardSigner,
	)
	if err != nil {
		return fmt.Errorf("could not create shard manager: %w", err)
	}
	shardManager.AssignValidators(validators)

	blockchain := chain.New(
		log,
		chainMetrics,
		cfg,
		engine,
		stateManager,
		shardManager,
		scoring.NewHeuristic(1_000_000_000),
		bstorage.NewBlocks(db),
		bstorage.NewChainState(db),
		bstorage.NewCommitLog(db),
		bstorage.NewSnapshots(db),
	)

	err = blockchain.Bootstrap(qf.Genesis(cfg.ChainID, validators))
	if err != nil {
		return fmt.Errorf("could not bootstrap chain: %w", err)
	}
	err = blockchain.Recover()
	if err != nil {
		return fmt.Errorf("could not recover chain: %w", err)
	}

	metricsServer := metrics.NewServer(log, viper.GetUint("metrics-port"), false)
	<-metricsServer.Ready()

	rpcEngine := rpc.New(log, viper.GetString("rpc-addr"), blockchain, stateManager, bstorage.NewBlocks(db))
	rpcErr := make(chan error, 1)
	go func() {
		rpcErr <- rpcEngine.Start()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runMiningLoop(ctx, log, cfg, blockchain, proposers)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("shutting down")
	case err := <-rpcErr:
		if err != nil {
			log.Error().Err(err).Msg("rpc server failed")
		}
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	var result *multierror.Error
	if err := rpcEngine.Stop(shutdownCtx); err != nil {
		result = multierror.Append(result, fmt.Errorf("could not stop rpc server: %w", err))
	}
	<-metricsServer.Done()
	if err := db.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("could not close database: %w", err))
	}
	return result.ErrorOrNil()
}

// runMiningLoop periodically re-evaluates the consensus mechanism, mines
// pending transactions into blocks and rebalances the shards.
func runMiningLoop(
	ctx context.Context,
	log zerolog.Logger,
	cfg consensus.Config,
	blockchain *chain.Blockchain,
	proposers []*consensus.Proposer,
) {
	ticker := time.NewTicker(cfg.BlockTime)
	defer ticker.Stop()

	round := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		mechanism := blockchain.AdjustConsensus()
		proposer := pickProposer(mechanism, proposers, round)
		round++
		if proposer == nil {
			continue
		}

		block, err := blockchain.MineBlock(ctx, proposer, proposers...)
		if err != nil {
			if errors.Is(err, qf.ErrEmptyTransactions) {
				continue
			}
			log.Warn().Err(err).Msg("mining round failed")
			continue
		}
		log.Info().Uint64("height", block.Header.Height).Msg("mined block")
	}
}

// pickProposer rotates through the validators, skipping those that cannot
// propose under the selected mechanism.
func pickProposer(mechanism qf.Mechanism, proposers []*consensus.Proposer, round int) *consensus.Proposer {
	for i := 0; i < len(proposers); i++ {
		candidate := proposers[(round+i)%len(proposers)]
		if mechanism == qf.MechanismGreenProofOfWork && !candidate.Identity.Renewable {
			continue
		}
		return candidate
	}
	return nil
}
