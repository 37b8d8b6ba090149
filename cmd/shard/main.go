// Command shard runs one shard replica: it loads its corpus partition,
// builds the in-memory index, and serves the internal search API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lukapolovic/moviesearch/pkg/server"
	"github.com/lukapolovic/moviesearch/pkg/shard"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "shard: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "shard",
		Short: "Movie search shard node",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(v)
		},
	}

	flags := cmd.Flags()
	flags.String("host", "localhost", "listen host")
	flags.Int("port", 8001, "listen port")
	flags.String("corpus", "data/movies.jsonl", "corpus file (.json/.jsonl, optionally .gz/.zst)")
	flags.Int("shard-id", 0, "this node's shard id")
	flags.Int("num-shards", 1, "total number of shards")
	flags.Int("replica-id", 0, "replica id within the shard group")
	flags.Int("workers", 4, "query worker count")
	flags.String("log-level", "info", "log level")

	v.BindPFlags(flags)
	v.BindEnv("shard-id", "SHARD_ID")
	v.BindEnv("num-shards", "NUM_SHARDS")
	v.BindEnv("replica-id", "REPLICA_ID")
	v.BindEnv("corpus", "CORPUS_PATH")
	v.BindEnv("host", "SHARD_HOST")
	v.BindEnv("port", "SHARD_PORT")
	v.BindEnv("log-level", "LOG_LEVEL")

	return cmd
}

func run(v *viper.Viper) error {
	logger := newLogger(v.GetString("log-level"))

	nodeConfig := shard.DefaultConfig()
	nodeConfig.ShardID = v.GetInt("shard-id")
	nodeConfig.NumShards = v.GetInt("num-shards")
	nodeConfig.ReplicaID = v.GetInt("replica-id")
	nodeConfig.CorpusPath = v.GetString("corpus")
	nodeConfig.Workers = v.GetInt("workers")

	if nodeConfig.NumShards < 1 {
		return fmt.Errorf("num-shards must be at least 1")
	}
	if nodeConfig.ShardID < 0 || nodeConfig.ShardID >= nodeConfig.NumShards {
		return fmt.Errorf("shard-id %d out of range for %d shards", nodeConfig.ShardID, nodeConfig.NumShards)
	}

	node := shard.NewNode(nodeConfig, logger)
	defer node.Close()

	if err := node.Load(); err != nil {
		return err
	}

	serverConfig := server.DefaultConfig()
	serverConfig.Host = v.GetString("host")
	serverConfig.Port = v.GetInt("port")

	srv := server.NewShardServer(serverConfig, node, logger)
	return srv.Start(context.Background())
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var w = os.Stderr
	logger := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	if isTerminal(w) {
		logger = logger.Output(zerolog.ConsoleWriter{Out: w})
	}
	return logger
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
