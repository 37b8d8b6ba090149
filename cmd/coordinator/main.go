// Command coordinator runs the fan-out coordinator: it parses the shard
// topology, heartbeats every replica, and serves the public search API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lukapolovic/moviesearch/pkg/cluster"
	"github.com/lukapolovic/moviesearch/pkg/server"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "coordinator: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "coordinator",
		Short: "Movie search fan-out coordinator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(v)
		},
	}

	flags := cmd.Flags()
	flags.String("host", "localhost", "listen host")
	flags.Int("port", 9000, "listen port")
	flags.String("shard-groups", "", `topology, e.g. "0=http://h1:8001,http://h3:8001;1=http://h2:8001"`)
	flags.String("shard-urls", "http://127.0.0.1:8001,http://127.0.0.1:8002", "fallback: one replica per shard")
	flags.Bool("graphql", false, "enable the /graphql endpoint")
	flags.String("log-level", "info", "log level")

	v.BindPFlags(flags)
	v.BindEnv("shard-groups", "SHARD_GROUPS")
	v.BindEnv("shard-urls", "SHARD_URLS")
	v.BindEnv("host", "COORDINATOR_HOST")
	v.BindEnv("port", "COORDINATOR_PORT")
	v.BindEnv("log-level", "LOG_LEVEL")

	return cmd
}

func run(v *viper.Viper) error {
	logger := newLogger(v.GetString("log-level"))

	topology, err := cluster.ParseTopology(v.GetString("shard-groups"), v.GetString("shard-urls"))
	if err != nil {
		return fmt.Errorf("invalid topology: %w", err)
	}

	for _, shardID := range topology.ShardIDs() {
		logger.Info().
			Int("shard_id", shardID).
			Strs("replicas", topology[shardID]).
			Msg("shard group configured")
	}

	coordinator := cluster.NewCoordinator(topology, logger)

	serverConfig := server.DefaultConfig()
	serverConfig.Host = v.GetString("host")
	serverConfig.Port = v.GetInt("port")

	srv := server.NewCoordinatorServer(serverConfig, coordinator, logger)
	srv.EnableGraphQL = v.GetBool("graphql")
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
