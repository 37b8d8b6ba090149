// Command router runs the load-balancing front: it probes coordinator
// readiness and round-robins public searches across the ready ones.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lukapolovic/moviesearch/pkg/router"
	"github.com/lukapolovic/moviesearch/pkg/server"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "router: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "router",
		Short: "Movie search coordinator load balancer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(v)
		},
	}

	flags := cmd.Flags()
	flags.String("host", "localhost", "listen host")
	flags.Int("port", 9900, "listen port")
	flags.String("coordinator-urls", "http://127.0.0.1:9000", "comma-separated coordinator base URLs")
	flags.String("log-level", "info", "log level")

	v.BindPFlags(flags)
	v.BindEnv("coordinator-urls", "COORDINATOR_URLS")
	v.BindEnv("host", "ROUTER_HOST")
	v.BindEnv("port", "ROUTER_PORT")
	v.BindEnv("log-level", "LOG_LEVEL")

	return cmd
}

func run(v *viper.Viper) error {
	logger := newLogger(v.GetString("log-level"))

	var coordinators []string
	for _, u := range strings.Split(v.GetString("coordinator-urls"), ",") {
		u = strings.TrimRight(strings.TrimSpace(u), "/")
		if u != "" {
			coordinators = append(coordinators, u)
		}
	}

	rt, err := router.New(coordinators, logger)
	if err != nil {
		return err
	}

	serverConfig := server.DefaultConfig()
	serverConfig.Host = v.GetString("host")
	serverConfig.Port = v.GetInt("port")

	srv := server.NewRouterServer(serverConfig, rt, logger)
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
