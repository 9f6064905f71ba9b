// Copyright 2021 Converter Systems LLC. All rights reserved.

// Command plcsim serves a simulated PLC.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/awcullen/uacore/internal/plc"
	"github.com/awcullen/uacore/server"
	"github.com/awcullen/uacore/ua"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// SoftwareVersion is the version reported in the BuildInfo of the server.
const SoftwareVersion = "0.9.0"

var rootCmd = &cobra.Command{
	Use:   "plcsim",
	Short: "Simulated PLC served over OPC UA",
	Long: `Serves a simulated PLC. Sensor values change every update interval.

Examples:
  plcsim
  plcsim --endpoint opc.tcp://0.0.0.0:4841/plc --interval 500ms
  PLCSIM_LOG_LEVEL=debug plcsim --metrics-addr :9091`,
	SilenceUsage: true,
	RunE:         runServer,
}

var hashCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Print the bcrypt hash of a password, for the users section of the config file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(hash))
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.Flags()
	rootCmd.PersistentFlags().String("config", "", "config file (yaml)")
	flags.StringP("endpoint", "e", "opc.tcp://0.0.0.0:4840/freeopcua/server/", "endpoint url")
	flags.Duration("interval", plc.DefaultUpdateInterval, "update interval")
	flags.Int64("seed", 0, "seed of the value generator (0 seeds with the time)")
	flags.String("namespace", plc.DefaultNamespaceURI, "namespace uri of the PLC nodes")
	flags.String("metrics-addr", ":9090", "address of the /metrics endpoint (empty disables)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Bool("anonymous", true, "allow anonymous sessions")
	flags.Duration("min-sampling-interval", 100*time.Millisecond, "fastest sampling interval")
	flags.Uint32("max-sessions", 0, "max number of sessions (0 is unlimited)")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	for _, name := range []string{"endpoint", "interval", "seed", "namespace", "metrics-addr", "log-level", "anonymous", "min-sampling-interval", "max-sessions"} {
		viper.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.AddCommand(hashCmd)
}

func initConfig() {
	viper.SetEnvPrefix("PLCSIM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if file := viper.GetString("config"); file != "" {
		viper.SetConfigFile(file)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file. %s\n", err)
			os.Exit(1)
		}
	}
}

func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(level).With().Timestamp().Logger()
}

func runServer(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []server.Option{
		server.WithBuildInfo(ua.BuildInfo{
			ProductURI:       "https://github.com/awcullen/uacore/cmd/plcsim",
			ManufacturerName: "Converter Systems LLC",
			ProductName:      "plcsim",
			SoftwareVersion:  SoftwareVersion,
		}),
		server.WithAnonymousIdentity(viper.GetBool("anonymous")),
		server.WithMinSamplingInterval(viper.GetDuration("min-sampling-interval")),
		server.WithMaxSessionCount(viper.GetUint32("max-sessions")),
		server.WithLogger(logger),
		server.WithMetrics(reg),
	}
	// users maps user names to bcrypt hashes, see hash-password.
	if users := viper.GetStringMapString("users"); len(users) > 0 {
		opts = append(opts, server.WithAuthenticateUserNameIdentityFunc(server.BcryptUserNameIdentityAuthenticator(users)))
		logger.Info().Int("users", len(users)).Msg("User name identity enabled.")
	}

	srv, err := server.New(viper.GetString("endpoint"), opts...)
	if err != nil {
		return errors.Wrap(err, "error creating server")
	}

	p, err := plc.New(srv.NamespaceManager(),
		plc.WithGenerator(plc.NewRandomGenerator(seed())),
		plc.WithNamespaceURI(viper.GetString("namespace")),
		plc.WithLogger(logger.With().Str("component", "plc").Logger()),
	)
	if err != nil {
		return errors.Wrap(err, "error creating plc")
	}
	go p.Run(ctx, viper.GetDuration("interval"))

	if addr := viper.GetString("metrics-addr"); addr != "" {
		go serveMetrics(ctx, addr, reg, logger)
	}

	go func() {
		<-ctx.Done()
		logger.Info().Msg("Stopping server...")
		srv.Close()
	}()

	logger.Info().Str("endpoint", srv.EndpointURL()).Msg("Starting server. Press Ctrl-C to exit...")
	if err := srv.ListenAndServe(); err != ua.BadServerHalted {
		return errors.Wrap(err, "error opening server")
	}
	return nil
}

func seed() int64 {
	if s := viper.GetInt64("seed"); s != 0 {
		return s
	}
	return time.Now().UnixNano()
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	hs := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		hs.Close()
	}()
	logger.Info().Str("addr", addr).Msg("Serving metrics.")
	if err := hs.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("Error serving metrics.")
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
