// Command gantry runs the deployment gateway: an HTTP service translating
// deployment requests into workload submissions against Kubernetes or AWS
// ECS.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gantryio/gantry/rest"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/level"
	"github.com/mongodb/grip/message"
	"github.com/mongodb/grip/send"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	flagListen      = "listen"
	flagCallTimeout = "call-timeout"
	flagLogLevel    = "log-level"

	shutdownGrace = 10 * time.Second
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		grip.Error(message.WrapError(err, "running gantry"))
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gantry",
		Short: "HTTP gateway translating deployment requests into Kubernetes or ECS workloads",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
		SilenceUsage: true,
	}

	cmd.Flags().String(flagListen, ":8080", "address the HTTP service listens on")
	cmd.Flags().Duration(flagCallTimeout, 0, "bound on each outbound platform call (0 for no bound)")
	cmd.Flags().String(flagLogLevel, "info", "minimum level to log")

	// Every flag can also be set through a GANTRY_* environment variable,
	// e.g. GANTRY_LISTEN=:9090.
	viper.SetEnvPrefix("gantry")
	viper.AutomaticEnv()
	grip.EmergencyFatal(message.WrapError(viper.BindPFlags(cmd.Flags()), "binding flags"))

	return cmd
}

func serve(ctx context.Context) error {
	if err := setLogLevel(viper.GetString(flagLogLevel)); err != nil {
		return err
	}

	opts := rest.NewServiceOptions()
	if timeout := viper.GetDuration(flagCallTimeout); timeout > 0 {
		opts.SetCallTimeout(timeout)
	}

	svc, err := rest.NewService(*opts)
	if err != nil {
		return errors.Wrap(err, "creating service")
	}

	addr := viper.GetString(flagListen)
	server := &http.Server{
		Addr:    addr,
		Handler: svc.Router(),
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		grip.Info(message.Fields{
			"message": "gantry listening",
			"address": addr,
		})
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return errors.Wrap(err, "serving")
	case <-ctx.Done():
	}

	grip.Info("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	return errors.Wrap(server.Shutdown(sctx), "shutting down server")
}

func setLogLevel(name string) error {
	priority := level.FromString(name)
	if !priority.IsValid() {
		return errors.Errorf("unrecognized log level '%s'", name)
	}

	return errors.Wrap(grip.GetSender().SetLevel(send.LevelInfo{
		Default:   level.Info,
		Threshold: priority,
	}), "setting log level")
}
