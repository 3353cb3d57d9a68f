package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/urfave/cli/v2"

	"github.com/ruteri/api-server-template/certificate"
	"github.com/ruteri/api-server-template/cmd/flags"
	"github.com/ruteri/api-server-template/common"
	"github.com/ruteri/api-server-template/config"
	"github.com/ruteri/api-server-template/httpserver"
	"github.com/ruteri/api-server-template/metrics"
	"github.com/ruteri/api-server-template/tokenstore"
)

var cliFlags = append([]cli.Flag{
	flags.ConfigFlag,
	flags.PortFlag,
	flags.TokenStoreFlag,
	flags.BootstrapCertsFlag,
	flags.TrustProxyFlag,
	flags.LogServiceFlagFn(common.PackageName),
}, flags.CommonFlags...)

func main() {
	app := &cli.App{
		Name:   "api-server",
		Usage:  "Serve the HTTPS API with token authentication, metrics and TLS bootstrap",
		Flags:  cliFlags,
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	cfg, err := loadServerConfig(cCtx.String(flags.ConfigFlag.Name), cCtx.Int(flags.PortFlag.Name), deploymentRules())
	if err != nil {
		logger.Error("Failed to load configuration", "err", err)
		return err
	}

	certHandler := certificate.NewHandler(cfg.Certificate, logger)
	if cCtx.Bool(flags.BootstrapCertsFlag.Name) {
		if err := certHandler.EnsureExists(); err != nil {
			logger.Error("Failed to bootstrap TLS material", "err", err)
			return err
		}
	} else if !certHandler.Exists() {
		err := fmt.Errorf("certificate files missing and bootstrapping is disabled: %s, %s",
			certHandler.KeyFile(), certHandler.CertFile())
		logger.Error("Refusing to start without TLS material", "err", err)
		return err
	}

	store, err := tokenstore.NewFactory(logger).StoreFor(cCtx.String(flags.TokenStoreFlag.Name))
	if err != nil {
		logger.Error("Failed to create token store", "err", err)
		return err
	}

	tokenHash, err := store.LoadHash(context.Background())
	if err != nil {
		logger.Error("Failed to load token hash", "err", err, "store", store.LocationURI())
		return err
	}
	if tokenHash == "" {
		logger.Warn("No API token configured, protected routes will reject all requests",
			slog.String("store", store.LocationURI()))
	}

	m := metrics.New()
	m.SetTokenConfigured(tokenHash != "")

	serverCfg := flags.ConfigureServer(cCtx, logger, cfg.Server.Addr())
	serverCfg.TLSCertFile = certHandler.CertFile()
	serverCfg.TLSKeyFile = certHandler.KeyFile()

	writer := httpserver.NewJSONWriter(cfg.JSONResponse)
	srv, err := httpserver.New(serverCfg, cfg, m, tokenHash, loginRoute(writer, logger))
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}

	logger.Info("Starting server", "url", cfg.Server.URL()+httpserver.APIPrefix)
	srv.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running, press Ctrl+C to stop")
	<-exit
	logger.Info("Shutdown signal received")

	srv.Shutdown()
	logger.Info("Server shutdown complete")

	return nil
}

// loadServerConfig loads the configuration file and applies a non-zero port
// override. The override is persisted back so it survives restarts, but only
// after the merged configuration passes structural validation and the
// deployment rules; a rejected override never reaches the file.
func loadServerConfig(path string, portOverride int, rules config.Validator) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if portOverride != 0 {
		cfg.Server.Port = portOverride
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration after port override: %w", err)
		}
	}

	if err := rules.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	if portOverride != 0 {
		if err := cfg.SaveToFile(path); err != nil {
			return nil, fmt.Errorf("failed to persist port override: %w", err)
		}
	}

	return cfg, nil
}

// deploymentRules is this deployment's configuration check, run after the
// structural validation pass.
func deploymentRules() config.Validator {
	return config.ValidatorFunc(func(cfg *config.Config) error {
		if cfg.Server.Port < 1024 {
			return fmt.Errorf("refusing to serve on privileged port %d", cfg.Server.Port)
		}
		return nil
	})
}

// loginRoute registers the example protected endpoint.
func loginRoute(writer *httpserver.JSONWriter, logger *slog.Logger) httpserver.RouteRegistrar {
	return func(r chi.Router, auth func(http.Handler) http.Handler) {
		r.With(auth).Get("/login", func(w http.ResponseWriter, req *http.Request) {
			logger.Info("User login successful")
			writer.Write(w, http.StatusOK, httpserver.BaseResponse{
				Code:      http.StatusOK,
				Message:   "Login successful.",
				Timestamp: httpserver.CurrentTimestamp(),
			})
		})
	}
}
