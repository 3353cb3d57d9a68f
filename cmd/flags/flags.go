package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/ruteri/api-server-template/common"
	"github.com/ruteri/api-server-template/httpserver"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")
	logFile := cCtx.String(LogFileFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
		LogFile: logFile,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *httpserver.HTTPServerConfig {
	metricsAddr := cCtx.String(MetricsAddrFlag.Name)
	enablePprof := cCtx.Bool(PprofFlag.Name)
	trustProxy := cCtx.Bool(TrustProxyFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &httpserver.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              metricsAddr,
		Log:                      logger,
		EnablePprof:              enablePprof,
		TrustProxy:               trustProxy,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

var ConfigFlag = &cli.StringFlag{
	Name:  "config",
	Value: "configuration/config.json",
	Usage: "path to the JSON configuration file",
}

var PortFlag = &cli.IntFlag{
	Name:  "port",
	Value: 0,
	Usage: "override the configured server port and persist it back to the configuration file",
}

var TokenStoreFlag = &cli.StringFlag{
	Name:  "token-store",
	Value: "file://.env",
	Usage: "token hash store URI: file://<path>, vault://<addr>/<mount>/<path> or s3://<bucket>/<key>",
}

var BootstrapCertsFlag = &cli.BoolFlag{
	Name:  "bootstrap-certs",
	Value: true,
	Usage: "generate self-signed TLS material when missing; when disabled missing files are fatal",
}

var TrustProxyFlag = &cli.BoolFlag{
	Name:  "trust-proxy",
	Value: false,
	Usage: "trust X-Real-Ip and X-Forwarded-For headers for client addressing",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogFileFlag = &cli.StringFlag{
	Name:  "log-file",
	Value: "logs/server.log",
	Usage: "rotating log file path, empty logs to stdout only",
}

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "log-service",
		Value: service,
		Usage: "add 'service' tag to logs",
	}
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "",
	Usage: "optional address for a standalone metrics listener; /metrics is always served on the API port",
}

// LoggingFlags is the minimal set for short-lived operator tools.
var LoggingFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogFileFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}
