package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ruteri/api-server-template/certificate"
	"github.com/ruteri/api-server-template/cmd/flags"
	"github.com/ruteri/api-server-template/common"
	"github.com/ruteri/api-server-template/config"
)

var cliFlags = append([]cli.Flag{
	flags.ConfigFlag,
	flags.LogServiceFlagFn(common.PackageName),
}, flags.LoggingFlags...)

func main() {
	app := &cli.App{
		Name:  "gencert",
		Usage: "Generate the self-signed TLS certificate for local development",
		Flags: cliFlags,
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			cfg, err := config.Load(cCtx.String(flags.ConfigFlag.Name))
			if err != nil {
				logger.Error("Failed to load configuration", "err", err)
				return err
			}

			// Unconditional: replaces any existing pair.
			handler := certificate.NewHandler(cfg.Certificate, logger)
			if err := handler.Generate(); err != nil {
				logger.Error("Failed to generate certificate", "err", err)
				return err
			}

			if err := handler.Verify(); err != nil {
				logger.Error("Generated certificate failed verification", "err", err)
				return err
			}
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
