package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ruteri/api-server-template/cmd/flags"
	"github.com/ruteri/api-server-template/common"
	"github.com/ruteri/api-server-template/tokenstore"
)

var cliFlags = append([]cli.Flag{
	flags.TokenStoreFlag,
	flags.LogServiceFlagFn(common.PackageName),
}, flags.LoggingFlags...)

func main() {
	app := &cli.App{
		Name:  "gentoken",
		Usage: "Generate a new API token and persist its hash",
		Flags: cliFlags,
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			store, err := tokenstore.NewFactory(logger).StoreFor(cCtx.String(flags.TokenStoreFlag.Name))
			if err != nil {
				logger.Error("Failed to create token store", "err", err)
				return err
			}

			// The plaintext goes to stdout only; the hash goes to the store.
			if err := tokenstore.GenerateAndSave(context.Background(), store, os.Stdout, logger); err != nil {
				logger.Error("Failed to generate token", "err", err)
				return err
			}
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
