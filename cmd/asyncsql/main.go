package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	konghcl "github.com/alecthomas/kong-hcl/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tomyedwab/asyncsql/conf"
)

type arguments struct {
	Config kong.ConfigFlag `help:"Path to an HCL file with flag defaults" type:"existingfile"`
	Log    conf.LogConfig  `help:"Configuration for the logger" embed:"" prefix:"log-"`

	Serve serveCmd `cmd:"" help:"Serve the statement catalog over HTTP."`
	Check checkCmd `cmd:"" help:"Validate a catalog and prepare every statement against its database."`
	Token tokenCmd `cmd:"" help:"Issue a bearer token for the gateway."`
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg := arguments{}
	parser, err := kong.New(&cfg,
		kong.Name("asyncsql"),
		kong.Description("Asynchronous SQL statement execution over a fixed worker pool."),
		kong.Configuration(konghcl.Loader, "/etc/asyncsql/asyncsql.hcl"),
		kong.UsageOnError(),
	)
	if err != nil {
		return errors.WithStack(err)
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return errors.WithStack(err)
	}
	logger, err := cfg.Log.Build()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	return kctx.Run(logger)
}

type checkCmd struct {
	Catalog string `help:"Path to the JSON catalog configuration" type:"existingfile" required:""`
}

func (c *checkCmd) Run(logger *zap.Logger) error {
	cfg, err := conf.Load(c.Catalog)
	if err != nil {
		return err
	}
	svc, err := newService(cfg, logger)
	if err != nil {
		return err
	}
	svc.close()
	fmt.Printf("%s: %d statements OK\n", c.Catalog, len(cfg.Statements))
	return nil
}
