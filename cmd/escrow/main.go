package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tdex-network/tdex-escrow/config"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	filedb "github.com/tdex-network/tdex-escrow/internal/infrastructure/storage/db/file"
	"github.com/urfave/cli/v2"
)

var (
	datadirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "the data directory of the escrow daemon",
		Value: config.GetDatadir(),
	}

	ownersFlag = cli.Int64SliceFlag{
		Name:  "owner",
		Usage: "the user id of an owner, can be repeated",
	}
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fatal(err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()

	app.Version = "0.0.1"
	app.Name = "escrow"
	app.Usage = "Command line interface to inspect the ledger of the escrow daemon"
	app.Flags = []cli.Flag{
		&datadirFlag,
		&ownersFlag,
	}
	app.Commands = append(
		app.Commands,
		&listtrades,
		&gettrade,
		&userstats,
		&summary,
		&listadmins,
	)
	return app
}

// getLedger restores the ledger persisted by the daemon. The state file is
// only read, the daemon can keep running.
func getLedger(ctx *cli.Context) (*domain.LedgerState, error) {
	statePath := filepath.Join(ctx.String(datadirFlag.Name), filedb.StateFilename)

	snapshot, err := filedb.ReadSnapshot(statePath)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, fmt.Errorf("no ledger state found at %s", statePath)
	}

	return domain.RestoreLedgerState(ctx.Int64Slice(ownersFlag.Name), *snapshot)
}

func printRespJSON(ctx *cli.Context, resp interface{}) error {
	buf, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		return fmt.Errorf("unable to encode response: %w", err)
	}

	_, err = fmt.Fprintln(ctx.App.Writer, string(buf))
	return err
}

type invalidUsageError struct {
	ctx     *cli.Context
	command string
}

func (e *invalidUsageError) Error() string {
	return fmt.Sprintf("invalid usage of command %s", e.command)
}

func fatal(err error) {
	var e *invalidUsageError
	if errors.As(err, &e) {
		_ = cli.ShowCommandHelp(e.ctx, e.command)
	} else {
		_, _ = fmt.Fprintf(os.Stderr, "[escrow] %v\n", err)
	}
	os.Exit(1)
}
