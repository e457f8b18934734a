// Command evmc-sim is the command-line front end of the toolkit. It has two
// subcommands: compile, which compiles a bytecode file into the artifact
// directory with the bundled fake backend and linker, and gas-guzzlers,
// which returns an error because no chain-backed state provider is bundled.
// It has no call/transaction/block replay or bytecode-touch subcommands.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/evmc-sim/evmc-sim/compiler"
	"github.com/evmc-sim/evmc-sim/evmclog"
)

func main() {
	app := &cli.App{
		Name:  "evmc-sim",
		Usage: "native-compiled EVM simulation toolkit",
		Commands: []*cli.Command{
			compileCmd(),
			gasGuzzlersCmd(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		evmclog.Error("evmc-sim failed", "err", err)
		os.Exit(1)
	}
}

func compileCmd() *cli.Command {
	return &cli.Command{
		Name:  "compile",
		Usage: "ahead-of-time compile a bytecode file to a shared object",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bytecode", Required: true, Usage: "path to a raw bytecode file"},
			&cli.StringFlag{Name: "out", Value: "./out", Usage: "artifact output directory"},
			&cli.StringFlag{Name: "options", Usage: "optional yaml CompilerOptions file"},
		},
		Action: func(c *cli.Context) error {
			opts := compiler.Default()
			if p := c.String("options"); p != "" {
				loaded, err := compiler.LoadOptionsYAML(p)
				if err != nil {
					return err
				}
				opts = loaded
			}
			opts.OutDir = c.String("out")

			bytecode, err := os.ReadFile(c.String("bytecode"))
			if err != nil {
				return err
			}

			driver := compiler.NewDriver(compiler.NewFakeBackend(), compiler.NewFakeLinker(), opts)
			hash, err := driver.CompileAOT(context.Background(), bytecode)
			if err != nil {
				return err
			}
			fmt.Println(hash.Hex())
			return nil
		},
	}
}

func gasGuzzlersCmd() *cli.Command {
	return &cli.Command{
		Name:  "gas-guzzlers",
		Usage: "sample a block range and rank contracts by net gas usage",
		Flags: []cli.Flag{
			&cli.Uint64Flag{Name: "start", Required: true},
			&cli.Uint64Flag{Name: "end", Required: true},
			&cli.IntFlag{Name: "sample-size", Value: 100},
			&cli.Uint64Flag{Name: "seed"},
			&cli.IntFlag{Name: "top", Value: 20},
		},
		Action: func(c *cli.Context) error {
			return fmt.Errorf("gas-guzzlers requires a wired stateprovider.Provider backed by a real chain database, which is an external collaborator outside this command's bundled backends (start/end=%d/%d)", c.Uint64("start"), c.Uint64("end"))
		},
	}
}
