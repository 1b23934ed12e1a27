// Command goreval evaluates expressions from the command line or an
// interactive prompt, against a context optionally loaded from a YAML file.
//
//	goreval eval "2 + 3 * 4"
//	goreval eval -D x=5 -D y=10 "x + y * 2.5"
//	goreval -c plant.yaml repl
package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
)

var cli struct {
	Context string `help:"YAML context file with constants, variables, arrays, attributes, and functions." short:"c" type:"existingfile" optional:""`
	Verbose bool   `help:"Enable debug logging."                                                           short:"v"`

	Eval EvalCmd `cmd:"" help:"Evaluate one or more expressions."`
	Repl ReplCmd `cmd:"" help:"Start an interactive prompt."`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("goreval"),
		kong.Description("Embeddable arithmetic-expression engine."),
		kong.UsageOnError(),
	)

	level := slog.LevelWarn
	if cli.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	ctx, err := loadContext(cli.Context)
	kctx.FatalIfErrorf(err)

	kctx.FatalIfErrorf(kctx.Run(ctx))
}
