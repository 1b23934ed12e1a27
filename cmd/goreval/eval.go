package main

import (
	"fmt"
	"log/slog"

	"github.com/sandrolain/goreval/pkg/evaluator"
	"github.com/sandrolain/goreval/pkg/types"
)

// EvalCmd evaluates expressions given on the command line.
type EvalCmd struct {
	Exprs  []string           `arg:""                                       name:"expr" help:"Expressions to evaluate."`
	Define map[string]float64 `help:"Parameter bindings, e.g. -D x=5."      short:"D"`
}

// Run executes the eval command.
func (e *EvalCmd) Run(ctx *evaluator.Context) error {
	batch := evaluator.NewBatch(evaluator.WithContinueOnError())

	for _, src := range e.Exprs {
		if _, err := batch.AddExpression(src); err != nil {
			return fmt.Errorf("%s: %w", src, err)
		}
	}
	for name, v := range e.Define {
		if _, err := batch.AddParameter(name, types.Real(v)); err != nil {
			return err
		}
	}

	slog.Debug("batch populated",
		slog.Int("expressions", batch.Len()),
		slog.Int("parameters", batch.ParameterCount()),
		slog.Int("arena_bytes", batch.BytesUsed()),
	)

	_ = batch.Evaluate(ctx) // per-expression statuses are reported below

	for i, src := range e.Exprs {
		if err := batch.Status(i); err != nil {
			fmt.Printf("%s %s\n", errorStyle.Render(src+" =>"), err)
			continue
		}
		v, _ := batch.Result(i)
		fmt.Printf("%s %s\n", exprStyle.Render(src+" ="), resultStyle.Render(formatReal(v)))
	}
	return nil
}

func formatReal(v types.Real) string {
	return fmt.Sprintf("%g", float64(v))
}
