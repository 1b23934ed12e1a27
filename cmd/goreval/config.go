package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/sandrolain/goreval/pkg/evaluator"
	"github.com/sandrolain/goreval/pkg/types"
)

// contextFile is the YAML schema of a context file:
//
//	constants:
//	  FACTOR: 2.5
//	variables:
//	  x: 5
//	arrays:
//	  data: [10, 20, 30, 40, 50]
//	attributes:
//	  point: {x: 3, y: 4}
//	functions:
//	  - name: hyp
//	    params: [a, b]
//	    body: sqrt(a^2 + b^2)
type contextFile struct {
	Constants  map[string]float64            `yaml:"constants"`
	Variables  map[string]float64            `yaml:"variables"`
	Arrays     map[string][]float64          `yaml:"arrays"`
	Attributes map[string]map[string]float64 `yaml:"attributes"`
	Functions  []functionDef                 `yaml:"functions"`
}

type functionDef struct {
	Name   string   `yaml:"name"`
	Params []string `yaml:"params"`
	Body   string   `yaml:"body"`
}

// loadContext builds the evaluation context, applying a YAML context file
// on top of the default one when a path is given.
func loadContext(path string) (*evaluator.Context, error) {
	ctx := evaluator.NewContext()
	if path == "" {
		return ctx, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cf contextFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse context file %s: %w", path, err)
	}

	for name, v := range cf.Constants {
		if err := ctx.SetConstant(name, types.Real(v)); err != nil {
			return nil, err
		}
	}
	for name, v := range cf.Variables {
		ctx.SetVariable(name, types.Real(v))
	}
	for name, vs := range cf.Arrays {
		arr := make([]types.Real, len(vs))
		for i, v := range vs {
			arr[i] = types.Real(v)
		}
		ctx.SetArray(name, arr)
	}
	for object, fields := range cf.Attributes {
		for field, v := range fields {
			ctx.SetAttribute(object, field, types.Real(v))
		}
	}
	for _, fn := range cf.Functions {
		if err := ctx.Registry().RegisterExpression(fn.Name, fn.Params, fn.Body); err != nil {
			return nil, fmt.Errorf("register function %s: %w", fn.Name, err)
		}
	}

	slog.Debug("context loaded",
		slog.String("file", path),
		slog.Int("constants", len(cf.Constants)),
		slog.Int("variables", len(cf.Variables)),
		slog.Int("arrays", len(cf.Arrays)),
		slog.Int("functions", len(cf.Functions)),
	)

	return ctx, nil
}
