//go:build wasip1

// Command goreval-wasm-wasi is the WASI (wasip1) entrypoint for use from
// any language that supports the WebAssembly System Interface.
//
// Protocol: single JSON object on stdin → single JSON object on stdout.
//
//	stdin:  { "expressions": ["x + 1"], "parameters": {"x": 2},
//	          "constants": {...}, "arrays": {...}, "attributes": {...},
//	          "functions": [{"name": "...", "params": [...], "body": "..."}] }
//	stdout: { "results": [3] }          on success
//	        { "error":   "<message>" }  on failure (exit code 1)
//
// Build:
//
//	GOOS=wasip1 GOARCH=wasm go build -o goreval.wasm ./cmd/wasm/wasi/
//
// Usage with wasmtime CLI:
//
//	echo '{"expressions":["2+3*4"]}' | wasmtime goreval.wasm
package main

import (
	"encoding/json"
	"os"

	"github.com/sandrolain/goreval/pkg/evaluator"
	"github.com/sandrolain/goreval/pkg/types"
)

type functionDef struct {
	Name   string   `json:"name"`
	Params []string `json:"params"`
	Body   string   `json:"body"`
}

type request struct {
	Expressions []string                      `json:"expressions"`
	Parameters  map[string]float64            `json:"parameters"`
	Constants   map[string]float64            `json:"constants"`
	Variables   map[string]float64            `json:"variables"`
	Arrays      map[string][]float64          `json:"arrays"`
	Attributes  map[string]map[string]float64 `json:"attributes"`
	Functions   []functionDef                 `json:"functions"`
}

type response struct {
	Results []float64 `json:"results,omitempty"`
	Error   string    `json:"error,omitempty"`
}

func writeResponse(r response, exitCode int) {
	_ = json.NewEncoder(os.Stdout).Encode(r)
	os.Exit(exitCode)
}

func fail(err error) {
	writeResponse(response{Error: err.Error()}, 1)
}

func main() {
	var req request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(response{Error: "invalid request JSON: " + err.Error()}, 1)
	}

	ctx := evaluator.NewContext()
	for name, v := range req.Constants {
		if err := ctx.SetConstant(name, types.Real(v)); err != nil {
			fail(err)
		}
	}
	for name, v := range req.Variables {
		ctx.SetVariable(name, types.Real(v))
	}
	for name, vs := range req.Arrays {
		arr := make([]types.Real, len(vs))
		for i, v := range vs {
			arr[i] = types.Real(v)
		}
		ctx.SetArray(name, arr)
	}
	for object, fields := range req.Attributes {
		for field, v := range fields {
			ctx.SetAttribute(object, field, types.Real(v))
		}
	}
	for _, fn := range req.Functions {
		if err := ctx.Registry().RegisterExpression(fn.Name, fn.Params, fn.Body); err != nil {
			fail(err)
		}
	}

	batch := evaluator.NewBatch()
	for _, src := range req.Expressions {
		if _, err := batch.AddExpression(src); err != nil {
			fail(err)
		}
	}
	for name, v := range req.Parameters {
		if _, err := batch.AddParameter(name, types.Real(v)); err != nil {
			fail(err)
		}
	}

	if err := batch.Evaluate(ctx); err != nil {
		fail(err)
	}

	results := make([]float64, batch.Len())
	for i := range results {
		v, err := batch.Result(i)
		if err != nil {
			fail(err)
		}
		results[i] = float64(v)
	}

	writeResponse(response{Results: results}, 0)
}
