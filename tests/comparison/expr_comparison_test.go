// Package comparison_test checks goreval against an independent oracle:
// the expr-lang/expr evaluator. A shared corpus of expressions valid in
// both languages is evaluated by both engines and the results compared.
//
// The corpus deliberately stays inside the intersection of the two
// grammars: arithmetic, exponentiation (^ and ** mean the same thing in
// both), comparisons, and boolean combinations of comparisons. Engine
// features with no expr-lang counterpart (juxtaposed application, bit
// rotates, attribute maps) are covered by the unit tests instead.
package comparison_test

import (
	"math"
	"testing"

	"github.com/expr-lang/expr"

	"github.com/sandrolain/goreval"
)

// oracleEnv is the variable binding shared by both engines.
var oracleEnv = map[string]float64{
	"x": 2.5,
	"y": -1.25,
	"z": 7,
}

// numericCorpus evaluates to a number in both engines.
var numericCorpus = []string{
	"2.0 + 3.0 * 4.0",
	"(2.0 + 3.0) * 4.0",
	"10.0 - 4.0 - 3.0",
	"7.0 / 2.0",
	"2.0 ^ 10.0",
	"2.0 ** 10.0",
	"2.0 ^ 3.0 ^ 2.0",
	"x + y * z",
	"x * x - y * y",
	"(x + y) * (x - y)",
	"x / (y + z)",
	"x ^ 2.0 + y ^ 2.0",
	"((x + 1.0) * (x + 2.0)) / (x + 3.0)",
	"1.5e2 + 0.5",
}

// booleanCorpus evaluates to a boolean in expr-lang and to 1/0 in goreval.
var booleanCorpus = []string{
	"x > 1.0",
	"x < 1.0",
	"x >= 2.5",
	"x <= 2.5",
	"x == 2.5",
	"x != 2.5",
	"x > 1.0 && y < 0.0",
	"x > 1.0 && y > 0.0",
	"x < 1.0 || z == 7.0",
	"x < 1.0 || z != 7.0",
	"(x > 0.0 || y > 0.0) && z > 0.0",
}

func oracleEval(t *testing.T, src string) float64 {
	t.Helper()
	program, err := expr.Compile(src, expr.Env(oracleEnv))
	if err != nil {
		t.Fatalf("oracle compile %q: %v", src, err)
	}
	out, err := expr.Run(program, oracleEnv)
	if err != nil {
		t.Fatalf("oracle run %q: %v", src, err)
	}
	switch v := out.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	default:
		t.Fatalf("oracle %q returned %T", src, out)
		return 0
	}
}

func engineEval(t *testing.T, src string) float64 {
	t.Helper()
	vars := make(map[string]goreval.Real, len(oracleEnv))
	for name, v := range oracleEnv {
		vars[name] = goreval.Real(v)
	}
	got, err := goreval.Eval(src, vars)
	if err != nil {
		t.Fatalf("engine eval %q: %v", src, err)
	}
	return float64(got)
}

func TestNumericAgreement(t *testing.T) {
	for _, src := range numericCorpus {
		t.Run(src, func(t *testing.T) {
			want := oracleEval(t, src)
			got := engineEval(t, src)
			if !closeEnough(got, want) {
				t.Errorf("engine = %v, oracle = %v", got, want)
			}
		})
	}
}

func TestBooleanAgreement(t *testing.T) {
	for _, src := range booleanCorpus {
		t.Run(src, func(t *testing.T) {
			want := oracleEval(t, src)
			got := engineEval(t, src)
			if got != want {
				t.Errorf("engine = %v, oracle = %v", got, want)
			}
		})
	}
}

// TestGeneratedAgreement sweeps a grid of operand values through a set of
// expression templates, comparing both engines at every point.
func TestGeneratedAgreement(t *testing.T) {
	templates := []string{
		"a + b",
		"a - b",
		"a * b",
		"a / b",
		"a ^ 2.0 + b",
		"(a + b) * (a - b)",
	}
	grid := []float64{-2.5, -1, -0.5, 0.25, 1, 3.75}

	for _, tmpl := range templates {
		for _, a := range grid {
			for _, b := range grid {
				env := map[string]float64{"a": a, "b": b}

				program, err := expr.Compile(tmpl, expr.Env(env))
				if err != nil {
					t.Fatalf("oracle compile %q: %v", tmpl, err)
				}
				out, err := expr.Run(program, env)
				if err != nil {
					t.Fatalf("oracle run %q: %v", tmpl, err)
				}
				want, ok := out.(float64)
				if !ok {
					t.Fatalf("oracle %q returned %T", tmpl, out)
				}

				got, err := goreval.Eval(tmpl, map[string]goreval.Real{
					"a": goreval.Real(a), "b": goreval.Real(b),
				})
				if err != nil {
					t.Fatalf("engine eval %q: %v", tmpl, err)
				}

				if !closeEnough(float64(got), want) {
					t.Errorf("%s with a=%v b=%v: engine = %v, oracle = %v",
						tmpl, a, b, got, want)
				}
			}
		}
	}
}

func closeEnough(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return a == b
	}
	diff := math.Abs(a - b)
	if diff < 1e-12 {
		return true
	}
	scale := math.Max(math.Abs(a), math.Abs(b))
	return diff < 1e-12*scale
}

func BenchmarkEngineVsOracle(b *testing.B) {
	const src = "(x + y) * (x - y) / (x ^ 2.0 + 1.0)"

	b.Run("goreval", func(b *testing.B) {
		batch := goreval.NewBatch()
		ctx := goreval.NewContext()
		if _, err := batch.AddExpression(src); err != nil {
			b.Fatal(err)
		}
		if _, err := batch.AddParameter("x", 2.5); err != nil {
			b.Fatal(err)
		}
		if _, err := batch.AddParameter("y", -1.25); err != nil {
			b.Fatal(err)
		}
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if err := batch.Evaluate(ctx); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("expr-lang", func(b *testing.B) {
		env := map[string]float64{"x": 2.5, "y": -1.25}
		program, err := expr.Compile(src, expr.Env(env))
		if err != nil {
			b.Fatal(err)
		}
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := expr.Run(program, env); err != nil {
				b.Fatal(err)
			}
		}
	})
}
