package evaluator_test

import (
	"errors"
	"math"
	"testing"

	"github.com/sandrolain/goreval/pkg/evaluator"
	"github.com/sandrolain/goreval/pkg/types"
)

func evalOne(t *testing.T, ctx *evaluator.Context, src string) types.Real {
	t.Helper()
	b := evaluator.NewBatch()
	idx, err := b.AddExpression(src)
	if err != nil {
		t.Fatalf("AddExpression(%q): %v", src, err)
	}
	if err := b.Evaluate(ctx); err != nil {
		t.Fatalf("Evaluate(%q): %v", src, err)
	}
	v, err := b.Result(idx)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	return v
}

func evalErr(t *testing.T, ctx *evaluator.Context, src string) *types.Error {
	t.Helper()
	b := evaluator.NewBatch()
	if _, err := b.AddExpression(src); err != nil {
		t.Fatalf("AddExpression(%q): %v", src, err)
	}
	err := b.Evaluate(ctx)
	if err == nil {
		t.Fatalf("Evaluate(%q) succeeded, want error", src)
	}
	var e *types.Error
	if !errors.As(err, &e) {
		t.Fatalf("Evaluate(%q) error %T is not *types.Error", src, err)
	}
	return e
}

func almostEqual(a, b types.Real) bool {
	return math.Abs(float64(a-b)) < 1e-9
}

func TestArithmetic(t *testing.T) {
	ctx := evaluator.NewContext()

	tests := []struct {
		input string
		want  types.Real
	}{
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"10 - 4 - 3", 3},
		{"7 / 2", 3.5},
		{"7 % 3", 1},
		{"2 ^ 10", 1024},
		{"2 ** 10", 1024},
		{"2 ^ 3 ^ 2", 512},
		{"-3 ^ 2", -9},
		{"+5", 5},
		{"1, 2, 3", 3},
		{"1; 2; 42", 42},
	}

	for _, tc := range tests {
		if got := evalOne(t, ctx, tc.input); !almostEqual(got, tc.want) {
			t.Errorf("%q = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestComparisonsAndLogic(t *testing.T) {
	ctx := evaluator.NewContext()

	tests := []struct {
		input string
		want  types.Real
	}{
		{"1 < 2", 1},
		{"2 < 1", 0},
		{"2 <= 2", 1},
		{"3 > 2", 1},
		{"3 >= 4", 0},
		{"2 == 2", 1},
		{"2 != 2", 0},
		{"2 <> 3", 1},
		{"1 && 0", 0},
		{"1 && 5", 1},
		{"0 || 0", 0},
		{"0 || 7", 1},
		{"2 || 0", 1},
	}

	for _, tc := range tests {
		if got := evalOne(t, ctx, tc.input); got != tc.want {
			t.Errorf("%q = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestBitwiseAndShifts(t *testing.T) {
	ctx := evaluator.NewContext()

	tests := []struct {
		input string
		want  types.Real
	}{
		{"12 & 10", 8},
		{"12 | 10", 14},
		{"~0", -1},
		{"1 << 4", 16},
		{"256 >> 4", 16},
		{"-8 >> 1", -4}, // arithmetic shift
		{"1 <<< 1", 2},
		{"2 >>> 1", 1},
	}

	for _, tc := range tests {
		if got := evalOne(t, ctx, tc.input); got != tc.want {
			t.Errorf("%q = %v, want %v", tc.input, got, tc.want)
		}
	}

	// A left rotate past the top bit comes back around on the right.
	if got := evalOne(t, ctx, "(1 <<< 63) <<< 1"); got != 1 {
		t.Errorf("rotate wrap = %v, want 1", got)
	}
}

func TestIEEESemantics(t *testing.T) {
	ctx := evaluator.NewContext()

	if got := evalOne(t, ctx, "1 / 0"); !math.IsInf(float64(got), 1) {
		t.Errorf("1/0 = %v, want +Inf", got)
	}
	if got := evalOne(t, ctx, "-1 / 0"); !math.IsInf(float64(got), -1) {
		t.Errorf("-1/0 = %v, want -Inf", got)
	}
	if got := evalOne(t, ctx, "0 / 0"); !math.IsNaN(float64(got)) {
		t.Errorf("0/0 = %v, want NaN", got)
	}
	if got := evalOne(t, ctx, "sqrt(0 - 1)"); !math.IsNaN(float64(got)) {
		t.Errorf("sqrt(-1) = %v, want NaN", got)
	}
}

func TestVariableResolutionOrder(t *testing.T) {
	ctx := evaluator.NewContext()
	ctx.SetVariable("x", 100)

	b := evaluator.NewBatch()
	idx, err := b.AddExpression("x")
	if err != nil {
		t.Fatal(err)
	}
	// The batch parameter shadows the context variable.
	if _, err := b.AddParameter("x", 5); err != nil {
		t.Fatal(err)
	}
	if err := b.Evaluate(ctx); err != nil {
		t.Fatal(err)
	}
	if v, _ := b.Result(idx); v != 5 {
		t.Errorf("parameter did not shadow variable: %v", v)
	}
}

func TestUnknownName(t *testing.T) {
	ctx := evaluator.NewContext()
	if e := evalErr(t, ctx, "nope + 1"); e.Code != types.ErrUnknownName {
		t.Errorf("code = %s, want %s", e.Code, types.ErrUnknownName)
	}
}

func TestArrays(t *testing.T) {
	ctx := evaluator.NewContext()
	ctx.SetArray("data", []types.Real{10, 20, 30, 40, 50})

	if got := evalOne(t, ctx, "data[2]"); got != 30 {
		t.Errorf("data[2] = %v, want 30", got)
	}
	// Fractional indices truncate toward zero.
	if got := evalOne(t, ctx, "data[2.9]"); got != 30 {
		t.Errorf("data[2.9] = %v, want 30", got)
	}
	if got := evalOne(t, ctx, "data[1 + 2]"); got != 40 {
		t.Errorf("data[1+2] = %v, want 40", got)
	}

	if e := evalErr(t, ctx, "data[5]"); e.Code != types.ErrIndexOutOfBounds {
		t.Errorf("code = %s, want %s", e.Code, types.ErrIndexOutOfBounds)
	}
	if e := evalErr(t, ctx, "data[0 - 1]"); e.Code != types.ErrIndexOutOfBounds {
		t.Errorf("code = %s, want %s", e.Code, types.ErrIndexOutOfBounds)
	}
	if e := evalErr(t, ctx, "missing[0]"); e.Code != types.ErrUnknownName {
		t.Errorf("code = %s, want %s", e.Code, types.ErrUnknownName)
	}
}

func TestAttributes(t *testing.T) {
	ctx := evaluator.NewContext()
	ctx.SetAttribute("point", "x", 3)
	ctx.SetAttribute("point", "y", 4)

	if got := evalOne(t, ctx, "point.x + point.y"); got != 7 {
		t.Errorf("point.x + point.y = %v, want 7", got)
	}
	if e := evalErr(t, ctx, "point.z"); e.Code != types.ErrUnknownAttribute {
		t.Errorf("code = %s, want %s", e.Code, types.ErrUnknownAttribute)
	}
	if e := evalErr(t, ctx, "nobody.x"); e.Code != types.ErrUnknownAttribute {
		t.Errorf("code = %s, want %s", e.Code, types.ErrUnknownAttribute)
	}
}

func TestShortCircuit(t *testing.T) {
	ctx := evaluator.NewContext()

	var calls int
	ctx.Registry().RegisterNative("probe", 0, func(args []types.Real) types.Real {
		calls++
		return 1
	})

	if got := evalOne(t, ctx, "1 || probe()"); got != 1 {
		t.Fatalf("1 || probe() = %v", got)
	}
	if calls != 0 {
		t.Errorf("|| evaluated its right operand %d times", calls)
	}

	if got := evalOne(t, ctx, "0 && probe()"); got != 0 {
		t.Fatalf("0 && probe() = %v", got)
	}
	if calls != 0 {
		t.Errorf("&& evaluated its right operand %d times", calls)
	}

	// The right operand still runs when the left side does not decide.
	if got := evalOne(t, ctx, "0 || probe()"); got != 1 {
		t.Fatalf("0 || probe() = %v", got)
	}
	if calls != 1 {
		t.Errorf("|| skipped a needed right operand (calls = %d)", calls)
	}
}

func TestShortCircuitDivisionGuard(t *testing.T) {
	// x == 0 || 10/x > 5 with x = 0: the division must never run, and the
	// whole expression is true.
	ctx := evaluator.NewContext()
	ctx.SetVariable("x", 0)

	if got := evalOne(t, ctx, "x == 0 || 10 / x > 5"); got != 1 {
		t.Errorf("guard expression = %v, want 1", got)
	}
}

func TestNativeFunctions(t *testing.T) {
	ctx := evaluator.NewContext()

	if got := evalOne(t, ctx, "sin(pi / 4) + cos(pi / 4)"); !almostEqual(got, types.Real(math.Sqrt2)) {
		t.Errorf("sin(pi/4)+cos(pi/4) = %v, want %v", got, math.Sqrt2)
	}
	if got := evalOne(t, ctx, "hypot(3, 4)"); got != 5 {
		t.Errorf("hypot(3,4) = %v, want 5", got)
	}
	if got := evalOne(t, ctx, "max(min(3, 7), 2)"); got != 3 {
		t.Errorf("max(min(3,7),2) = %v, want 3", got)
	}

	if e := evalErr(t, ctx, "sin(1, 2)"); e.Code != types.ErrArityMismatch {
		t.Errorf("code = %s, want %s", e.Code, types.ErrArityMismatch)
	}
	if e := evalErr(t, ctx, "nosuch(1)"); e.Code != types.ErrUnknownFunction {
		t.Errorf("code = %s, want %s", e.Code, types.ErrUnknownFunction)
	}
}

func TestExpressionFunctions(t *testing.T) {
	ctx := evaluator.NewContext()
	if err := ctx.Registry().RegisterExpression("hypot2", []string{"a", "b"}, "sqrt(a^2 + b^2)"); err != nil {
		t.Fatal(err)
	}

	if got := evalOne(t, ctx, "hypot2(3, 4)"); got != 5 {
		t.Errorf("hypot2(3,4) = %v, want 5", got)
	}

	// Formals shadow context variables inside the body only.
	ctx.SetVariable("a", 1000)
	if got := evalOne(t, ctx, "hypot2(3, 4) + a"); got != 1005 {
		t.Errorf("hypot2(3,4) + a = %v, want 1005", got)
	}
}

func TestExpressionFunctionCallsNative(t *testing.T) {
	ctx := evaluator.NewContext()
	if err := ctx.Registry().RegisterExpression("deg", []string{"r"}, "r * 180 / pi"); err != nil {
		t.Fatal(err)
	}
	if got := evalOne(t, ctx, "deg(pi)"); !almostEqual(got, 180) {
		t.Errorf("deg(pi) = %v, want 180", got)
	}
}

func TestRecursionLimit(t *testing.T) {
	ctx := evaluator.NewContext()
	// Self-recursion can never terminate; the depth counter must stop it.
	if err := ctx.Registry().RegisterExpression("loop", []string{"n"}, "loop(n + 1)"); err != nil {
		t.Fatal(err)
	}

	if e := evalErr(t, ctx, "loop(0)"); e.Code != types.ErrRecursionLimit {
		t.Errorf("code = %s, want %s", e.Code, types.ErrRecursionLimit)
	}
}

func TestMutualRecursionLimit(t *testing.T) {
	ctx := evaluator.NewContext()
	if err := ctx.Registry().RegisterExpression("ping", []string{"n"}, "pong(n + 1)"); err != nil {
		t.Fatal(err)
	}
	if err := ctx.Registry().RegisterExpression("pong", []string{"n"}, "ping(n + 1)"); err != nil {
		t.Fatal(err)
	}

	if e := evalErr(t, ctx, "ping(0)"); e.Code != types.ErrRecursionLimit {
		t.Errorf("code = %s, want %s", e.Code, types.ErrRecursionLimit)
	}
}

func TestOperatorSynonyms(t *testing.T) {
	ctx := evaluator.NewContext()
	ctx.SetVariable("a", 3)
	ctx.SetVariable("b", 4)

	if evalOne(t, ctx, "a <> b") != evalOne(t, ctx, "a != b") {
		t.Error("<> and != disagree")
	}
	if evalOne(t, ctx, "a ^ b") != evalOne(t, ctx, "a ** b") {
		t.Error("^ and ** disagree")
	}
}

func TestJuxtaposedApplication(t *testing.T) {
	ctx := evaluator.NewContext()
	if got := evalOne(t, ctx, "sqrt 16"); got != 4 {
		t.Errorf("sqrt 16 = %v, want 4", got)
	}
	if got := evalOne(t, ctx, "sqrt(16)"); got != 4 {
		t.Errorf("sqrt(16) = %v, want 4", got)
	}
}

func TestDeeplyNestedExpression(t *testing.T) {
	// A long operator chain keeps the evaluator's explicit stack busy but
	// must not touch the host stack.
	src := "1"
	for i := 0; i < 500; i++ {
		src += " + 1"
	}
	ctx := evaluator.NewContext()
	if got := evalOne(t, ctx, src); got != 501 {
		t.Errorf("chain = %v, want 501", got)
	}
}

func TestParametersWithConstants(t *testing.T) {
	ctx := evaluator.NewContext()
	if err := ctx.SetConstant("FACTOR", 2.5); err != nil {
		t.Fatal(err)
	}

	b := evaluator.NewBatch()
	idx, err := b.AddExpression("x + y * FACTOR")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.AddParameter("x", 5); err != nil {
		t.Fatal(err)
	}
	if _, err := b.AddParameter("y", 10); err != nil {
		t.Fatal(err)
	}
	if err := b.Evaluate(ctx); err != nil {
		t.Fatal(err)
	}
	if v, _ := b.Result(idx); v != 30 {
		t.Errorf("x + y * FACTOR = %v, want 30", v)
	}
}

func TestAttributeDistance(t *testing.T) {
	ctx := evaluator.NewContext()
	ctx.SetAttribute("point", "x", 3)
	ctx.SetAttribute("point", "y", 4)

	if got := evalOne(t, ctx, "sqrt(point.x^2 + point.y^2)"); got != 5 {
		t.Errorf("distance = %v, want 5", got)
	}
}
