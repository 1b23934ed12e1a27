package functions

import (
	"math"

	"github.com/sandrolain/goreval/pkg/types"
)

// DefaultRegistry returns a registry pre-loaded with the math builtins.
// All builtins go through float64 internally regardless of the Real
// precision selected at build time.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.RegisterNative("sin", 1, wrap1(math.Sin))
	r.RegisterNative("cos", 1, wrap1(math.Cos))
	r.RegisterNative("tan", 1, wrap1(math.Tan))
	r.RegisterNative("asin", 1, wrap1(math.Asin))
	r.RegisterNative("acos", 1, wrap1(math.Acos))
	r.RegisterNative("atan", 1, wrap1(math.Atan))
	r.RegisterNative("atan2", 2, wrap2(math.Atan2))
	r.RegisterNative("sinh", 1, wrap1(math.Sinh))
	r.RegisterNative("cosh", 1, wrap1(math.Cosh))
	r.RegisterNative("tanh", 1, wrap1(math.Tanh))
	r.RegisterNative("exp", 1, wrap1(math.Exp))
	r.RegisterNative("ln", 1, wrap1(math.Log))
	r.RegisterNative("log", 1, wrap1(math.Log10))
	r.RegisterNative("log10", 1, wrap1(math.Log10))
	r.RegisterNative("sqrt", 1, wrap1(math.Sqrt))
	r.RegisterNative("abs", 1, wrap1(math.Abs))
	r.RegisterNative("floor", 1, wrap1(math.Floor))
	r.RegisterNative("ceil", 1, wrap1(math.Ceil))
	r.RegisterNative("round", 1, wrap1(math.Round))
	r.RegisterNative("pow", 2, wrap2(math.Pow))
	r.RegisterNative("fmod", 2, wrap2(math.Mod))
	r.RegisterNative("hypot", 2, wrap2(math.Hypot))
	r.RegisterNative("min", 2, wrap2(math.Min))
	r.RegisterNative("max", 2, wrap2(math.Max))
	r.RegisterNative("sign", 1, func(args []types.Real) types.Real {
		switch {
		case args[0] > 0:
			return 1
		case args[0] < 0:
			return -1
		default:
			return args[0] // keeps ±0 and NaN
		}
	})

	return r
}

func wrap1(fn func(float64) float64) NativeFunc {
	return func(args []types.Real) types.Real {
		return types.Real(fn(float64(args[0])))
	}
}

func wrap2(fn func(float64, float64) float64) NativeFunc {
	return func(args []types.Real) types.Real {
		return types.Real(fn(float64(args[0]), float64(args[1])))
	}
}
