package eval

import (
	"fmt"
	"math"

	"nickandperla.net/rpn/internal/token"
)

func truth(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}

// applyOperator pops the operands op needs and pushes its result.
// The second-popped operand is the left one. Arithmetic follows
// ordinary floating-point semantics: divide-by-zero and domain
// violations produce Inf or NaN instead of failing.
func applyOperator(op string, f *frame) error {
	n := token.Arity(op)
	if len(f.stack) < n {
		return fmt.Errorf("%w: %q needs %d operand(s), have %d", ErrStackUnderflow, op, n, len(f.stack))
	}
	var a, b, c float64
	switch n {
	case 1:
		a, _ = f.pop()
	case 2:
		b, _ = f.pop()
		a, _ = f.pop()
	case 3:
		c, _ = f.pop()
		b, _ = f.pop()
		a, _ = f.pop()
	}

	switch op {
	case "+":
		f.push(a + b)
	case "-":
		f.push(a - b)
	case "*":
		f.push(a * b)
	case "/":
		f.push(a / b)
	case "%":
		f.push(math.Mod(a, b))
	case "^", "pow":
		f.push(math.Pow(a, b))
	case "==", "=":
		f.push(truth(a == b))
	case "!=", "<>":
		f.push(truth(a != b))
	case ">":
		f.push(truth(a > b))
	case "<":
		f.push(truth(a < b))
	case ">=":
		f.push(truth(a >= b))
	case "<=":
		f.push(truth(a <= b))
	case "and", "&&":
		f.push(truth(a != 0 && b != 0))
	case "or", "||":
		f.push(truth(a != 0 || b != 0))
	case "not", "!":
		f.push(truth(a == 0))
	case "round":
		// ties round to even
		f.push(math.RoundToEven(a))
	case "floor":
		f.push(math.Floor(a))
	case "ceil":
		f.push(math.Ceil(a))
	case "abs":
		f.push(math.Abs(a))
	case "sin":
		f.push(math.Sin(a))
	case "cos":
		f.push(math.Cos(a))
	case "tan":
		f.push(math.Tan(a))
	case "log":
		f.push(math.Log(a))
	case "exp":
		f.push(math.Exp(a))
	case "min":
		f.push(math.Min(a, b))
	case "max":
		f.push(math.Max(a, b))
	case "clamp":
		// c is the value, b the upper bound, a the lower
		f.push(math.Max(a, math.Min(b, c)))
	case "pow2":
		f.push(a * a)
	case "sqrt2":
		f.push(math.Sqrt(a))
	case "sqrt":
		// b-th root
		f.push(math.Pow(a, 1/b))
	case "dnor":
		// normalize to [0,360) for either sign
		f.push(math.Mod(math.Mod(a, 360)+360, 360))
	default:
		return fmt.Errorf("%w: %q", ErrUnknownToken, op)
	}
	return nil
}
