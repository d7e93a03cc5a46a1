package rulespec

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
	"github.com/google/cel-go/ext"

	"github.com/roach88/paramx/internal/transform"
	"github.com/roach88/paramx/internal/value"
)

// costLimit bounds the work a single expression evaluation may do.
const costLimit = 1000000

var reducerEnv = sync.OnceValues(func() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("acc", cel.DynType),
		cel.Variable("original", cel.DynType),
		cel.CrossTypeNumericComparisons(true),
		ext.Strings(),
	)
})

var validatorEnv = sync.OnceValues(func() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("value", cel.DynType),
		cel.CrossTypeNumericComparisons(true),
		ext.Strings(),
	)
})

func compileProgram(env *cel.Env, src string) (cel.Program, *cel.Ast, error) {
	ast, issues := env.Compile(src)
	if issues != nil && issues.Err() != nil {
		return nil, nil, fmt.Errorf("compile error: %w", issues.Err())
	}

	prog, err := env.Program(ast,
		cel.EvalOptions(cel.OptOptimize),
		cel.CostLimit(costLimit),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("program creation error: %w", err)
	}
	return prog, ast, nil
}

// ExprReducer compiles a CEL expression over acc and original into a Reducer.
// Evaluation errors are returned from the reducer and fail the Build.
func ExprReducer(src string) (transform.Reducer, error) {
	env, err := reducerEnv()
	if err != nil {
		return nil, err
	}
	prog, _, err := compileProgram(env, src)
	if err != nil {
		return nil, err
	}

	return func(acc, original value.Value) (value.Value, error) {
		out, _, err := prog.Eval(map[string]any{
			"acc":      value.ToNative(acc),
			"original": value.ToNative(original),
		})
		if err != nil {
			return nil, fmt.Errorf("eval %q: %w", src, err)
		}
		return fromCEL(out)
	}, nil
}

// ExprValidator compiles a CEL expression over value into a Validator. The
// expression must be boolean. Evaluation errors and non-boolean results count
// as invalid.
func ExprValidator(src string) (transform.Validator, error) {
	env, err := validatorEnv()
	if err != nil {
		return nil, err
	}
	prog, ast, err := compileProgram(env, src)
	if err != nil {
		return nil, err
	}
	if t := ast.OutputType(); !t.IsExactType(cel.BoolType) && !t.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("validator expression must be bool, got %s", t)
	}

	return func(v value.Value) bool {
		out, _, err := prog.Eval(map[string]any{"value": value.ToNative(v)})
		if err != nil {
			return false
		}
		b, ok := out.(types.Bool)
		return ok && bool(b)
	}, nil
}

// fromCEL converts an evaluation result back into a Value.
func fromCEL(v ref.Val) (value.Value, error) {
	switch val := v.(type) {
	case types.Null:
		return value.Null{}, nil
	case types.Bool:
		return value.Bool(val), nil
	case types.Int:
		return value.Number(val), nil
	case types.Uint:
		return value.Number(val), nil
	case types.Double:
		return value.Number(val), nil
	case types.String:
		return value.String(val), nil
	case traits.Mapper:
		out := make(value.Object)
		it := val.Iterator()
		for it.HasNext() == types.True {
			k := it.Next()
			key, ok := k.(types.String)
			if !ok {
				return nil, fmt.Errorf("map key %v is %s, not a string", k, k.Type())
			}
			elem, err := fromCEL(val.Get(k))
			if err != nil {
				return nil, err
			}
			out[string(key)] = elem
		}
		return out, nil
	case traits.Lister:
		size, ok := val.Size().(types.Int)
		if !ok {
			return nil, fmt.Errorf("list size is not an int")
		}
		out := make(value.List, int(size))
		for i := range out {
			elem, err := fromCEL(val.Get(types.Int(i)))
			if err != nil {
				return nil, err
			}
			out[i] = elem
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported expression result type %s", v.Type())
	}
}
