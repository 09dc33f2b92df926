package esengine_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmxmxh/esengine"
)

// These mirror spec.md §8's end-to-end scenario table verbatim, one test
// per numbered scenario, driven through the public Context surface the way
// an embedder would use it.

func newContext(t *testing.T) *esengine.Context {
	t.Helper()
	ctx, err := esengine.New(esengine.DefaultConfig())
	require.NoError(t, err)
	return ctx
}

func TestScenario1IntegerAddition(t *testing.T) {
	ctx := newContext(t)
	v, err := ctx.Eval("1 + 2")
	require.NoError(t, err)
	assert.Equal(t, float64(3), v.ToNumber())
}

func TestScenario2StringConcatCoercesOperand(t *testing.T) {
	ctx := newContext(t)
	v, err := ctx.Eval(`"1" + 2`)
	require.NoError(t, err)
	assert.Equal(t, "12", v.ToStringValue().GoString())
}

func TestScenario3RecursiveFibonacci(t *testing.T) {
	ctx := newContext(t)
	v, err := ctx.Eval(`(function f(n){ return n < 2 ? n : f(n-1)+f(n-2); })(10)`)
	require.NoError(t, err)
	assert.Equal(t, float64(55), v.ToNumber())
}

func TestScenario4ObjectSpread(t *testing.T) {
	ctx := newContext(t)
	v, err := ctx.Eval(`({a:1, b:2, ...({c:3})}).c`)
	require.NoError(t, err)
	assert.Equal(t, float64(3), v.ToNumber())
}

func TestScenario5AsyncAwaitResolvesThroughJobQueue(t *testing.T) {
	ctx := newContext(t)

	var captured esengine.Value
	require.NoError(t, ctx.RegisterCallable("__capture", func(_ esengine.Value, args []esengine.Value) (esengine.Value, error) {
		if len(args) > 0 {
			captured = args[0]
		}
		return esengine.Undefined, nil
	}))

	_, err := ctx.Eval(`
		(async () => {
			let v = await Promise.resolve(42);
			__capture(await Promise.resolve(v).then(x => x));
		})();
	`)
	require.NoError(t, err)

	require.NoError(t, ctx.RunJobs())
	assert.False(t, ctx.JobsPending())
	assert.Equal(t, float64(42), captured.ToNumber())
}

func TestScenario6GeneratorSuspension(t *testing.T) {
	ctx := newContext(t)
	v, err := ctx.Eval(`
		let g = (function*(){ yield 1; yield 2; })();
		let r1 = g.next();
		let r2 = g.next();
		let r3 = g.next();
		"" + r1.value + "," + r1.done + "," +
			r2.value + "," + r2.done + "," +
			r3.value + "," + r3.done;
	`)
	require.NoError(t, err)
	assert.Equal(t, "1,false,2,false,undefined,true", v.ToStringValue().GoString())
}

func TestFinallyRunsOnThrowAndNormalExit(t *testing.T) {
	ctx := newContext(t)
	v, err := ctx.Eval(`
		let log = "";
		try {
			try {
				throw "boom";
			} finally {
				log = log + "inner-finally,";
			}
		} catch (e) {
			log = log + "caught:" + e + ",";
		} finally {
			log = log + "outer-finally";
		}
		log;
	`)
	require.NoError(t, err)
	assert.Equal(t, "inner-finally,caught:boom,outer-finally", v.ToStringValue().GoString())
}

func TestTDZThrowsReferenceError(t *testing.T) {
	ctx := newContext(t)
	_, err := ctx.Eval(`
		(function() {
			x;
			let x = 1;
		})();
	`)
	require.Error(t, err)
}

func TestStrictModeWriteToPrimitiveThrowsTypeError(t *testing.T) {
	ctx := newContext(t)
	_, err := ctx.Eval(`"use strict"; (1).x = 5;`)
	require.Error(t, err)
}

func TestSloppyModeWriteToPrimitiveIsSilentNoOp(t *testing.T) {
	ctx := newContext(t)
	v, err := ctx.Eval(`(1).x = 5; 1;`)
	require.NoError(t, err)
	assert.Equal(t, float64(1), v.ToNumber())
}

func TestArrayConstructorLengthBoundaries(t *testing.T) {
	ctx := newContext(t)

	v, err := ctx.Eval("Array(3).length")
	require.NoError(t, err)
	assert.Equal(t, float64(3), v.ToNumber())

	_, err = ctx.Eval("Array(4294967296)") // 2**32
	require.Error(t, err)

	v, err = ctx.Eval(`Array(1, 2, 3).length`)
	require.NoError(t, err)
	assert.Equal(t, float64(3), v.ToNumber())
}

func TestArrayLengthAssignmentRangeError(t *testing.T) {
	ctx := newContext(t)
	_, err := ctx.Eval(`let a = [1,2,3]; a.length = -1;`)
	require.Error(t, err)
}

func TestMathMaxMinEmptyArgBoundaries(t *testing.T) {
	ctx := newContext(t)
	v, err := ctx.Eval("Math.max()")
	require.NoError(t, err)
	assert.True(t, math.IsInf(v.ToNumber(), -1))

	v, err = ctx.Eval("Math.min()")
	require.NoError(t, err)
	assert.True(t, math.IsInf(v.ToNumber(), 1))
}
