package asyncjob

import (
	"github.com/nmxmxh/esengine/internal/errs"
	"github.com/nmxmxh/esengine/internal/object"
	"github.com/nmxmxh/esengine/internal/realm"
	"github.com/nmxmxh/esengine/internal/values"
	"github.com/nmxmxh/esengine/internal/vm"
)

// Driver wires generator/async-function bodies (run on internal/vm
// Coroutines) to the Promise/job-queue machinery spec.md §4.H describes,
// installing itself on a VM's OnGenerator/OnAsync hooks so ordinary
// function calls transparently produce Generator/Promise objects instead
// of running to completion (SPEC_FULL.md component H).
type Driver struct {
	r    *realm.Realm
	v    *vm.VM
	jobs *JobQueue
}

// NewDriver builds the Generator/Promise prototypes on r, installs the
// global Promise constructor, and wires v's generator/async hooks. Call
// once per VM at Context construction time (engine.go).
func NewDriver(r *realm.Realm, v *vm.VM) *Driver {
	d := &Driver{r: r, v: v, jobs: NewJobQueue()}
	d.installGeneratorProto()
	d.installPromiseProto()
	d.installPromiseConstructor()
	v.OnGenerator = d.onGenerator
	v.OnAsync = d.onAsync
	return d
}

// RunJobs drains the microtask queue (spec.md §6 Context::run_jobs, §8
// scenario 5).
func (d *Driver) RunJobs() error { return d.jobs.RunJobs() }

// JobsPending reports whether any microtask is still queued.
func (d *Driver) JobsPending() bool { return d.jobs.Pending() }

// borrowObject resolves val to its underlying *object.Object, the same
// Borrow-then-type-assert pattern internal/vm's asObject uses — asyncjob
// cannot call that unexported method directly, so it repeats the pattern
// against the same exported gc/object/values surface.
func borrowObject(val values.Value) (*object.Object, func(), error) {
	if !val.IsObject() {
		return nil, func() {}, errs.BorrowError
	}
	h, release, err := val.AsObject().Borrow()
	if err != nil {
		return nil, func() {}, err
	}
	o, ok := h.(*object.Object)
	if !ok {
		release()
		return nil, func() {}, errs.BorrowError
	}
	return o, release, nil
}

func key(name string) values.PropertyKey {
	return values.PropertyKey{Str: values.NewString(name)}
}
