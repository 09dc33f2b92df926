package gc

// Visitor receives the ids of cells directly referenced by a traced value.
// The mark phase supplies the concrete implementation; Traceable
// implementations never need to know how ids are queued.
type Visitor interface {
	Visit(id CellID)
}

// Traceable is implemented by every heap-resident Go type that may itself
// hold references to other cells. The mark phase is generic over it rather
// than hand-special-cased per object kind (spec.md §9 "dynamic dispatch").
type Traceable interface {
	Trace(v Visitor)
}

// Finalizer is implemented by heap-resident types that need to run cleanup
// before their cell is reclaimed by a sweep.
type Finalizer interface {
	Finalize()
}

type visitorFunc func(CellID)

func (f visitorFunc) Visit(id CellID) { f(id) }
