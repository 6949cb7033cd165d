package ivalue

// Arena owns every aggregate (Tuple/Array/Object) allocated during a single
// Run, plus a queue, in allocation order, of the objects allocated with a
// finalizer (spec §3.2). The queue is only recorded: nothing in this module
// runs the queued finalizers; PendingFinalizers and Drain read and clear it.
// There is no teacher equivalent: nenuphar evaluates pure closures and has
// no heap of its own. Bucket sizing and the finalizer queue are grounded on
// original_source/include/cangjie/CHIR/Interpreter/InterpreterArena.h.
type Arena struct {
	buckets    [][]IVal
	bucketSize int
	allocated  uint64 // AllocatedBytes per spec §3.2, approximate: sizeof(IVal) * live slot count
	finalizers []finalizerEntry
}

type finalizerEntry struct {
	obj *IVal
	pc  uint32 // finalizer function PC, from the class's ClassInfo
}

const defaultBucketSize = 4096

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{bucketSize: defaultBucketSize}
}

// approxIValSize estimates the cost, in bytes, of one IVal slot for the
// AllocatedBytes accounting exposed by GET_ALLOCATE_HEAP_SIZE.
const approxIValSize = 64

func (a *Arena) grow(n int) []IVal {
	bucket := make([]IVal, n)
	a.buckets = append(a.buckets, bucket)
	a.allocated += uint64(n) * approxIValSize
	return bucket
}

// NewTuple allocates a Tuple IVal with n zeroed (Invalid) elements, backed
// by arena storage, and returns a pointer to it so callers can fill fields
// in place.
func (a *Arena) NewTuple(n int) *IVal {
	slots := a.grow(n)
	v := &IVal{Kind: TupleKind, Payload: slots}
	return v
}

// NewArray allocates an Array IVal of the given length, content
// zero-initialised to Invalid, with the normative length element set.
func (a *Arena) NewArray(length int64) *IVal {
	slots := a.grow(int(length) + 1)
	slots[0] = Int(I64, length)
	v := &IVal{Kind: ArrayKind, Payload: slots}
	return v
}

// NewObject allocates an Object IVal with numFields field slots for the
// given class id. If finalizerPC is non-zero, the object and that PC are
// appended to the finalizer queue (see PendingFinalizers).
func (a *Arena) NewObject(classID uint32, numFields int, finalizerPC uint32) *IVal {
	slots := a.grow(numFields)
	v := &IVal{Kind: ObjectKind, ClassID: classID, Payload: slots}
	if finalizerPC != 0 {
		a.finalizers = append(a.finalizers, finalizerEntry{obj: v, pc: finalizerPC})
	}
	return v
}

// AllocatedBytes reports the arena's approximate allocation size, used by
// the GET_ALLOCATE_HEAP_SIZE intrinsic (GET_REAL_HEAP_SIZE always reports 0).
func (a *Arena) AllocatedBytes() uint64 {
	return a.allocated
}

// PendingFinalizers returns the (object, finalizer PC) pairs queued for
// this arena, in allocation order, without draining the queue.
func (a *Arena) PendingFinalizers() []struct {
	Obj *IVal
	PC  uint32
} {
	out := make([]struct {
		Obj *IVal
		PC  uint32
	}, len(a.finalizers))
	for i, f := range a.finalizers {
		out[i] = struct {
			Obj *IVal
			PC  uint32
		}{Obj: f.obj, PC: f.pc}
	}
	return out
}

// Drain clears the finalizer queue without running any finalizer. No code
// in this module outside the tests calls it.
func (a *Arena) Drain() {
	a.finalizers = a.finalizers[:0]
}
