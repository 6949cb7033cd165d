package image

import "github.com/dolthub/swiss"

// ClassInfo is the post-link, execution-ready view of a class: its
// transitive superclass set (for INSTANCEOF), its virtual dispatch table,
// and its finalizer entry point, if any. Grounded on BCHIR.h's ClassInfo.
type ClassInfo struct {
	SuperClasses *swiss.Map[uint32, struct{}]
	VTable       *swiss.Map[uint32, uint32] // method id -> function body index
	FinalizerIdx uint32                     // 0 means "no finalizer"
	MangledName  string
}

// NewClassInfo creates an empty ClassInfo.
func NewClassInfo(mangledName string) *ClassInfo {
	return &ClassInfo{
		SuperClasses: swiss.NewMap[uint32, struct{}](4),
		VTable:       swiss.NewMap[uint32, uint32](8),
		MangledName:  mangledName,
	}
}

// IsSubclassOf reports whether classID is in the transitive superclass set,
// the test behind the INSTANCEOF opcode.
func (c *ClassInfo) IsSubclassOf(classID uint32) bool {
	_, ok := c.SuperClasses.Get(classID)
	return ok
}

// Dispatch resolves a method id to a function body index via the vtable.
func (c *ClassInfo) Dispatch(methodID uint32) (uint32, bool) {
	return c.VTable.Get(methodID)
}

// ClassTable maps a class id to its ClassInfo, the post-link table the
// interpreter and printer consult for INSTANCEOF/virtual dispatch/finalization.
type ClassTable struct {
	classes *swiss.Map[uint32, *ClassInfo]
}

// NewClassTable creates an empty ClassTable.
func NewClassTable() *ClassTable {
	return &ClassTable{classes: swiss.NewMap[uint32, *ClassInfo](16)}
}

// Add registers info under id.
func (t *ClassTable) Add(id uint32, info *ClassInfo) {
	t.classes.Put(id, info)
}

// Get returns the ClassInfo for id.
func (t *ClassTable) Get(id uint32) (*ClassInfo, bool) {
	return t.classes.Get(id)
}

// Exists reports whether id is a known class.
func (t *ClassTable) Exists(id uint32) bool {
	_, ok := t.classes.Get(id)
	return ok
}

// Each calls fn for every (id, info) pair.
func (t *ClassTable) Each(fn func(id uint32, info *ClassInfo)) {
	t.classes.Iter(func(id uint32, info *ClassInfo) bool {
		fn(id, info)
		return false
	})
}
