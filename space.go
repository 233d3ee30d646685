package ferry

import "sync"

// ObjectSpace is the reference Runtime: a flat, id-keyed object table with no
// collection. Objects live until the space itself is dropped, which is what a
// test harness or a short-lived tool wants; a real host (see the luart
// package) supplies its own space with its own reclamation rules.
type ObjectSpace struct {
	mu      sync.Mutex
	next    Handle
	objects map[Handle]*spaceObject
}

type spaceObject struct {
	tag  string
	data any
}

// NewSpace creates an empty object space.
func NewSpace() *ObjectSpace {
	return &ObjectSpace{objects: make(map[Handle]*spaceObject)}
}

// Alloc stores a tagged object and returns its handle. Handles are monotonic
// and never reused.
func (s *ObjectSpace) Alloc(tag string, data any) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.objects[s.next] = &spaceObject{tag: tag, data: data}
	return s.next
}

// Tag returns the dynamic type tag of the object behind h.
func (s *ObjectSpace) Tag(h Handle) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[h]
	if !ok {
		return "", false
	}
	return obj.tag, true
}

// Data returns the tagged state stored at allocation.
func (s *ObjectSpace) Data(h Handle) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[h]
	if !ok {
		return nil, false
	}
	return obj.data, true
}

// Len reports how many objects the space holds.
func (s *ObjectSpace) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// SizeOf returns an approximate byte count for the object's backing state.
// The figure is informative only; 0 means the handle is unknown.
func (s *ObjectSpace) SizeOf(h Handle) int {
	s.mu.Lock()
	obj, ok := s.objects[h]
	s.mu.Unlock()
	if !ok {
		return 0
	}
	return approxSize(obj.data)
}

// approxSize mimics a collector's sizeof query: header plus payload, with no
// promise of stability between versions.
func approxSize(data any) int {
	const header = 16
	switch v := data.(type) {
	case bool, byte:
		return header + 1
	case string:
		return header + len(v)
	case []Handle:
		return header + 8*len(v)
	default:
		return header + 8
	}
}
