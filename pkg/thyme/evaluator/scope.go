package evaluator

// frame is one lexical environment. Frames live in the Scope arena and refer
// to their parent by index; a template invocation starts a frame with no parent.
type frame struct {
	vars   map[string]Object
	this   Object
	params []Object
	parent int
	file   string
}

const noParent = -1

// Scope is the stack of frames for one top-level render. Frames are pushed on
// entry to a block or template invocation and popped when it returns, so no
// frame outlives the call that created it.
type Scope struct {
	frames []frame
}

// NewScope returns a scope whose root frame has this as its current object.
func NewScope(file string, this Object, params []Object) *Scope {
	s := &Scope{frames: make([]frame, 0, 16)}
	s.push(noParent, this, params, file)
	return s
}

// Root is the index of the outermost frame.
func (s *Scope) Root() int { return 0 }

func (s *Scope) push(parent int, this Object, params []Object, file string) int {
	if this == nil {
		this = NULL
	}
	s.frames = append(s.frames, frame{this: this, params: params, parent: parent, file: file})
	return len(s.frames) - 1
}

// child pushes a frame under parent that keeps its current object and params.
func (s *Scope) child(parent int) int {
	p := s.frames[parent]
	return s.push(parent, p.this, p.params, p.file)
}

// pop discards frame idx and everything above it.
func (s *Scope) pop(idx int) {
	for i := idx; i < len(s.frames); i++ {
		s.frames[i] = frame{}
	}
	s.frames = s.frames[:idx]
}

// Get resolves $name from frame idx outwards.
func (s *Scope) Get(idx int, name string) (Object, bool) {
	for idx != noParent {
		f := &s.frames[idx]
		if v, ok := f.vars[name]; ok {
			return v, true
		}
		idx = f.parent
	}
	return nil, false
}

// Set binds $name in frame idx.
func (s *Scope) Set(idx int, name string, val Object) {
	f := &s.frames[idx]
	if f.vars == nil {
		f.vars = make(map[string]Object)
	}
	f.vars[name] = val
}

// This returns the current object of frame idx.
func (s *Scope) This(idx int) Object { return s.frames[idx].this }

// Params returns the positional parameters of frame idx.
func (s *Scope) Params(idx int) []Object { return s.frames[idx].params }

// File returns the template file frame idx belongs to.
func (s *Scope) File(idx int) string { return s.frames[idx].file }
