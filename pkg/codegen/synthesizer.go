package codegen

import (
	"sync"

	"github.com/blockberries/parcelgen/pkg/schema"
)

// Synthesizer emits the decode and encode routines of messages. Both walk
// the same plan, so reads and writes come out in the same order: parent
// delegation first, then own fields as declared.
//
// Plans are computed once per message and cached. A Synthesizer is safe
// for concurrent use as long as the schema is not modified.
type Synthesizer struct {
	classifier *Classifier
	opts       Options

	mu    sync.Mutex
	plans map[*schema.Message]*Plan
}

// NewSynthesizer creates a synthesizer for the messages of s.
func NewSynthesizer(s *schema.Schema, opts Options) *Synthesizer {
	return &Synthesizer{
		classifier: NewClassifier(s, opts),
		opts:       opts,
		plans:      make(map[*schema.Message]*Plan),
	}
}

// Plan returns the cached plan of m.
func (s *Synthesizer) Plan(m *schema.Message) *Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.plans[m]; ok {
		return p
	}
	p := s.classifier.PlanMessage(m)
	s.plans[m] = p
	return p
}

func markField(e Emitter, name string) {
	if marker, ok := e.(FieldMarker); ok {
		marker.MarkField(name)
	}
}

func (s *Synthesizer) emitter(fp FieldPlan) fieldEmitter {
	return fieldEmitter{
		d:      fp.Decision,
		loader: s.opts.loader(),
		local:  ToCamelCase(fp.GoName),
	}
}

// Decode emits the body of m's ReadFromParcel. The parent reads its own
// fields first; a failure there returns before any own field is read.
func (s *Synthesizer) Decode(m *schema.Message, e Emitter) {
	if m.Parent != nil {
		markField(e, "")
		e.BeginBlock("if err := %s.%s.ReadFromParcel(%s); err != nil", recv, s.opts.typeName(m.Parent.Name), sourceVar)
		e.Statement("return err")
		e.EndBlock()
	}
	for _, fp := range s.Plan(m).Fields {
		markField(e, fp.Field.Name)
		s.emitter(fp).read(e, recv+"."+fp.GoName)
	}
}

// Encode emits the body of m's WriteToParcel, mirroring Decode.
func (s *Synthesizer) Encode(m *schema.Message, e Emitter) {
	if m.Parent != nil {
		markField(e, "")
		e.Statement("%s.%s.WriteToParcel(%s, %s)", recv, s.opts.typeName(m.Parent.Name), destVar, flagsVar)
	}
	for _, fp := range s.Plan(m).Fields {
		markField(e, fp.Field.Name)
		s.emitter(fp).write(e, recv+"."+fp.GoName)
	}
}
