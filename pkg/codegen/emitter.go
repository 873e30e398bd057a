package codegen

import (
	"bytes"
	"fmt"
	"strings"
)

// Emitter receives the instructions that make up a decode or encode
// routine. It owns the surface syntax: the synthesizer decides what to
// emit and in which order, never how it is spelled.
type Emitter interface {
	// Declare introduces a local variable initialized to expr.
	Declare(name, expr string)

	// Statement emits a single statement.
	Statement(format string, args ...any)

	// BeginBlock opens a control-flow block with the given header, such
	// as an if or a for clause.
	BeginBlock(format string, args ...any)

	// EndBlock closes the innermost open block.
	EndBlock()
}

// FieldMarker is implemented by emitters that tag instructions with the
// field they belong to. The synthesizer marks the parent delegation with
// an empty name.
type FieldMarker interface {
	MarkField(name string)
}

// Op is the kind of an emitted instruction.
type Op int

const (
	OpDeclare Op = iota
	OpStatement
	OpBeginBlock
	OpEndBlock
)

func (op Op) String() string {
	switch op {
	case OpDeclare:
		return "declare"
	case OpStatement:
		return "statement"
	case OpBeginBlock:
		return "begin"
	case OpEndBlock:
		return "end"
	default:
		return "unknown"
	}
}

// Instruction is one recorded emission.
type Instruction struct {
	Op Op
	// Field is the schema field the instruction belongs to, or empty for
	// parent delegation.
	Field string
	// Name is the declared variable for OpDeclare.
	Name string
	// Text is the statement, block header or initializer.
	Text string
}

// Program records instructions so they can be inspected or replayed into
// another Emitter.
type Program struct {
	Instructions []Instruction
	field        string
}

// MarkField tags the instructions that follow with name.
func (p *Program) MarkField(name string) {
	p.field = name
}

func (p *Program) add(op Op, name, text string) {
	p.Instructions = append(p.Instructions, Instruction{Op: op, Field: p.field, Name: name, Text: text})
}

func (p *Program) Declare(name, expr string) {
	p.add(OpDeclare, name, expr)
}

func (p *Program) Statement(format string, args ...any) {
	p.add(OpStatement, "", fmt.Sprintf(format, args...))
}

func (p *Program) BeginBlock(format string, args ...any) {
	p.add(OpBeginBlock, "", fmt.Sprintf(format, args...))
}

func (p *Program) EndBlock() {
	p.add(OpEndBlock, "", "")
}

// Fields returns the field tags in the order they first appear.
func (p *Program) Fields() []string {
	var out []string
	seen := make(map[string]bool)
	for _, in := range p.Instructions {
		if !seen[in.Field] {
			seen[in.Field] = true
			out = append(out, in.Field)
		}
	}
	return out
}

// Replay emits the recorded instructions into e.
func (p *Program) Replay(e Emitter) {
	marker, _ := e.(FieldMarker)
	field := "\x00"
	for _, in := range p.Instructions {
		if marker != nil && in.Field != field {
			marker.MarkField(in.Field)
			field = in.Field
		}
		switch in.Op {
		case OpDeclare:
			e.Declare(in.Name, in.Text)
		case OpStatement:
			e.Statement("%s", in.Text)
		case OpBeginBlock:
			e.BeginBlock("%s", in.Text)
		case OpEndBlock:
			e.EndBlock()
		}
	}
}

// GoWriter renders instructions as Go statements, one per line, indented
// with tabs.
type GoWriter struct {
	buf   bytes.Buffer
	depth int
}

// NewGoWriter creates a writer whose first statements sit at depth tabs.
func NewGoWriter(depth int) *GoWriter {
	return &GoWriter{depth: depth}
}

func (w *GoWriter) line(s string) {
	w.buf.WriteString(strings.Repeat("\t", w.depth))
	w.buf.WriteString(s)
	w.buf.WriteByte('\n')
}

func (w *GoWriter) Declare(name, expr string) {
	w.line(name + " := " + expr)
}

func (w *GoWriter) Statement(format string, args ...any) {
	w.line(fmt.Sprintf(format, args...))
}

func (w *GoWriter) BeginBlock(format string, args ...any) {
	w.line(fmt.Sprintf(format, args...) + " {")
	w.depth++
}

func (w *GoWriter) EndBlock() {
	if w.depth > 0 {
		w.depth--
	}
	w.line("}")
}

// String returns the rendered statements.
func (w *GoWriter) String() string {
	return w.buf.String()
}
