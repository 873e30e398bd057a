package codegen

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"text/template"

	"golang.org/x/tools/imports"

	"github.com/blockberries/parcelgen/pkg/schema"
)

// parcelImport is the runtime package generated code targets.
const parcelImport = "github.com/blockberries/parcelgen/pkg/parcel"

// GoGenerator generates Go code from schemas.
type GoGenerator struct{}

// NewGoGenerator creates a new Go code generator.
func NewGoGenerator() *GoGenerator {
	return &GoGenerator{}
}

// Language returns the target language.
func (g *GoGenerator) Language() Language {
	return LanguageGo
}

// FileExtension returns the file extension for generated files.
func (g *GoGenerator) FileExtension() string {
	return ".go"
}

// Generate produces one gofmt-formatted Go file for the schema: enum
// types, message structs and their parcel codecs.
func (g *GoGenerator) Generate(w io.Writer, s *schema.Schema, opts Options) error {
	ctx := newGoContext(s, opts)
	if err := ctx.checkNames(); err != nil {
		return err
	}
	file := ctx.build()

	tmpl, err := template.New("go").Parse(goTemplate)
	if err != nil {
		return &GeneratorError{Message: "failed to parse template", Err: err}
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, file); err != nil {
		return &GeneratorError{Message: "failed to render template", Err: err}
	}

	out, err := imports.Process(file.Package+".go", buf.Bytes(), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return &GeneratorError{Message: "generated code does not parse", Err: err}
	}
	_, err = w.Write(out)
	return err
}

// goContext holds context for Go code generation.
type goContext struct {
	Schema  *schema.Schema
	Options Options
	synth   *Synthesizer
}

func newGoContext(s *schema.Schema, opts Options) *goContext {
	return &goContext{
		Schema:  s,
		Options: opts,
		synth:   NewSynthesizer(s, opts),
	}
}

type goFile struct {
	Source        string
	Fingerprint   string
	Package       string
	Imports       []string
	DeclareLoader bool
	Loader        string
	// Values are the opaque Go types registered for ReadValue.
	Values        []string
	Enums         []goEnum
	Messages      []goMessage
}

type goEnum struct {
	Doc       string
	Name      string
	Constants []goConstant
}

type goConstant struct {
	Name  string
	Label string
}

type goMessage struct {
	Doc       string
	Name      string
	Canonical string
	Parent    string
	Fields    []goField
	Decode    string
	Encode    string
}

type goField struct {
	Doc  string
	Name string
	Type string
}

func (c *goContext) goPackage() string {
	if c.Options.Package != "" {
		return c.Options.Package
	}
	if c.Schema.Package != "" {
		return c.Schema.Package
	}
	return "generated"
}

func (c *goContext) comment(doc string) string {
	if !c.Options.GenerateComments || doc == "" {
		return ""
	}
	return GoComment(doc) + "\n"
}

// goName is a declared Go identifier and where it came from.
type goName struct {
	what string
	pos  schema.Position
}

// nameSet records Go identifiers and rejects a second declaration.
type nameSet map[string]goName

func (ns nameSet) declare(name, what string, pos schema.Position) error {
	if prev, ok := ns[name]; ok {
		msg := fmt.Sprintf("%s: Go name %s is already used by %s", what, name, prev.what)
		if prev.pos.Filename != "" {
			msg += fmt.Sprintf(" (%s)", prev.pos)
		}
		return &GeneratorError{Message: msg, Position: pos}
	}
	ns[name] = goName{what: what, pos: pos}
	return nil
}

// checkNames rejects schemas whose names collide once mapped to Go
// identifiers. Package-level names cover enum types, constants and value
// lists, message types and their constructors. Within a message, the
// embedded parent types and every own and inherited field share one
// namespace.
func (c *goContext) checkNames() error {
	top := make(nameSet)
	if len(c.Schema.Messages) > 0 && c.Options.LoaderExpr == "" {
		top["parcelLoader"] = goName{what: "the package loader"}
	}

	for _, e := range c.Schema.Enums {
		name := c.Options.typeName(e.Name)
		if err := top.declare(name, "enum "+e.Name, e.Position); err != nil {
			return err
		}
		if err := top.declare(name+"Values", "enum "+e.Name+" value list", e.Position); err != nil {
			return err
		}
		for _, k := range e.Constants {
			if err := top.declare(name+ToPascalCase(k), fmt.Sprintf("enum constant %s.%s", e.Name, k), e.Position); err != nil {
				return err
			}
		}
	}

	for _, m := range c.Schema.Messages {
		name := c.Options.typeName(m.Name)
		if err := top.declare(name, "message "+m.Name, m.Position); err != nil {
			return err
		}
		if err := top.declare("New"+name+"FromParcel", "constructor of message "+m.Name, m.Position); err != nil {
			return err
		}
		if err := c.checkFields(m); err != nil {
			return err
		}
	}
	return nil
}

func (c *goContext) checkFields(m *schema.Message) error {
	fields := make(nameSet)
	chain := []*schema.Message{m}
	for _, a := range m.Ancestors() {
		fields[c.Options.typeName(a.Name)] = goName{what: "embedded parent " + a.Name, pos: a.Position}
		chain = append([]*schema.Message{a}, chain...)
	}
	for _, owner := range chain {
		for _, f := range owner.Fields {
			what := fmt.Sprintf("field %s.%s", owner.Name, f.Name)
			if err := fields.declare(c.Options.fieldName(f), what, f.Position); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *goContext) build() *goFile {
	file := &goFile{
		Source:      c.Options.Source,
		Fingerprint: c.Options.Fingerprint,
		Package:     c.goPackage(),
		Loader:      c.Options.loader(),
	}

	for _, e := range c.Schema.Enums {
		name := c.Options.typeName(e.Name)
		ge := goEnum{Doc: c.comment(e.Doc), Name: name}
		for _, k := range e.Constants {
			ge.Constants = append(ge.Constants, goConstant{Name: name + ToPascalCase(k), Label: k})
		}
		file.Enums = append(file.Enums, ge)
	}

	importSet := make(map[string]bool)
	valueSet := make(map[string]bool)
	for _, m := range c.Schema.Messages {
		gm := goMessage{
			Doc:       c.comment(m.Doc),
			Name:      c.Options.typeName(m.Name),
			Canonical: m.CanonicalName(),
		}
		if m.Parent != nil {
			gm.Parent = c.Options.typeName(m.Parent.Name)
		}
		for _, fp := range c.synth.Plan(m).Fields {
			gm.Fields = append(gm.Fields, goField{
				Doc:  c.comment(fp.Field.Doc),
				Name: fp.GoName,
				Type: fp.Decision.FieldType(),
			})
			if path := fp.Decision.ImportPath; path != "" {
				importSet[path] = true
			}
			if d := fp.Decision; d.Strategy == OpaqueFallback && d.GoType != "any" {
				valueSet[d.GoType] = true
			}
		}

		decode := NewGoWriter(1)
		c.synth.Decode(m, decode)
		gm.Decode = decode.String()
		encode := NewGoWriter(1)
		c.synth.Encode(m, encode)
		gm.Encode = encode.String()

		file.Messages = append(file.Messages, gm)
	}

	if len(file.Messages) > 0 {
		importSet[parcelImport] = true
		file.DeclareLoader = c.Options.LoaderExpr == ""
	}
	for path := range importSet {
		file.Imports = append(file.Imports, path)
	}
	sort.Strings(file.Imports)
	for t := range valueSet {
		file.Values = append(file.Values, t)
	}
	sort.Strings(file.Values)
	return file
}

func init() {
	Register(NewGoGenerator())
}

const goTemplate = `// Code generated by parcelgen. DO NOT EDIT.
{{- if .Source}}
// Source: {{.Source}}
{{- end}}
{{- if .Fingerprint}}
// Schema fingerprint: {{.Fingerprint}}
{{- end}}

package {{.Package}}
{{if .Imports}}
import (
{{- range .Imports}}
	"{{.}}"
{{- end}}
)
{{end}}
{{- if .DeclareLoader}}
// parcelLoader resolves the container and value names read by this package.
var parcelLoader = parcel.DefaultRegistry
{{end}}
{{- if .Values}}

func init() {
{{- range .Values}}
	parcel.MustRegisterValue[{{.}}]({{$.Loader}})
{{- end}}
}
{{end}}
{{- range $enum := .Enums}}
{{$enum.Doc}}type {{$enum.Name}} int32

const (
{{- range $i, $k := $enum.Constants}}
	{{$k.Name}}{{if eq $i 0}} {{$enum.Name}} = iota{{end}}
{{- end}}
)

// {{$enum.Name}}Values returns the constants of {{$enum.Name}} in ordinal order.
func {{$enum.Name}}Values() []{{$enum.Name}} {
	return []{{$enum.Name}}{
{{- range $enum.Constants}}
		{{.Name}},
{{- end}}
	}
}

// String returns the declared name of the constant.
func (e {{$enum.Name}}) String() string {
	switch e {
{{- range $enum.Constants}}
	case {{.Name}}:
		return "{{.Label}}"
{{- end}}
	default:
		return "UNKNOWN"
	}
}

// IsValid returns true if the value is a declared constant.
func (e {{$enum.Name}}) IsValid() bool {
	return e >= 0 && int(e) < {{len $enum.Constants}}
}
{{end}}
{{- range $msg := .Messages}}
{{$msg.Doc}}type {{$msg.Name}} struct {
{{- if $msg.Parent}}
	{{$msg.Parent}}
{{- end}}
{{- range $msg.Fields}}
{{.Doc}}	{{.Name}} {{.Type}}
{{- end}}
}

// ParcelName returns the name {{$msg.Name}} is registered under.
func (*{{$msg.Name}}) ParcelName() string {
	return "{{$msg.Canonical}}"
}

// New{{$msg.Name}}FromParcel reads a {{$msg.Name}} written by WriteToParcel.
func New{{$msg.Name}}FromParcel(source *parcel.Parcel) (*{{$msg.Name}}, error) {
	m := &{{$msg.Name}}{}
	if err := m.ReadFromParcel(source); err != nil {
		return nil, err
	}
	return m, nil
}

// ReadFromParcel reads the fields of m from source in declared order.
func (m *{{$msg.Name}}) ReadFromParcel(source *parcel.Parcel) error {
{{$msg.Decode}}	return source.Err()
}

// WriteToParcel writes the fields of m to dest in declared order.
func (m *{{$msg.Name}}) WriteToParcel(dest *parcel.Parcel, flags int) {
{{$msg.Encode}}}

func init() {
	{{$.Loader}}.MustRegisterContainer("{{$msg.Canonical}}", func() parcel.Container { return &{{$msg.Name}}{} })
}
{{end}}`
