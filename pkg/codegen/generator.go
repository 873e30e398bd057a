// Package codegen generates parcel codecs from parcelgen schemas.
//
// Every message gets a decode routine and a mirror-symmetric encode
// routine. Each field is classified once into a serialization Strategy;
// the synthesizer then emits the read and write for that strategy in
// declared field order, after delegating to the parent message.
package codegen

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/blockberries/parcelgen/pkg/schema"
)

// Language represents a target code generation language.
type Language string

const (
	LanguageGo Language = "go"
)

// Generator is the interface for code generators.
type Generator interface {
	// Generate produces code from a schema.
	Generate(w io.Writer, schema *schema.Schema, options Options) error

	// Language returns the target language.
	Language() Language

	// FileExtension returns the file extension for generated files.
	FileExtension() string
}

// Options configures code generation.
type Options struct {
	// Package overrides the package name from the schema.
	Package string

	// Source names the schema file in the generated header.
	Source string

	// Fingerprint is stamped into the generated header when set.
	Fingerprint string

	// GenerateComments includes doc text from the schema.
	GenerateComments bool

	// TypePrefix adds a prefix to all type names.
	TypePrefix string

	// TypeSuffix adds a suffix to all type names.
	TypeSuffix string

	// LoaderExpr is the expression generated code passes to ReadContainer
	// and ReadValue to resolve names. Empty means parcelLoader, a package
	// variable initialized to parcel.DefaultRegistry.
	LoaderExpr string

	// SafeFieldName returns the Go identifier for a field. Nil means
	// DefaultSafeFieldName.
	SafeFieldName func(f *schema.Field) string

	// IsEnumDeclaration reports whether a type is a declared enumeration
	// without a physical class. Nil means the type is a *schema.Enum.
	IsEnumDeclaration func(t schema.Type) bool

	// Classes maps custom primitive names to physical classes. Entries
	// override the classes declared in the schema and the builtin ones.
	Classes map[string]schema.Class
}

// DefaultOptions returns the default code generation options.
func DefaultOptions() Options {
	return Options{
		GenerateComments: true,
	}
}

func (o Options) loader() string {
	if o.LoaderExpr != "" {
		return o.LoaderExpr
	}
	return "parcelLoader"
}

func (o Options) fieldName(f *schema.Field) string {
	if o.SafeFieldName != nil {
		return o.SafeFieldName(f)
	}
	return DefaultSafeFieldName(f)
}

func (o Options) isEnumDeclaration(t schema.Type) bool {
	if o.IsEnumDeclaration != nil {
		return o.IsEnumDeclaration(t)
	}
	_, ok := t.(*schema.Enum)
	return ok
}

// typeName returns the Go name of a schema-declared type.
func (o Options) typeName(name string) string {
	return o.TypePrefix + ToPascalCase(name) + o.TypeSuffix
}

// reservedFieldNames collide with the methods every generated message has.
var reservedFieldNames = map[string]bool{
	"ParcelName":     true,
	"ReadFromParcel": true,
	"WriteToParcel":  true,
}

// DefaultSafeFieldName returns the exported Go name of a field, suffixed
// with "Field" when it would collide with a generated method.
func DefaultSafeFieldName(f *schema.Field) string {
	name := ToPascalCase(f.Name)
	if name == "" || !isLetter(rune(name[0])) {
		name = "F" + name
	}
	if reservedFieldNames[name] {
		name += "Field"
	}
	return name
}

func isLetter(r rune) bool {
	return isUpper(r) || (r >= 'a' && r <= 'z')
}

// registry holds registered generators by language.
var registry = make(map[Language]Generator)

// Register registers a generator for a language.
func Register(gen Generator) {
	registry[gen.Language()] = gen
}

// Get returns the generator for a language.
func Get(lang Language) (Generator, bool) {
	gen, ok := registry[lang]
	return gen, ok
}

// Languages returns all registered languages, sorted.
func Languages() []Language {
	langs := make([]Language, 0, len(registry))
	for lang := range registry {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
	return langs
}

// Helper functions for code generation

// titleCase upper-cases the first letter of a word. A Caser keeps state,
// so each call gets its own.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// ToPascalCase converts a string to PascalCase.
func ToPascalCase(s string) string {
	parts := splitName(s)
	for i, p := range parts {
		parts[i] = titleCase(strings.ToLower(p))
	}
	return strings.Join(parts, "")
}

// ToCamelCase converts a string to camelCase.
func ToCamelCase(s string) string {
	pascal := ToPascalCase(s)
	if len(pascal) == 0 {
		return ""
	}
	return strings.ToLower(pascal[:1]) + pascal[1:]
}

// splitName splits a name into parts based on underscores and case transitions.
func splitName(s string) []string {
	if s == "" {
		return nil
	}

	var parts []string
	var current strings.Builder

	for i, r := range s {
		if r == '_' || r == '-' || r == '.' {
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
			continue
		}

		// Check for case transition
		if i > 0 && isUpper(r) && !isUpper(rune(s[i-1])) {
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		}

		current.WriteRune(r)
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}

func isUpper(r rune) bool {
	return r >= 'A' && r <= 'Z'
}

// Comment wraps text as a comment with the given prefix.
func Comment(text, prefix string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(prefix+" "+line, " ")
	}
	return strings.Join(lines, "\n")
}

// GoComment wraps text as a Go doc comment.
func GoComment(text string) string {
	return Comment(text, "//")
}

// GeneratorError represents a code generation error.
type GeneratorError struct {
	Message  string
	Position schema.Position
	Err      error
}

func (e *GeneratorError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Position.Filename != "" {
		return fmt.Sprintf("%s: %s", e.Position, msg)
	}
	return msg
}

func (e *GeneratorError) Unwrap() error {
	return e.Err
}
