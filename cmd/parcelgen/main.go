// Command parcelgen generates parcel codecs from schema documents.
//
// Usage:
//
//	parcelgen generate [options] <schema-file>...
//	parcelgen validate <schema-file>...
//	parcelgen compat <old-schema> <new-schema>
//	parcelgen check --message <name> <schema-file> <instance>...
//	parcelgen format [-w] <schema-file>...
//	parcelgen version
//
// Generate Command:
//
//	Generate Go code from schema files.
//
//	Options:
//	  -o, --output string   Output file (default: <schema>.parcel.go next to the schema)
//	  --package string      Override package name
//	  --prefix string       Add prefix to all type names
//	  --suffix string       Add suffix to all type names
//	  --loader string       Expression naming the registry generated code uses
//	  --dir string          Module directory used to resolve class types
//	  --comments            Copy schema docs into the output (default true)
//	  --fingerprint         Stamp the schema fingerprint into the header (default true)
//
// Validate Command:
//
//	Validate schema files without generating code. Exits 2 when only
//	warnings were reported.
//
// Compat Command:
//
//	Report changes between two versions of a schema that break parcels
//	written by the old version.
//
// Check Command:
//
//	Check JSON or JSONC instance documents against a schema message.
//
// Format Command:
//
//	Print schema files in canonical form, or rewrite them with -w.
package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/blockberries/parcelgen/pkg/codegen"
	"github.com/blockberries/parcelgen/pkg/parcel"
	"github.com/blockberries/parcelgen/pkg/puller"
	"github.com/blockberries/parcelgen/pkg/schema"
	"github.com/blockberries/parcelgen/pkg/typeinfo"
)

// exitError carries a process exit code out of run.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) ExitCode() int { return e.code }

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			if exit.err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", exit.err)
			}
			os.Exit(exit.code)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// command is the state shared by every subcommand.
type command struct {
	stdout  io.Writer
	stderr  io.Writer
	verbose bool
	logger  *slog.Logger
}

func (c *command) flagSet(name, usage string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.BoolVarP(&c.verbose, "verbose", "v", false, "log debug output")
	fs.Usage = func() {
		fmt.Fprintf(c.stderr, "%s\n\nOptions:\n", usage)
		fs.PrintDefaults()
	}
	return fs
}

// parse parses args and sets up logging. It returns pflag.ErrHelp when
// help was requested.
func (c *command) parse(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}
	c.logger = slog.New(slog.NewTextHandler(c.stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		printUsage(stderr)
		return &exitError{code: 1}
	}

	c := &command{stdout: stdout, stderr: stderr}
	var err error
	switch args[0] {
	case "generate", "gen", "g":
		err = c.generate(args[1:])
	case "validate", "val":
		err = c.validate(args[1:])
	case "compat":
		err = c.compat(args[1:])
	case "check":
		err = c.check(args[1:])
	case "format", "fmt", "f":
		err = c.format(args[1:])
	case "version":
		fmt.Fprintf(stdout, "parcelgen version %s\n", parcel.VersionInfo())
	case "help", "-h", "--help":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return &exitError{code: 1}
	}
	if err == pflag.ErrHelp {
		return nil
	}
	return err
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `Parcel Codec Generator

Usage:
  parcelgen <command> [options] <files>...

Commands:
  generate    Generate Go code from schema files
  validate    Validate schema files
  compat      Check two schema versions for wire compatibility
  check       Check JSON instance documents against a schema message
  format      Format schema files
  version     Print version information
  help        Print this help message

Run 'parcelgen <command> -h' for command-specific help.`)
}

// load reads and builds a schema, logging any diagnostics.
func (c *command) load(path string) (*schema.Document, *schema.Schema, error) {
	doc, err := schema.LoadDocument(path)
	if err != nil {
		return nil, nil, err
	}
	s, diags, err := schema.Build(doc)
	for _, d := range diags {
		if d.Severity == schema.SeverityWarning {
			c.logger.Warn(d.Message, "position", d.Position.String())
		} else {
			c.logger.Error(d.Message, "position", d.Position.String())
		}
	}
	if err != nil {
		return nil, nil, err
	}
	return doc, s, nil
}

func outputPath(input string, gen codegen.Generator) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + ".parcel" + gen.FileExtension()
}

func (c *command) generate(args []string) error {
	fs := c.flagSet("generate", "Usage: parcelgen generate [options] <schema-file>...\n\nGenerate Go code from schema files.")
	output := fs.StringP("output", "o", "", "output file (default: <schema>.parcel.go next to the schema)")
	pkg := fs.String("package", "", "override package name")
	prefix := fs.String("prefix", "", "add prefix to all type names")
	suffix := fs.String("suffix", "", "add suffix to all type names")
	loader := fs.String("loader", "", "expression naming the registry generated code uses")
	dir := fs.String("dir", "", "module directory used to resolve class types")
	comments := fs.Bool("comments", true, "copy schema docs into the output")
	fingerprint := fs.Bool("fingerprint", true, "stamp the schema fingerprint into the header")
	if err := c.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return &exitError{code: 1, err: errors.New("no input files")}
	}
	if *output != "" && fs.NArg() > 1 {
		return &exitError{code: 1, err: errors.New("--output needs exactly one input file")}
	}

	gen, ok := codegen.Get(codegen.LanguageGo)
	if !ok {
		return errors.New("go generator not registered")
	}

	failed := false
	for _, input := range fs.Args() {
		log := c.logger.With("schema", input)
		doc, s, err := c.load(input)
		if err != nil {
			log.Error("failed to load schema", "error", err)
			failed = true
			continue
		}

		opts := codegen.DefaultOptions()
		opts.Package = *pkg
		opts.TypePrefix = *prefix
		opts.TypeSuffix = *suffix
		opts.LoaderExpr = *loader
		opts.GenerateComments = *comments
		opts.Source = filepath.Base(input)

		opts.Classes, err = typeinfo.Resolve(*dir, s.Classes)
		if err != nil {
			log.Error("failed to resolve classes", "error", err)
			failed = true
			continue
		}
		for name, cls := range opts.Classes {
			log.Debug("resolved class", "class", name, "go_type", cls.GoType, "kind", string(cls.Kind))
		}

		if *fingerprint {
			if opts.Fingerprint, err = schema.Fingerprint(doc); err != nil {
				log.Error("failed to fingerprint schema", "error", err)
				failed = true
				continue
			}
		}

		var buf bytes.Buffer
		if err := gen.Generate(&buf, s, opts); err != nil {
			log.Error("failed to generate code", "error", err)
			failed = true
			continue
		}

		out := *output
		if out == "" {
			out = outputPath(input, gen)
		}
		if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
			log.Error("failed to write output", "error", err)
			failed = true
			continue
		}
		log.Info("generated", "output", out, "messages", len(s.Messages), "enums", len(s.Enums))
	}

	if failed {
		return &exitError{code: 1}
	}
	return nil
}

func (c *command) validate(args []string) error {
	fs := c.flagSet("validate", "Usage: parcelgen validate <schema-file>...\n\nValidate schema files without generating code.")
	if err := c.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return &exitError{code: 1, err: errors.New("no input files")}
	}

	hasErrors, hasWarnings := false, false
	for _, input := range fs.Args() {
		doc, err := schema.LoadDocument(input)
		if err != nil {
			fmt.Fprintln(c.stderr, err)
			hasErrors = true
			continue
		}
		diags := schema.Validate(doc)
		for _, d := range diags {
			fmt.Fprintln(c.stderr, d)
			if d.Severity == schema.SeverityWarning {
				hasWarnings = true
			} else {
				hasErrors = true
			}
		}
		if len(diags) == 0 {
			fmt.Fprintf(c.stdout, "Valid: %s\n", input)
		}
	}

	switch {
	case hasErrors:
		return &exitError{code: 1}
	case hasWarnings:
		return &exitError{code: 2}
	}
	return nil
}

func (c *command) compat(args []string) error {
	fs := c.flagSet("compat", "Usage: parcelgen compat <old-schema> <new-schema>\n\nReport changes that break parcels written with the old schema.")
	if err := c.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return &exitError{code: 1, err: errors.New("compat needs an old and a new schema")}
	}

	_, oldSchema, err := c.load(fs.Arg(0))
	if err != nil {
		return err
	}
	_, newSchema, err := c.load(fs.Arg(1))
	if err != nil {
		return err
	}

	report := schema.CheckCompatibility(oldSchema, newSchema)
	for _, w := range report.Warnings {
		c.logger.Warn(w)
	}
	for _, b := range report.Breaking {
		fmt.Fprintln(c.stdout, b.Error())
	}
	if !report.IsCompatible() {
		return &exitError{code: 1, err: errors.Errorf("%d breaking changes", len(report.Breaking))}
	}
	fmt.Fprintln(c.stdout, "Compatible")
	return nil
}

func (c *command) check(args []string) error {
	fs := c.flagSet("check", "Usage: parcelgen check --message <name> <schema-file> <instance>...\n\nCheck JSON or JSONC instance documents against a schema message.")
	message := fs.StringP("message", "m", "", "message the instances hold")
	dir := fs.String("dir", "", "module directory used to resolve class types")
	if err := c.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() < 2 || *message == "" {
		fs.Usage()
		return &exitError{code: 1, err: errors.New("check needs --message, a schema and at least one instance")}
	}

	_, s, err := c.load(fs.Arg(0))
	if err != nil {
		return err
	}
	m := s.Message(*message)
	if m == nil {
		return &exitError{code: 1, err: errors.Errorf("schema %s has no message %s", fs.Arg(0), *message)}
	}
	classes, err := typeinfo.Resolve(*dir, s.Classes)
	if err != nil {
		return err
	}

	checker := puller.NewChecker(s, classes)
	failed := false
	for _, input := range fs.Args()[1:] {
		data, err := os.ReadFile(input)
		if err != nil {
			return errors.Wrap(err, "failed to read instance")
		}
		if err := checker.Check(m, data); err != nil {
			fmt.Fprintf(c.stdout, "%s: %v\n", input, err)
			failed = true
			continue
		}
		c.logger.Debug("instance valid", "instance", input, "message", m.CanonicalName())
		fmt.Fprintf(c.stdout, "Valid: %s\n", input)
	}
	if failed {
		return &exitError{code: 1}
	}
	return nil
}

func (c *command) format(args []string) error {
	fs := c.flagSet("format", "Usage: parcelgen format [options] <schema-file>...\n\nFormat schema files.")
	write := fs.BoolP("write", "w", false, "write result to (source) file instead of stdout")
	if err := c.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return &exitError{code: 1, err: errors.New("no input files")}
	}

	failed := false
	for _, input := range fs.Args() {
		doc, err := schema.LoadDocument(input)
		if err != nil {
			c.logger.Error("failed to load schema", "schema", input, "error", err)
			failed = true
			continue
		}
		formatted, err := schema.Format(doc)
		if err != nil {
			c.logger.Error("failed to format schema", "schema", input, "error", err)
			failed = true
			continue
		}
		if !*write {
			c.stdout.Write(formatted)
			continue
		}
		if err := os.WriteFile(input, formatted, 0o644); err != nil {
			c.logger.Error("failed to write schema", "schema", input, "error", err)
			failed = true
			continue
		}
		c.logger.Info("formatted", "schema", input)
	}
	if failed {
		return &exitError{code: 1}
	}
	return nil
}
