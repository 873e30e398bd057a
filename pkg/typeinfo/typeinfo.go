// Package typeinfo resolves the physical class of custom primitives by
// loading and inspecting the Go types they are declared with.
//
// A class is a date when its type is time.Time, a boolean when its
// underlying type is bool, an enum when it is a named integer with a
// <Name>Values function, and a container when its pointer implements
// parcel.Container. Anything else is carried through the opaque value
// channel.
package typeinfo

import (
	"fmt"
	"go/types"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/blockberries/parcelgen/pkg/schema"
)

// ParcelPackage is the package declaring the container contract.
const ParcelPackage = "github.com/blockberries/parcelgen/pkg/parcel"

// PackageLoader loads Go packages for analysis.
type PackageLoader struct {
	config *packages.Config
}

// NewPackageLoader creates a loader resolving import paths from dir, the
// directory of the module generated code will live in. An empty dir means
// the current directory.
func NewPackageLoader(dir string) *PackageLoader {
	return &PackageLoader{
		config: &packages.Config{
			Mode: packages.NeedName |
				packages.NeedTypes |
				packages.NeedImports |
				packages.NeedDeps,
			Dir: dir,
		},
	}
}

// Load loads packages matching the given patterns.
func (l *PackageLoader) Load(patterns []string) ([]*packages.Package, error) {
	pkgs, err := packages.Load(l.config, patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}

	// Check for errors in loaded packages
	var errs []error
	packages.Visit(pkgs, nil, func(pkg *packages.Package) {
		for _, err := range pkg.Errors {
			errs = append(errs, err)
		}
	})

	if len(errs) > 0 {
		return nil, fmt.Errorf("package errors: %v", errs[0])
	}

	return pkgs, nil
}

// Resolver classifies Go types found in a set of loaded packages.
type Resolver struct {
	packages  map[string]*types.Package
	container *types.Interface
}

// NewResolver indexes pkgs and their dependencies. The parcel package must
// be among them.
func NewResolver(pkgs []*packages.Package) (*Resolver, error) {
	r := &Resolver{packages: make(map[string]*types.Package)}
	packages.Visit(pkgs, nil, func(pkg *packages.Package) {
		if pkg.Types != nil {
			r.packages[pkg.PkgPath] = pkg.Types
		}
	})

	parcelPkg, ok := r.packages[ParcelPackage]
	if !ok {
		return nil, fmt.Errorf("package %s not loaded", ParcelPackage)
	}
	obj := parcelPkg.Scope().Lookup("Container")
	if obj == nil {
		return nil, fmt.Errorf("%s has no Container", ParcelPackage)
	}
	iface, ok := obj.Type().Underlying().(*types.Interface)
	if !ok {
		return nil, fmt.Errorf("%s.Container is not an interface", ParcelPackage)
	}
	r.container = iface
	return r, nil
}

// splitGoType splits "geo.Point" into "geo" and "Point".
func splitGoType(goType string) (qualifier, name string) {
	goType = strings.TrimPrefix(goType, "*")
	if i := strings.LastIndex(goType, "."); i >= 0 {
		return goType[:i], goType[i+1:]
	}
	return "", goType
}

// Kind returns the physical class kind of c's Go type.
func (r *Resolver) Kind(c schema.Class) (schema.ClassKind, error) {
	_, name := splitGoType(c.GoType)

	if c.ImportPath == "" {
		obj := types.Universe.Lookup(name)
		if obj == nil {
			return schema.ClassUnresolved, fmt.Errorf("class %s: %s needs an import path", c.Name, c.GoType)
		}
		if isBool(obj.Type()) {
			return schema.ClassBool, nil
		}
		return schema.ClassOther, nil
	}

	pkg, ok := r.packages[c.ImportPath]
	if !ok {
		return schema.ClassUnresolved, fmt.Errorf("class %s: package %s not loaded", c.Name, c.ImportPath)
	}
	obj, ok := pkg.Scope().Lookup(name).(*types.TypeName)
	if !ok {
		return schema.ClassUnresolved, fmt.Errorf("class %s: %s has no type %s", c.Name, c.ImportPath, name)
	}
	t := obj.Type()

	switch {
	case c.ImportPath == "time" && name == "Time":
		return schema.ClassDate, nil
	case isBool(t):
		return schema.ClassBool, nil
	case isEnum(pkg, obj):
		return schema.ClassEnum, nil
	case r.implements(t):
		return schema.ClassContainer, nil
	}
	return schema.ClassOther, nil
}

func isBool(t types.Type) bool {
	b, ok := t.Underlying().(*types.Basic)
	return ok && b.Info()&types.IsBoolean != 0
}

// isEnum reports whether obj is a named integer with a <Name>Values
// function returning its constants.
func isEnum(pkg *types.Package, obj *types.TypeName) bool {
	b, ok := obj.Type().Underlying().(*types.Basic)
	if !ok || b.Info()&types.IsInteger == 0 {
		return false
	}
	fn, ok := pkg.Scope().Lookup(obj.Name() + "Values").(*types.Func)
	if !ok {
		return false
	}
	sig := fn.Type().(*types.Signature)
	if sig.Params().Len() != 0 || sig.Results().Len() != 1 {
		return false
	}
	slice, ok := sig.Results().At(0).Type().(*types.Slice)
	return ok && types.Identical(slice.Elem(), obj.Type())
}

func (r *Resolver) implements(t types.Type) bool {
	// Need to check both *T and T
	if types.Implements(t, r.container) {
		return true
	}
	if _, ok := t.(*types.Pointer); ok {
		return false
	}
	return types.Implements(types.NewPointer(t), r.container)
}

// Resolve fills in the kind of every class declared without one. It
// returns the resolved classes by name, ready for codegen.Options.Classes.
// Packages are only loaded when there is something to resolve.
func Resolve(dir string, classes []*schema.Class) (map[string]schema.Class, error) {
	resolved := make(map[string]schema.Class)
	paths := map[string]bool{ParcelPackage: true}
	var pending []*schema.Class
	for _, c := range classes {
		if c.Kind != schema.ClassUnresolved {
			continue
		}
		pending = append(pending, c)
		if c.ImportPath != "" {
			paths[c.ImportPath] = true
		}
	}
	if len(pending) == 0 {
		return resolved, nil
	}

	patterns := make([]string, 0, len(paths))
	for p := range paths {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)

	pkgs, err := NewPackageLoader(dir).Load(patterns)
	if err != nil {
		return nil, err
	}
	r, err := NewResolver(pkgs)
	if err != nil {
		return nil, err
	}
	for _, c := range pending {
		kind, err := r.Kind(*c)
		if err != nil {
			return nil, schema.ValidationError{Position: c.Position, Message: err.Error(), Severity: schema.SeverityError}
		}
		cls := *c
		cls.Kind = kind
		resolved[c.Name] = cls
	}
	return resolved, nil
}
