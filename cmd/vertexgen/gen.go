package main

import (
	"bytes"
	"errors"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"path/filepath"
	"strings"
)

// record is a struct type found in the package.
type record struct {
	name   string
	fields []string
}

// parsePackage parses the non-test Go files of dir, skipping the
// generator's own output.
func parsePackage(dir, output string) (string, []*ast.File, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.go"))
	if err != nil {
		return "", nil, err
	}
	fset := token.NewFileSet()
	var (
		pkg   string
		files []*ast.File
	)
	for _, p := range paths {
		if strings.HasSuffix(p, "_test.go") || filepath.Base(p) == filepath.Base(output) {
			continue
		}
		f, err := parser.ParseFile(fset, p, nil, parser.SkipObjectResolution)
		if err != nil {
			return "", nil, err
		}
		if pkg == "" {
			pkg = f.Name.Name
		}
		if f.Name.Name == pkg {
			files = append(files, f)
		}
	}
	if len(files) == 0 {
		return "", nil, fmt.Errorf("no Go files in %s", dir)
	}
	return pkg, files, nil
}

// findRecord returns the named struct type declared in files.
func findRecord(files []*ast.File, name string) (record, error) {
	for _, f := range files {
		for _, decl := range f.Decls {
			gen, ok := decl.(*ast.GenDecl)
			if !ok || gen.Tok != token.TYPE {
				continue
			}
			for _, spec := range gen.Specs {
				ts := spec.(*ast.TypeSpec)
				if ts.Name.Name != name {
					continue
				}
				if ts.TypeParams != nil {
					return record{}, fmt.Errorf("type %s is generic", name)
				}
				st, ok := ts.Type.(*ast.StructType)
				if !ok {
					return record{}, fmt.Errorf("type %s is not a struct", name)
				}
				return recordOf(name, st)
			}
		}
	}
	return record{}, fmt.Errorf("type %s not found", name)
}

func recordOf(name string, st *ast.StructType) (record, error) {
	r := record{name: name}
	for _, field := range st.Fields.List {
		if len(field.Names) == 0 {
			return record{}, fmt.Errorf("type %s: embedded fields are not vertex fields", name)
		}
		for _, n := range field.Names {
			if n.Name != "_" {
				r.fields = append(r.fields, n.Name)
			}
		}
	}
	if len(r.fields) == 0 {
		return record{}, fmt.Errorf("type %s has no fields", name)
	}
	return r, nil
}

// checkLayoutName reports an error if the generated import of package
// layout would clash with the target package.
func checkLayoutName(pkg string, files []*ast.File) error {
	if pkg == "layout" {
		return errors.New("cannot generate into a package named layout")
	}
	for _, f := range files {
		for _, decl := range f.Decls {
			switch d := decl.(type) {
			case *ast.FuncDecl:
				if d.Recv == nil && d.Name.Name == "layout" {
					return errors.New("package declares layout, which the generated import would shadow")
				}
			case *ast.GenDecl:
				for _, spec := range d.Specs {
					var names []*ast.Ident
					switch s := spec.(type) {
					case *ast.TypeSpec:
						names = []*ast.Ident{s.Name}
					case *ast.ValueSpec:
						names = s.Names
					}
					for _, n := range names {
						if n.Name == "layout" {
							return errors.New("package declares layout, which the generated import would shadow")
						}
					}
				}
			}
		}
	}
	return nil
}

// generate returns the formatted source of the Fields methods for types.
func generate(dir string, types []string, output string) ([]byte, error) {
	pkg, files, err := parsePackage(dir, output)
	if err != nil {
		return nil, err
	}
	if err := checkLayoutName(pkg, files); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// Code generated by vertexgen; DO NOT EDIT.\n\n")
	fmt.Fprintf(&buf, "package %s\n\n", pkg)
	fmt.Fprintf(&buf, "import \"github.com/gogpu/gpures/layout\"\n")

	seen := make(map[string]bool)
	for _, name := range types {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		r, err := findRecord(files, name)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "\n// Fields lists the vertex fields of %s.\n", r.name)
		fmt.Fprintf(&buf, "func (v *%s) Fields() []layout.Field {\n\treturn []layout.Field{\n", r.name)
		for _, f := range r.fields {
			fmt.Fprintf(&buf, "\t\tlayout.FieldOf(v, &v.%s),\n", f)
		}
		fmt.Fprintf(&buf, "\t}\n}\n")
	}
	if len(seen) == 0 {
		return nil, errors.New("no type names given")
	}
	return format.Source(buf.Bytes())
}
