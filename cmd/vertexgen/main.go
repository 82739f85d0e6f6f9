// Command vertexgen writes Fields methods for vertex record structs, so
// that they can be passed to layout.Attribs and layout.BufferLayout.
//
// Put a directive next to the structs:
//
//	//go:generate go run github.com/gogpu/gpures/cmd/vertexgen -type Vertex,Instance
//
// vertexgen reads the Go files of the package directory and writes one
// method per type, listing every named field in declaration order. Blank
// fields are skipped but still count as padding. Field types outside
// layout.VertexField make the generated file fail to compile. Packages
// named layout, or declaring layout at package scope, are rejected since
// the generated file imports the layout package.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"
)

func main() {
	var (
		types  = flag.String("type", "", "comma-separated list of struct type names; required")
		output = flag.String("output", "vertex_fields.go", "output file name")
		dir    = flag.String("dir", ".", "package directory")
	)
	flag.Parse()
	if *types == "" {
		flag.Usage()
		os.Exit(2)
	}

	src, err := generate(*dir, strings.Split(*types, ","), *output)
	if err != nil {
		log.Fatalf("vertexgen: %v", err)
	}
	path := *output
	if !filepath.IsAbs(path) {
		path = filepath.Join(*dir, path)
	}
	if err := os.WriteFile(path, src, 0o644); err != nil {
		log.Fatalf("vertexgen: %v", err)
	}
}
