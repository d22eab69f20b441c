package generator

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrMissingPackage is returned for a schema whose database element has
// neither a package nor a namespace attribute.
var ErrMissingPackage = errors.New("define a package or a namespace attribute")

// Schema is one schema file and the module it belongs to.
type Schema struct {
	// Module names the owner; the prepared copy is named <Module>-<file>
	Module string
	// Dir is the module directory, Namespace its namespace
	Dir       string
	Namespace string
	Path      string
}

// LocateSchemas returns the *schema.xml files below root. Each directory
// holding a schema is a module whose namespace is its path relative to root.
func LocateSchemas(root string) ([]Schema, error) {
	var schemas []Schema
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), "schema.xml") {
			return nil
		}
		dir := filepath.Dir(path)
		rel, err := filepath.Rel(root, dir)
		if err != nil {
			return err
		}
		s := Schema{Module: filepath.Base(dir), Dir: dir, Path: path}
		if rel != "." {
			s.Namespace = strings.ReplaceAll(filepath.ToSlash(rel), "/", `\`)
			s.Module = strings.ReplaceAll(filepath.ToSlash(rel), "/", "")
		}
		schemas = append(schemas, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to locate schemas in %s: %w", root, err)
	}
	return schemas, nil
}

// PackagePrefix returns the dotted package prefix of a module: its directory
// without the trailing namespace segments, relative to baseDir. The prefix
// ends with a dot unless empty.
func PackagePrefix(dir, namespace, baseDir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	parts := strings.Split(filepath.ToSlash(abs), "/")
	if n := len(namespaceParts(namespace)); n > 0 && n <= len(parts) {
		parts = parts[:len(parts)-n]
	}
	prefix := strings.Join(parts, "/")

	if baseDir != "" {
		if base, err := filepath.Abs(baseDir); err == nil {
			prefix = strings.TrimPrefix(prefix, filepath.ToSlash(base))
		}
	}
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return strings.ReplaceAll(prefix, "/", ".") + "."
}

func namespaceParts(namespace string) []string {
	return strings.FieldsFunc(namespace, func(r rune) bool { return r == '\\' || r == '/' })
}

// RewriteSchema copies a schema document from r to w, setting an absolute
// package on the database element and on every table:
//   - an explicit package attribute is kept as is;
//   - a namespace is converted to a dotted package behind prefix;
//   - a table with neither inherits the database package.
func RewriteSchema(r io.Reader, w io.Writer, prefix string) error {
	dec := xml.NewDecoder(r)
	enc := xml.NewEncoder(w)

	var (
		depth       int
		dbPackage   string
		sawDatabase bool
	)
	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read schema: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case depth == 0 && t.Name.Local == "database":
				sawDatabase = true
				pkg, ok := packageOf(t.Attr, prefix)
				if !ok {
					return ErrMissingPackage
				}
				dbPackage = pkg
				t.Attr = setAttr(t.Attr, "package", pkg)
			case depth == 1 && t.Name.Local == "table":
				pkg, ok := packageOf(t.Attr, prefix)
				if !ok {
					pkg = dbPackage
				}
				t.Attr = setAttr(t.Attr, "package", pkg)
			}
			depth++
			tok = t
		case xml.EndElement:
			depth--
		}

		if err := enc.EncodeToken(xml.CopyToken(tok)); err != nil {
			return fmt.Errorf("failed to write schema: %w", err)
		}
	}
	if !sawDatabase {
		return fmt.Errorf("%w: no database element", ErrMissingPackage)
	}
	return enc.Flush()
}

func packageOf(attrs []xml.Attr, prefix string) (string, bool) {
	if pkg, ok := attr(attrs, "package"); ok {
		return pkg, true
	}
	if ns, ok := attr(attrs, "namespace"); ok {
		return prefix + strings.Join(namespaceParts(ns), "."), true
	}
	return "", false
}

func attr(attrs []xml.Attr, name string) (string, bool) {
	for _, a := range attrs {
		if a.Name.Space == "" && a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func setAttr(attrs []xml.Attr, name, value string) []xml.Attr {
	for i, a := range attrs {
		if a.Name.Space == "" && a.Name.Local == name {
			attrs[i].Value = value
			return attrs
		}
	}
	return append(attrs, xml.Attr{Name: xml.Name{Local: name}, Value: value})
}

func rewriteSchemaFile(src, dst, prefix string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := RewriteSchema(in, out, prefix); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
