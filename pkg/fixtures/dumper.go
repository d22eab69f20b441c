package fixtures

import (
	"context"
	"database/sql/driver"
	"fmt"
	"io"
	"reflect"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Dumper writes database rows in the fixture format read by Loader.
// Rows are keyed "<Class>_<primary key>"; foreign keys and many-to-many
// lists refer to those keys.
type Dumper struct {
	db       *gorm.DB
	registry *Registry
	log      *zap.Logger
}

func NewDumper(db *gorm.DB, registry *Registry, log *zap.Logger) *Dumper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dumper{db: db, registry: registry, log: log}
}

// Dump writes every registered class, or only the given classes. Classes
// are ordered so that referenced classes come before the classes that
// reference them.
func (d *Dumper) Dump(ctx context.Context, w io.Writer, classes ...string) error {
	if len(classes) == 0 {
		classes = d.registry.Names()
	}
	tx := d.db.WithContext(ctx)
	schemas := map[string]*schema.Schema{}
	for _, class := range classes {
		t, err := d.registry.typeOf(class)
		if err != nil {
			return err
		}
		stmt := &gorm.Statement{DB: tx}
		if err := stmt.Parse(reflect.New(t).Interface()); err != nil {
			return fmt.Errorf("class %q: %w", class, err)
		}
		schemas[class] = stmt.Schema
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, class := range d.dependencyOrder(classes, schemas) {
		body, n, err := d.dumpClass(tx, class, schemas[class])
		if err != nil {
			return err
		}
		root.Content = append(root.Content, scalar(class), body)
		d.log.Debug("Dumped fixtures", zap.String("class", class), zap.Int("rows", n))
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}); err != nil {
		return err
	}
	return enc.Close()
}

func (d *Dumper) dependencyOrder(classes []string, schemas map[string]*schema.Schema) []string {
	var order []string
	state := map[string]int{}
	var visit func(class string)
	visit = func(class string) {
		if state[class] != 0 {
			return
		}
		state[class] = 1
		s := schemas[class]
		for _, rel := range append(append([]*schema.Relationship{}, s.Relationships.BelongsTo...), s.Relationships.Many2Many...) {
			if dep, ok := d.registry.nameOf(rel.FieldSchema.ModelType); ok && dep != class {
				if _, selected := schemas[dep]; selected {
					visit(dep)
				}
			}
		}
		state[class] = 2
		order = append(order, class)
	}
	for _, class := range classes {
		visit(class)
	}
	return order
}

func (d *Dumper) dumpClass(tx *gorm.DB, class string, s *schema.Schema) (*yaml.Node, int, error) {
	if s.PrioritizedPrimaryField == nil {
		return nil, 0, fmt.Errorf("class %q has no primary key", class)
	}
	query := tx.Order(s.PrioritizedPrimaryField.DBName)
	for _, rel := range s.Relationships.Many2Many {
		query = query.Preload(rel.Name)
	}
	rows := reflect.New(reflect.SliceOf(reflect.PointerTo(s.ModelType)))
	if err := query.Find(rows.Interface()).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to read %s: %w", class, err)
	}

	ctx := tx.Statement.Context
	var selfRefs []*schema.Relationship
	for _, rel := range s.Relationships.BelongsTo {
		if rel.FieldSchema.ModelType == s.ModelType {
			selfRefs = append(selfRefs, rel)
		}
	}

	list := rows.Elem()
	dumped := make([]dumpedRow, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		row := list.Index(i).Elem()
		key, err := d.key(ctx, class, s.PrioritizedPrimaryField, row)
		if err != nil {
			return nil, 0, err
		}
		attrs, err := d.attributes(ctx, s, row)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", key, err)
		}
		r := dumpedRow{key: key, attrs: attrs}
		for _, rel := range selfRefs {
			for _, ref := range rel.References {
				if v, zero := ref.ForeignKey.ValueOf(ctx, row); !zero && !isNil(v) {
					r.parents = append(r.parents, fmt.Sprintf("%s_%v", class, deref(v)))
				}
			}
		}
		dumped = append(dumped, r)
	}

	body := &yaml.Node{Kind: yaml.MappingNode}
	for _, r := range parentsFirst(dumped) {
		body.Content = append(body.Content, scalar(r.key), r.attrs)
	}
	return body, len(dumped), nil
}

type dumpedRow struct {
	key   string
	attrs *yaml.Node

	// keys of rows of the same class this row points to
	parents []string
}

// parentsFirst orders rows so that a row referencing its own class comes
// after the row it references. Rows keep their primary key order otherwise.
func parentsFirst(rows []dumpedRow) []dumpedRow {
	index := make(map[string]int, len(rows))
	for i, r := range rows {
		index[r.key] = i
	}
	ordered := make([]dumpedRow, 0, len(rows))
	state := make([]int, len(rows))
	var visit func(i int)
	visit = func(i int) {
		if state[i] != 0 {
			return
		}
		state[i] = 1
		for _, parent := range rows[i].parents {
			if j, ok := index[parent]; ok {
				visit(j)
			}
		}
		state[i] = 2
		ordered = append(ordered, rows[i])
	}
	for i := range rows {
		visit(i)
	}
	return ordered
}

func (d *Dumper) key(ctx context.Context, class string, pk *schema.Field, row reflect.Value) (string, error) {
	v, zero := pk.ValueOf(ctx, row)
	if zero {
		return "", fmt.Errorf("class %q: row without primary key", class)
	}
	return fmt.Sprintf("%s_%v", class, v), nil
}

func (d *Dumper) attributes(ctx context.Context, s *schema.Schema, row reflect.Value) (*yaml.Node, error) {
	attrs := &yaml.Node{Kind: yaml.MappingNode}
	foreign := map[*schema.Field]*schema.Relationship{}
	for _, rel := range s.Relationships.BelongsTo {
		for _, ref := range rel.References {
			foreign[ref.ForeignKey] = rel
		}
	}

	for _, field := range s.Fields {
		if field.DBName == "" || !field.Readable || (field.PrimaryKey && field.AutoIncrement) {
			continue
		}
		v, zero := field.ValueOf(ctx, row)
		if rel, ok := foreign[field]; ok {
			if zero || isNil(v) {
				attrs.Content = append(attrs.Content, scalar(field.DBName), nullNode())
				continue
			}
			target, ok := d.registry.nameOf(rel.FieldSchema.ModelType)
			if !ok {
				return nil, fmt.Errorf("%s references unregistered %s", field.DBName, rel.FieldSchema.Name)
			}
			attrs.Content = append(attrs.Content, scalar(field.DBName), scalar(fmt.Sprintf("%s_%v", target, deref(v))))
			continue
		}
		n, err := valueNode(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field.DBName, err)
		}
		attrs.Content = append(attrs.Content, scalar(field.DBName), n)
	}

	for _, rel := range s.Relationships.Many2Many {
		target, ok := d.registry.nameOf(rel.FieldSchema.ModelType)
		if !ok {
			continue
		}
		pk := rel.FieldSchema.PrioritizedPrimaryField
		related := reflect.Indirect(rel.Field.ReflectValueOf(ctx, row))
		list := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for i := 0; i < related.Len(); i++ {
			key, err := d.key(ctx, target, pk, reflect.Indirect(related.Index(i)))
			if err != nil {
				return nil, err
			}
			list.Content = append(list.Content, scalar(key))
		}
		attrs.Content = append(attrs.Content, scalar(rel.Name), list)
	}
	return attrs, nil
}

func valueNode(v interface{}) (*yaml.Node, error) {
	if valuer, ok := v.(driver.Valuer); ok {
		dv, err := valuer.Value()
		if err != nil {
			return nil, err
		}
		v = dv
	}
	v = deref(v)
	if v == nil {
		return nullNode(), nil
	}
	if t, ok := v.(time.Time); ok {
		return scalar(t.Format(time.RFC3339Nano)), nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	n := &yaml.Node{}
	if err := n.Encode(v); err != nil {
		return nil, err
	}
	return n, nil
}

func deref(v interface{}) interface{} {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}

func isNil(v interface{}) bool {
	return deref(v) == nil
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func nullNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "~"}
}
