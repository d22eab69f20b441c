package fixtures

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"github.com/doodlesbykumbi/ormbundle/pkg/db"
)

// Loader inserts fixture documents through GORM.
type Loader struct {
	db       *gorm.DB
	registry *Registry
	log      *zap.Logger
}

func NewLoader(db *gorm.DB, registry *Registry, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{db: db, registry: registry, log: log}
}

// LoadFiles parses and loads files as one batch. It returns the number of
// files loaded.
func (l *Loader) LoadFiles(ctx context.Context, files ...string) (int, error) {
	docs := make([]*Document, 0, len(files))
	for _, file := range files {
		doc, err := ParseFile(file)
		if err != nil {
			return 0, err
		}
		docs = append(docs, doc)
	}
	return l.Load(ctx, docs...)
}

// Load loads docs in a single transaction. Any error rolls back the whole
// batch, including the delete phase.
func (l *Loader) Load(ctx context.Context, docs ...*Document) (int, error) {
	loaded := 0
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		loaded, err = l.load(ctx, tx, docs)
		return err
	})
	if err != nil {
		return 0, err
	}
	return loaded, nil
}

var errDryRun = errors.New("fixtures: dry run")

// SQL runs docs like Load in a transaction that is always rolled back, and
// returns the statements it executed with their values inlined.
func (l *Loader) SQL(ctx context.Context, docs ...*Document) ([]string, error) {
	rec := db.NewRecorder()
	ctx = db.WithRecorder(ctx, rec)
	session := l.db.Session(&gorm.Session{Logger: db.NewQueryLogger(l.log.Named("sql"), "fixtures")})
	err := session.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := l.load(ctx, tx, docs); err != nil {
			return err
		}
		return errDryRun
	})
	if err != nil && !errors.Is(err, errDryRun) {
		return nil, err
	}

	queries := rec.Queries()
	statements := make([]string, 0, len(queries))
	for _, q := range queries {
		statements = append(statements, q.SQL)
	}
	return statements, nil
}

func (l *Loader) load(ctx context.Context, tx *gorm.DB, docs []*Document) (int, error) {
	b := &batch{
		ctx:      ctx,
		tx:       tx,
		registry: l.registry,
		schemas:  map[string]*schema.Schema{},
		deleted:  map[string]bool{},
		refs:     map[string]map[string]reflect.Value{},
	}
	loaded := 0
	for _, doc := range docs {
		if err := b.deleteCurrentData(doc); err != nil {
			return 0, fmt.Errorf("%s: %w", doc.Name, err)
		}
		rows, err := b.loadData(doc)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", doc.Name, err)
		}
		l.log.Info("Loaded fixtures", zap.String("file", doc.Name), zap.Int("rows", rows))
		loaded++
	}
	return loaded, nil
}

// batch holds the state of one Load call.
type batch struct {
	ctx      context.Context
	tx       *gorm.DB
	registry *Registry
	schemas  map[string]*schema.Schema
	deleted  map[string]bool
	// class name -> symbolic key -> loaded struct value
	refs map[string]map[string]reflect.Value
}

func (b *batch) schemaOf(class string) (*schema.Schema, error) {
	if s, ok := b.schemas[class]; ok {
		return s, nil
	}
	t, err := b.registry.typeOf(class)
	if err != nil {
		return nil, err
	}
	stmt := &gorm.Statement{DB: b.tx}
	if err := stmt.Parse(reflect.New(t).Interface()); err != nil {
		return nil, fmt.Errorf("class %q: %w", class, err)
	}
	b.schemas[class] = stmt.Schema
	return stmt.Schema, nil
}

// deleteCurrentData empties the classes of doc in reverse declaration order,
// skipping classes already emptied in this batch.
func (b *batch) deleteCurrentData(doc *Document) error {
	for i := len(doc.Classes) - 1; i >= 0; i-- {
		class := doc.Classes[i].Name
		if b.deleted[class] {
			continue
		}
		s, err := b.schemaOf(class)
		if err != nil {
			return err
		}
		for _, rel := range s.Relationships.Many2Many {
			if err := b.tx.Exec("DELETE FROM ?", clause.Table{Name: rel.JoinTable.Table}).Error; err != nil {
				return fmt.Errorf("failed to empty %s: %w", rel.JoinTable.Table, err)
			}
		}
		err = b.tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Unscoped().
			Delete(reflect.New(s.ModelType).Interface()).Error
		if err != nil {
			return fmt.Errorf("failed to empty %s: %w", s.Table, err)
		}
		b.deleted[class] = true
	}
	return nil
}

type edge struct {
	rel  *schema.Relationship
	keys []string
}

func (b *batch) loadData(doc *Document) (int, error) {
	count := 0
	for _, class := range doc.Classes {
		if class.Rows == nil {
			continue
		}
		s, err := b.schemaOf(class.Name)
		if err != nil {
			return count, err
		}
		for _, row := range class.Rows {
			if err := b.loadRow(class.Name, s, row); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

func (b *batch) loadRow(class string, s *schema.Schema, row Row) error {
	obj := reflect.New(s.ModelType)
	value := obj.Elem()

	var edges []edge
	for _, attr := range row.Attributes {
		if attr.IsList() {
			rel := findMany2Many(s, attr.Name)
			if rel == nil {
				return fmt.Errorf("%w: unable to find the many-to-many relationship %q for class %q",
					ErrUnknownAttribute, attr.Name, class)
			}
			edges = append(edges, edge{rel: rel, keys: attr.Refs})
			continue
		}

		field, rel := b.resolveColumn(s, attr.Name)
		if field == nil {
			return fmt.Errorf("%w: column %q does not exist for class %q", ErrUnknownAttribute, attr.Name, class)
		}
		v := attr.Value
		if rel != nil && v != nil {
			target, pk, err := b.reference(rel, fmt.Sprint(v))
			if err != nil {
				return err
			}
			v, _ = pk.ValueOf(b.ctx, target)
		}
		if err := field.Set(b.ctx, value, v); err != nil {
			return fmt.Errorf("%w: %s.%s: %v", ErrMalformedFixture, class, attr.Name, err)
		}
	}

	if err := b.tx.Omit(clause.Associations).Create(obj.Interface()).Error; err != nil {
		return fmt.Errorf("failed to save %s %q: %w", class, row.Key, err)
	}
	if b.refs[class] == nil {
		b.refs[class] = map[string]reflect.Value{}
	}
	b.refs[class][row.Key] = value

	for _, e := range edges {
		if err := b.link(value, e); err != nil {
			return err
		}
	}
	return nil
}

// resolveColumn finds the field an attribute sets: by column name, Go field
// name, camel-case column name or belongs-to relation name. rel is set when
// the field is the foreign key of a belongs-to relation.
func (b *batch) resolveColumn(s *schema.Schema, name string) (*schema.Field, *schema.Relationship) {
	field := s.LookUpField(name)
	if field == nil || field.DBName == "" {
		if f := s.LookUpField(b.tx.NamingStrategy.ColumnName("", name)); f != nil && f.DBName != "" {
			field = f
		} else if rel := belongsToByName(s, name); rel != nil {
			return rel.References[0].ForeignKey, rel
		} else {
			return nil, nil
		}
	}
	for _, rel := range s.Relationships.BelongsTo {
		for _, ref := range rel.References {
			if ref.ForeignKey == field {
				return field, rel
			}
		}
	}
	return field, nil
}

func belongsToByName(s *schema.Schema, name string) *schema.Relationship {
	for _, rel := range s.Relationships.BelongsTo {
		if strings.EqualFold(rel.Name, name) && len(rel.References) == 1 {
			return rel
		}
	}
	return nil
}

func findMany2Many(s *schema.Schema, name string) *schema.Relationship {
	singular := strings.TrimSuffix(name, "s")
	for _, rel := range s.Relationships.Many2Many {
		if strings.EqualFold(rel.Name, name) || strings.EqualFold(rel.Name, singular) ||
			strings.EqualFold(rel.JoinTable.Table, name) || strings.EqualFold(rel.JoinTable.Table, singular) {
			return rel
		}
	}
	return nil
}

// reference returns the loaded row of rel's target class under key, and the
// field of that row the relation references.
func (b *batch) reference(rel *schema.Relationship, key string) (reflect.Value, *schema.Field, error) {
	class, ok := b.registry.nameOf(rel.FieldSchema.ModelType)
	if !ok {
		return reflect.Value{}, nil, fmt.Errorf("%w: class of %s is not registered", ErrUnresolvedReference, rel.Name)
	}
	target, ok := b.refs[class][key]
	if !ok {
		return reflect.Value{}, nil, fmt.Errorf("%w: the object %q from class %q is not defined in your data file",
			ErrUnresolvedReference, key, class)
	}
	for _, ref := range rel.References {
		if ref.PrimaryKey != nil && ref.PrimaryKey.Schema == rel.FieldSchema {
			return target, ref.PrimaryKey, nil
		}
	}
	return target, rel.FieldSchema.PrioritizedPrimaryField, nil
}

// link inserts one join-table row per key of e.
func (b *batch) link(owner reflect.Value, e edge) error {
	for _, key := range e.keys {
		target, _, err := b.reference(e.rel, key)
		if err != nil {
			return err
		}
		joinRow := map[string]interface{}{}
		for _, ref := range e.rel.References {
			src := target
			if ref.OwnPrimaryKey {
				src = owner
			}
			joinRow[ref.ForeignKey.DBName], _ = ref.PrimaryKey.ValueOf(b.ctx, src)
		}
		if err := b.tx.Table(e.rel.JoinTable.Table).Create(joinRow).Error; err != nil {
			return fmt.Errorf("failed to link %s: %w", e.rel.JoinTable.Table, err)
		}
	}
	return nil
}
