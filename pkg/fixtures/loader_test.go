package fixtures

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Author struct {
	ID   uint
	Name string
}

type Tag struct {
	ID   uint
	Name string
}

type Book struct {
	ID        uint
	Title     string
	AuthorID  *uint
	Author    *Author
	Tags      []Tag `gorm:"many2many:book_tags"`
	DeletedAt gorm.DeletedAt
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&Author{}, &Tag{}, &Book{}))
	return db
}

func newTestRegistry() *Registry {
	return NewRegistry().
		MustRegister("Author", &Author{}).
		MustRegister("Tag", &Tag{}).
		MustRegister("Book", &Book{})
}

func newTestLoader(t *testing.T) (*Loader, *gorm.DB) {
	db := newTestDB(t)
	return NewLoader(db, newTestRegistry(), zaptest.NewLogger(t)), db
}

func parse(t *testing.T, name, input string) *Document {
	t.Helper()
	doc, err := Parse(strings.NewReader(input), name)
	require.NoError(t, err)
	return doc
}

func count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Unscoped().Model(model).Count(&n).Error)
	return n
}

func countLinks(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Table("book_tags").Count(&n).Error)
	return n
}

const library = `
Author:
  tolkien:
    name: J.R.R. Tolkien
  pratchett:
    name: Terry Pratchett
Tag:
  fantasy:
    name: Fantasy
  classic:
    name: Classic
Book:
  hobbit:
    title: The Hobbit
    author_id: tolkien
    tags: [fantasy, classic]
  colour:
    title: The Colour of Magic
    author_id: pratchett
    tags: [fantasy]
  anonymous:
    title: Beowulf
    author_id: ~
`

func TestLoadResolvesForeignKeys(t *testing.T) {
	l, db := newTestLoader(t)

	n, err := l.Load(context.Background(), parse(t, "library.yml", library))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var tolkien Author
	require.NoError(t, db.Where("name = ?", "J.R.R. Tolkien").Take(&tolkien).Error)

	var hobbit Book
	require.NoError(t, db.Where("title = ?", "The Hobbit").Take(&hobbit).Error)
	require.NotNil(t, hobbit.AuthorID)
	assert.Equal(t, tolkien.ID, *hobbit.AuthorID)

	var beowulf Book
	require.NoError(t, db.Where("title = ?", "Beowulf").Take(&beowulf).Error)
	assert.Nil(t, beowulf.AuthorID)
}

func TestLoadForeignKeySpellings(t *testing.T) {
	for _, attr := range []string{"author_id", "AuthorID", "authorId", "author"} {
		t.Run(attr, func(t *testing.T) {
			l, db := newTestLoader(t)

			_, err := l.Load(context.Background(), parse(t, "spelling.yml", `
Author:
  tolkien:
    name: J.R.R. Tolkien
Book:
  hobbit:
    title: The Hobbit
    `+attr+`: tolkien
`))
			require.NoError(t, err)

			var book Book
			require.NoError(t, db.Preload("Author").Take(&book).Error)
			require.NotNil(t, book.Author)
			assert.Equal(t, "J.R.R. Tolkien", book.Author.Name)
		})
	}
}

func TestLoadManyToMany(t *testing.T) {
	l, db := newTestLoader(t)

	_, err := l.Load(context.Background(), parse(t, "library.yml", library))
	require.NoError(t, err)
	assert.Equal(t, int64(3), countLinks(t, db))

	var hobbit Book
	require.NoError(t, db.Preload("Tags").Where("title = ?", "The Hobbit").Take(&hobbit).Error)
	require.Len(t, hobbit.Tags, 2)
	names := []string{hobbit.Tags[0].Name, hobbit.Tags[1].Name}
	assert.ElementsMatch(t, []string{"Fantasy", "Classic"}, names)
}

func TestLoadUnresolvedReferenceRollsBack(t *testing.T) {
	l, db := newTestLoader(t)
	require.NoError(t, db.Create(&Author{Name: "Existing"}).Error)

	_, err := l.Load(context.Background(), parse(t, "broken.yml", `
Author:
  tolkien:
    name: J.R.R. Tolkien
Book:
  hobbit:
    title: The Hobbit
    author_id: lewis
`))
	assert.ErrorIs(t, err, ErrUnresolvedReference)
	assert.Contains(t, err.Error(), `"lewis"`)

	var authors []Author
	require.NoError(t, db.Find(&authors).Error)
	require.Len(t, authors, 1)
	assert.Equal(t, "Existing", authors[0].Name)
	assert.Equal(t, int64(0), count(t, db, &Book{}))
}

func TestLoadUnresolvedManyToManyKey(t *testing.T) {
	l, db := newTestLoader(t)

	_, err := l.Load(context.Background(), parse(t, "broken.yml", `
Tag:
  fantasy:
    name: Fantasy
Book:
  hobbit:
    title: The Hobbit
    tags: [fantasy, horror]
`))
	assert.ErrorIs(t, err, ErrUnresolvedReference)
	assert.Equal(t, int64(0), countLinks(t, db))
	assert.Equal(t, int64(0), count(t, db, &Tag{}))
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"unknown class", "Magazine:\n  m1:\n    title: Wired\n", ErrUnknownClass},
		{"unknown column", "Author:\n  a1:\n    nickname: Tolkien\n", ErrUnknownAttribute},
		{"unknown relation", "Author:\n  a1:\n    books: [hobbit]\n", ErrUnknownAttribute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := newTestLoader(t)
			_, err := l.Load(context.Background(), parse(t, tt.name, tt.input))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadEmptiesDeclaredClassesOncePerBatch(t *testing.T) {
	l, db := newTestLoader(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&Tag{Name: "Stale"}).Error)
	stale := Book{Title: "Stale"}
	require.NoError(t, db.Create(&stale).Error)
	require.NoError(t, db.Delete(&stale).Error)

	first := parse(t, "first.yml", "Tag:\n  fantasy:\n    name: Fantasy\nBook: ~\n")
	second := parse(t, "second.yml", "Tag:\n  classic:\n    name: Classic\n")

	n, err := l.Load(ctx, first, second)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var tags []Tag
	require.NoError(t, db.Order("name").Find(&tags).Error)
	require.Len(t, tags, 2)
	assert.Equal(t, "Classic", tags[0].Name)
	assert.Equal(t, "Fantasy", tags[1].Name)

	// soft deleted rows are removed as well
	assert.Equal(t, int64(0), count(t, db, &Book{}))
}

func TestLoadReferencesAcrossFiles(t *testing.T) {
	l, db := newTestLoader(t)

	dir := t.TempDir()
	authors := filepath.Join(dir, "01-authors.yml")
	books := filepath.Join(dir, "02-books.yml")
	require.NoError(t, os.WriteFile(authors, []byte("Author:\n  tolkien:\n    name: J.R.R. Tolkien\n"), 0o644))
	require.NoError(t, os.WriteFile(books, []byte("Book:\n  hobbit:\n    title: The Hobbit\n    author: tolkien\n"), 0o644))

	n, err := l.LoadFiles(context.Background(), authors, books)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int64(1), count(t, db, &Book{}))

	_, err = l.LoadFiles(context.Background(), filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(" Author ", Author{}))
	assert.Error(t, r.Register("Author", &Author{}))
	assert.Error(t, r.Register("Number", 42))

	_, err := r.typeOf("Book")
	assert.ErrorIs(t, err, ErrUnknownClass)
	assert.Equal(t, []string{"Author"}, r.Names())
}

func TestSQLLeavesDatabaseUntouched(t *testing.T) {
	l, db := newTestLoader(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&Author{Name: "Ursula K. Le Guin"}).Error)

	statements, err := l.SQL(ctx, parse(t, "library.yml", library))
	require.NoError(t, err)

	all := strings.Join(statements, "\n")
	assert.Contains(t, all, "DELETE FROM `authors`")
	assert.Contains(t, all, "INSERT INTO `authors`")
	assert.Contains(t, all, "J.R.R. Tolkien")
	assert.Contains(t, all, "INSERT INTO `book_tags`")

	assert.Equal(t, int64(1), count(t, db, &Author{}))
	assert.Equal(t, int64(0), count(t, db, &Book{}))
}

func TestSQLReportsLoadErrors(t *testing.T) {
	l, _ := newTestLoader(t)
	_, err := l.SQL(context.Background(), parse(t, "broken.yml", "Book:\n  b1:\n    author_id: nobody\n"))
	assert.ErrorIs(t, err, ErrUnresolvedReference)
}
