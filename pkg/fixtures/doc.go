// Package fixtures loads and dumps fixture files through GORM models.
//
// A fixture file is a YAML (or JSON) mapping of class names to rows. Each
// row has a symbolic key and a mapping of attributes:
//
//	Author:
//	  tolkien:
//	    name: J.R.R. Tolkien
//	Book:
//	  hobbit:
//	    title: The Hobbit
//	    author_id: tolkien
//	    tags: [fantasy, classic]
//
// Class names resolve to models through a Registry. Foreign keys of
// belongs-to relations take the symbolic key of a row loaded earlier in
// the batch; a sequence value names rows of a many-to-many relation.
//
// The Loader runs a batch of files in a single transaction. Before a file
// is loaded, every class it declares is emptied (once per batch, in
// reverse declaration order). A class whose body is empty only has its
// rows removed.
package fixtures
