// Package store defines the storage interfaces used by the HTTP endpoints.
//
// Implementations over gorm live in the gorm subpackage.
package store
