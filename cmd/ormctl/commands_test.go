package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/ormbundle/pkg/acl"
	"github.com/doodlesbykumbi/ormbundle/pkg/config"
	"github.com/doodlesbykumbi/ormbundle/pkg/generator"
	"github.com/doodlesbykumbi/ormbundle/pkg/profiler"
)

func TestFixtureFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yml", "a.yaml", "c.json", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yml"), 0o755))
	single := filepath.Join(t.TempDir(), "z.yml")
	require.NoError(t, os.WriteFile(single, []byte("{}"), 0o644))

	files, err := fixtureFiles([]string{single, dir})
	require.NoError(t, err)
	assert.Equal(t, []string{
		single,
		filepath.Join(dir, "a.yaml"),
		filepath.Join(dir, "b.yml"),
		filepath.Join(dir, "c.json"),
	}, files)
}

func TestFixtureFilesErrors(t *testing.T) {
	_, err := fixtureFiles([]string{filepath.Join(t.TempDir(), "missing.yml")})
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = fixtureFiles([]string{t.TempDir()})
	assert.ErrorContains(t, err, "no fixture files found")
}

func TestParseSecurityIdentity(t *testing.T) {
	tests := []struct {
		in      string
		want    acl.SecurityIdentity
		wantErr bool
	}{
		{in: "role:ROLE_ADMIN", want: acl.RoleIdentity("ROLE_ADMIN")},
		{in: "user:App-alice", want: acl.SecurityIdentity{Identifier: "App-alice", Username: true}},
		{in: "group:admins", wantErr: true},
		{in: "ROLE_ADMIN", wantErr: true},
		{in: "role:", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseSecurityIdentity(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseGrant(t *testing.T) {
	sid, mask, err := parseGrant("role:ROLE_EDITOR=view, edit")
	require.NoError(t, err)
	assert.Equal(t, acl.RoleIdentity("ROLE_EDITOR"), sid)
	assert.Equal(t, acl.MaskView|acl.MaskEdit, mask)

	_, _, err = parseGrant("role:ROLE_EDITOR")
	assert.Error(t, err)
	_, _, err = parseGrant("role:ROLE_EDITOR=FLY")
	assert.Error(t, err)
}

func TestMigrationURL(t *testing.T) {
	ds := config.Datasource{Name: "default", Adapter: "postgres", DSN: "postgres://db:5432/app", User: "app", Password: "secret"}
	assert.Equal(t, "postgres://app:secret@db:5432/app?x-migrations-table="+migrationsTable, migrationURL(ds))

	ds.DSN = "postgres://db:5432/app?sslmode=disable"
	assert.Equal(t, "postgres://app:secret@db:5432/app?sslmode=disable&x-migrations-table="+migrationsTable, migrationURL(ds))
}

func TestPlatformOf(t *testing.T) {
	cfg := &config.Config{Datasources: []config.Datasource{{Name: "pg", Adapter: "postgres"}}}
	assert.Equal(t, "PgsqlPlatform", platformOf(cfg, "pg"))
	assert.Equal(t, generator.DefaultPlatform, platformOf(cfg, "missing"))
}

func TestNewProfileStore(t *testing.T) {
	store, closeStore, err := newProfileStore(&config.Config{ProfilerStore: "memory"})
	require.NoError(t, err)
	defer closeStore()
	assert.IsType(t, &profiler.MemoryStore{}, store)

	store, closeStore, err = newProfileStore(&config.Config{ProfilerStore: "none"})
	require.NoError(t, err)
	defer closeStore()
	assert.Nil(t, store)

	_, _, err = newProfileStore(&config.Config{ProfilerStore: "redis", ProfilerRedisURL: "not a url"})
	assert.Error(t, err)
}

func TestWriteACL(t *testing.T) {
	parent := acl.New(acl.ObjectIdentity{Type: "Blog", Identifier: "1"})
	a := acl.New(acl.ObjectIdentity{Type: "Post", Identifier: "42"})
	require.NoError(t, a.SetParent(parent))
	require.NoError(t, a.InsertObjectACE(0, acl.RoleIdentity("ROLE_EDITOR"), acl.MaskEdit, true))
	require.NoError(t, a.InsertClassFieldACE("title", 0, acl.RoleIdentity("ROLE_ADMIN"), acl.MaskView, false))

	var buf bytes.Buffer
	require.NoError(t, writeACL(&buf, a))

	out := buf.String()
	assert.Contains(t, out, "ObjectIdentity(42, Post)")
	assert.Contains(t, out, "Parent: ObjectIdentity(1, Blog)")
	assert.Contains(t, out, "RoleSecurityIdentity(ROLE_EDITOR)")
	assert.Contains(t, out, acl.NewMaskBuilder(acl.MaskEdit).Pattern())
	assert.Contains(t, out, "title")
}

func TestGeneratorCommandsReturnErrors(t *testing.T) {
	t.Setenv("ORM_CONFIG_PATH", t.TempDir())
	t.Setenv("DATABASE_URL", ":memory:")
	t.Setenv("ORM_GENERATOR_BINARY", "")

	_, err := sqlBuild(sqlBuildCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generator_binary")

	_, err = modelBuild(modelBuildCmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generator_binary")
}

func TestWriteStatements(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeStatements(&buf, []string{
		"DELETE FROM `acl_classes` WHERE 1 = 1",
		"INSERT INTO `acl_classes` (`class_type`) VALUES (\"Blog\\Post\")",
	}))
	assert.Equal(t, "DELETE FROM `acl_classes` WHERE 1 = 1;\nINSERT INTO `acl_classes` (`class_type`) VALUES (\"Blog\\Post\");\n", buf.String())
}
