package acl

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockProvider(t *testing.T) (*Provider, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	gormDB, err := gorm.Open(
		postgres.New(postgres.Config{
			Conn:                 mockDB,
			PreferSimpleProtocol: true,
		}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		},
	)
	require.NoError(t, err)
	return NewProvider(NewGormStore(gormDB), nil), mock
}

const identityQuery = `SELECT acl_object_identities\.\*, acl_classes\.class_type FROM .*acl_object_identities.* JOIN acl_classes`

var identityColumns = []string{"id", "class_id", "object_identifier", "parent_object_identity_id", "entries_inheriting", "class_type"}

func TestUpdateACLRollsBackOnQueryError(t *testing.T) {
	p, mock := newMockProvider(t)
	cause := errors.New("connection reset")

	mock.ExpectBegin()
	mock.ExpectQuery(identityQuery).WillReturnError(cause)
	mock.ExpectRollback()

	err := p.UpdateACL(context.Background(), New(post))

	var aclErr *Error
	require.True(t, errors.As(err, &aclErr))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "an error occurred while updating the ACL")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteACLUnknownIdentityCommits(t *testing.T) {
	p, mock := newMockProvider(t)

	mock.ExpectBegin()
	mock.ExpectQuery(identityQuery).
		WithArgs(post.Type, post.Identifier, 1).
		WillReturnRows(sqlmock.NewRows(identityColumns))
	mock.ExpectCommit()

	assert.NoError(t, p.DeleteACL(context.Background(), post))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteACLRollsBackOnDeleteError(t *testing.T) {
	p, mock := newMockProvider(t)
	cause := errors.New("permission denied")

	mock.ExpectBegin()
	mock.ExpectQuery(identityQuery).
		WillReturnRows(sqlmock.NewRows(identityColumns).AddRow(7, 3, post.Identifier, nil, true, post.Type))
	mock.ExpectQuery(`SELECT \* FROM "acl_entries" WHERE class_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "class_id", "object_identity_id", "security_identity_id", "ace_order", "mask", "granting", "granting_strategy"}).
			AddRow(11, 3, nil, 5, 0, 1, true, "all"))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "acl_object_identities"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(`DELETE FROM "acl_entries" WHERE id = \$1`).
		WithArgs(11).
		WillReturnError(cause)
	mock.ExpectRollback()

	err := p.DeleteACL(context.Background(), post)
	assert.ErrorIs(t, err, cause)

	var aclErr *Error
	require.True(t, errors.As(err, &aclErr))
	assert.Equal(t, "deleting the ACL", aclErr.Op)
	assert.NoError(t, mock.ExpectationsWereMet())
}
