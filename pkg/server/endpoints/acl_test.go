package endpoints

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/ormbundle/pkg/acl"
)

var (
	blog = acl.ObjectIdentity{Type: `Blog\Post`, Identifier: "blog"}
	post = acl.ObjectIdentity{Type: `Blog\Post`, Identifier: "42/draft"}
)

func seedACL(t *testing.T, provider *acl.Provider) {
	t.Helper()
	ctx := context.Background()

	parent, err := provider.CreateACL(ctx, blog)
	require.NoError(t, err)
	require.NoError(t, parent.InsertObjectACE(0, acl.RoleIdentity("ROLE_EDITOR"), acl.MaskEdit, true))
	require.NoError(t, provider.UpdateACL(ctx, parent))

	a, err := provider.CreateACL(ctx, post)
	require.NoError(t, err)
	require.NoError(t, a.SetParent(parent))
	require.NoError(t, a.InsertObjectACE(0, acl.UserIdentity("App", "alice"), acl.MaskView|acl.MaskEdit, true))
	require.NoError(t, a.InsertObjectACE(1, acl.RoleIdentity("ROLE_GUEST"), acl.MaskView, false))
	require.NoError(t, a.InsertClassACE(0, acl.RoleIdentity("ROLE_ADMIN"), acl.MaskIDDQD, true))
	require.NoError(t, a.InsertObjectFieldACE("title", 0, acl.RoleIdentity("ROLE_GUEST"), acl.MaskView, true))
	require.NoError(t, provider.UpdateACL(ctx, a))
}

func getACL(t *testing.T, w interface{ Bytes() []byte }) ACLView {
	t.Helper()
	var view ACLView
	require.NoError(t, json.Unmarshal(w.Bytes(), &view))
	return view
}

func TestGetACL(t *testing.T) {
	s := newTestServer(t, nil)
	seedACL(t, s.ACL)

	w := serve(s, "GET", "/acl/Blog%5CPost/42%2Fdraft")
	assertJSON(t, w, http.StatusOK)

	view := getACL(t, w.Body)
	assert.Equal(t, post, view.ObjectIdentity)
	require.NotNil(t, view.Parent)
	assert.Equal(t, blog, *view.Parent)
	assert.True(t, view.EntriesInheriting)
	assert.Nil(t, view.Granted)

	require.Len(t, view.ObjectACEs, 2)
	assert.Equal(t, "App-alice", view.ObjectACEs[0].SecurityIdentity.Identifier)
	assert.True(t, view.ObjectACEs[0].SecurityIdentity.Username)
	assert.Equal(t, acl.MaskView|acl.MaskEdit, view.ObjectACEs[0].Mask)
	assert.Equal(t, strings.Repeat(".", 29)+"E.V", view.ObjectACEs[0].Pattern)
	assert.NotZero(t, view.ObjectACEs[0].ID)
	assert.False(t, view.ObjectACEs[1].Granting)

	require.Len(t, view.ClassACEs, 1)
	assert.Equal(t, "ROLE_ADMIN", view.ClassACEs[0].SecurityIdentity.Identifier)

	require.Len(t, view.ObjectFieldACEs["title"], 1)
	assert.Empty(t, view.ClassFieldACEs)
}

func TestGetACLGranted(t *testing.T) {
	s := newTestServer(t, nil)
	seedACL(t, s.ACL)

	tests := []struct {
		name  string
		query string
		want  bool
	}{
		{"user granted", "?permission=VIEW&sid=user:App-alice", true},
		{"role denied", "?permission=view&sid=role:ROLE_GUEST", false},
		{"class entry", "?permission=OWNER&sid=role:ROLE_ADMIN", true},
		{"inherited from parent", "?permission=EDIT&sid=role:ROLE_EDITOR", true},
		{"field entry", "?permission=VIEW&sid=role:ROLE_GUEST&field=title", true},
		{"no entry", "?permission=DELETE,UNDELETE&sid=role:ROLE_NOBODY", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(s, "GET", "/acl/Blog%5CPost/42%2Fdraft"+tt.query)
			assertJSON(t, w, http.StatusOK)
			view := getACL(t, w.Body)
			require.NotNil(t, view.Granted)
			assert.Equal(t, tt.want, *view.Granted)
		})
	}
}

func TestGetACLErrors(t *testing.T) {
	s := newTestServer(t, nil)
	seedACL(t, s.ACL)

	w := serve(s, "GET", "/acl/Blog%5CPost/43")
	assertJSON(t, w, http.StatusNotFound)
	assert.Contains(t, w.Body.String(), "No ACL found")

	w = serve(s, "GET", "/acl/Blog%5CPost/42%2Fdraft?permission=FLY&sid=role:ROLE_ADMIN")
	assertJSON(t, w, http.StatusBadRequest)

	w = serve(s, "GET", "/acl/Blog%5CPost/42%2Fdraft?permission=VIEW&sid=group:admins")
	assertJSON(t, w, http.StatusBadRequest)
}
