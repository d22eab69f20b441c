package endpoints

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/ormbundle/pkg/logger"
	"github.com/doodlesbykumbi/ormbundle/pkg/profiler"
)

func TestProfilerDisabled(t *testing.T) {
	s := newTestServer(t, nil)

	w := serve(s, "GET", "/?format=json")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get(logger.TokenHeader))

	w = serve(s, "GET", "/_profiler/orm/configuration")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProfilerRecordsACLQueries(t *testing.T) {
	store := profiler.NewMemoryStore(0)
	s := newTestServer(t, store)
	seedACL(t, s.ACL)

	w := serve(s, "GET", "/acl/Blog%5CPost/42%2Fdraft")
	require.Equal(t, http.StatusOK, w.Code)
	token := w.Header().Get(logger.TokenHeader)
	require.NotEmpty(t, token)

	w = serve(s, "GET", "/_profiler/"+token+"/orm")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "acl_object_identities")
	assert.Contains(t, w.Body.String(), "acl_entries")

	w = serve(s, "GET", "/_profiler/"+token+"/orm/explain/main/0")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "This query does not exist.")

	w = serve(s, "GET", "/_profiler/orm/configuration")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<td>main</td>")
}
