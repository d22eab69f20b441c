package endpoints

import (
	"github.com/doodlesbykumbi/ormbundle/pkg/server"
)

// RegisterAll registers all endpoints on the server
func RegisterAll(srv *server.Server) {
	RegisterProfiler(srv)
	RegisterStatusEndpoints(srv)
	RegisterACLEndpoints(srv)
}
