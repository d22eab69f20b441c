package endpoints

import (
	"html/template"
	"net/http"

	"github.com/doodlesbykumbi/ormbundle/pkg/server"
	"github.com/doodlesbykumbi/ormbundle/pkg/server/store"
)

// StatusResponse represents the response from GET / in JSON
type StatusResponse struct {
	Status      string            `json:"status"`
	Version     string            `json:"version"`
	Connections map[string]string `json:"connections"`
}

// RegisterStatusEndpoints registers the status endpoint
func RegisterStatusEndpoints(s *server.Server) {
	// GET / - Status page (no auth required)
	s.Router.HandleFunc("/", handleStatus(s.HealthStore, s.Version)).Methods("GET")
}

var statusPage = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <title>ORM Status</title>
  </head>
  <body>
    <h1>Status</h1>
    <p class="status-text">{{if eq .Status "ok"}}Your ORM server is running!{{else}}Some connections are unavailable.{{end}}</p>
    <dl>
      <dt>Version</dt>
      <dd>{{.Version}}</dd>
      <dt>Connections</dt>
      {{range $name, $state := .Connections}}<dd>{{$name}}: {{$state}}</dd>
      {{end}}
    </dl>
  </body>
</html>
`))

func handleStatus(healthStore store.HealthStore, version string) http.HandlerFunc {
	if version == "" {
		version = "dev"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		resp := StatusResponse{Status: "ok", Version: version, Connections: map[string]string{}}
		for name, err := range healthStore.CheckConnectivity(r.Context()) {
			if err != nil {
				resp.Status = "error"
				resp.Connections[name] = "unavailable"
				continue
			}
			resp.Connections[name] = "ok"
		}

		code := http.StatusOK
		if resp.Status != "ok" {
			code = http.StatusServiceUnavailable
		}

		if wantsJSON(r) {
			respondWithJSON(w, code, resp)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(code)
		_ = statusPage.Execute(w, resp)
	}
}
