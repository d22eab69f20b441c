package endpoints

import (
	"github.com/doodlesbykumbi/ormbundle/pkg/profiler"
	"github.com/doodlesbykumbi/ormbundle/pkg/server"
)

// RegisterProfiler mounts the profiler panel and profiles every other route.
// It does nothing when the server has no profile store.
func RegisterProfiler(s *server.Server) {
	if s.Profiles == nil {
		return
	}
	collector := profiler.NewCollector(s.Profiles, s.Conns.DefaultName(), s.Log.Named("profiler"))
	s.Router.Use(collector.Middleware)

	profiler.NewPanel(s.Profiles, s.Conns, s.Config, s.Version, s.Log.Named("profiler")).Register(s.Router)
}
