package catalog

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"PartsHub/internal/cache"
	"PartsHub/pkg/kit"
)

const (
	msgWarming       = "the server is preparing the data, try again in a few seconds"
	msgUpstream      = "failed to fetch external data"
	msgGroupItem     = "grupo and item are required"
	msgCodeRequired  = "codigo is required"
	msgNotFound      = "not found"
	msgMappingAbsent = "not found in mapping"
)

type Server struct {
	Service   *Service
	Log       *zap.Logger
	StaticDir string
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.readyz)

	r.Route("/api", func(api chi.Router) {
		api.Get("/reguladores", s.regulators)
		api.Get("/regulador/{grupo}/{item}", s.regulatorDetailByPath)
		api.Get("/regulador-detalhes", s.regulatorDetailByQuery)

		api.Route("/notus", func(nr chi.Router) {
			nr.Get("/", s.notusProducts)
			nr.Get("/search", s.notusSearch)
			nr.Get("/mapped", s.notusMapped)
			nr.Get("/gap", s.notusGap)
			nr.Get("/mapping", s.notusMapping)
			nr.Get("/by-mapping", s.notusByMapping)
			nr.Get("/{id}", s.notusByID)
		})

		api.Get("/mappings/info", s.mappingsInfo)
		api.Post("/mappings/reload", s.mappingsReload)

		api.Route("/cache", func(cr chi.Router) {
			cr.Get("/", s.cacheStatus)
			cr.Delete("/", s.cacheClearAll)
			cr.Delete("/{key}", s.cacheClear)
			cr.Post("/{key}/refresh", s.cacheRefresh)
		})
	})

	if s.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.StaticDir)))
	}

	return r
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// writeErr maps service errors onto the response taxonomy: not ready is 503,
// misses are 404 and anything else is an upstream failure reported as 500.
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error, upstreamMsg string) {
	switch {
	case errors.Is(err, ErrNotReady):
		kit.WriteError(w, r, http.StatusServiceUnavailable, msgWarming, nil)
	case errors.Is(err, ErrMappingNotFound):
		kit.WriteError(w, r, http.StatusNotFound, msgMappingAbsent, nil)
	case errors.Is(err, ErrNotFound), errors.Is(err, cache.ErrUnknownKey):
		kit.WriteError(w, r, http.StatusNotFound, msgNotFound, nil)
	default:
		s.logger().Error(upstreamMsg, zap.String("path", r.URL.Path), zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, upstreamMsg, nil)
	}
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if !s.Service.Cache.AllReady() {
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", s.Service.Cache.Status())
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) regulators(w http.ResponseWriter, r *http.Request) {
	data, err := s.Service.Regulators()
	if err != nil {
		s.writeErr(w, r, err, msgUpstream)
		return
	}
	kit.WriteJSON(w, http.StatusOK, data)
}

func (s *Server) regulatorDetailByPath(w http.ResponseWriter, r *http.Request) {
	s.regulatorDetail(w, r, chi.URLParam(r, "grupo"), chi.URLParam(r, "item"))
}

func (s *Server) regulatorDetailByQuery(w http.ResponseWriter, r *http.Request) {
	s.regulatorDetail(w, r, kit.Query(r, "grupo"), kit.Query(r, "item"))
}

func (s *Server) regulatorDetail(w http.ResponseWriter, r *http.Request, group, item string) {
	if group == "" || item == "" {
		kit.WriteError(w, r, http.StatusBadRequest, msgGroupItem, nil)
		return
	}

	data, err := s.Service.RegulatorDetail(r.Context(), group, item)
	if err != nil {
		s.writeErr(w, r, err, msgUpstream)
		return
	}
	kit.WriteJSON(w, http.StatusOK, data)
}

func (s *Server) notusProducts(w http.ResponseWriter, r *http.Request) {
	data, err := s.Service.NotusProducts(r.Context())
	if err != nil {
		s.writeErr(w, r, err, "failed to fetch NOTUS products")
		return
	}
	kit.WriteJSON(w, http.StatusOK, data)
}

func (s *Server) notusSearch(w http.ResponseWriter, r *http.Request) {
	filters := make(map[string]string)
	for k, vs := range r.URL.Query() {
		if len(vs) > 0 {
			filters[k] = vs[0]
		}
	}

	data, err := s.Service.SearchNotus(r.Context(), filters)
	if err != nil {
		s.writeErr(w, r, err, "failed to search NOTUS products")
		return
	}
	kit.WriteJSON(w, http.StatusOK, data)
}

func (s *Server) notusMapped(w http.ResponseWriter, r *http.Request) {
	data, err := s.Service.NotusMapped(r.Context())
	if err != nil {
		s.writeErr(w, r, err, "failed to fetch mapped products")
		return
	}
	kit.WriteJSON(w, http.StatusOK, data)
}

func (s *Server) notusGap(w http.ResponseWriter, r *http.Request) {
	data, err := s.Service.NotusGap(r.Context())
	if err != nil {
		s.writeErr(w, r, err, "failed to analyse catalog gap")
		return
	}
	kit.WriteJSON(w, http.StatusOK, data)
}

func (s *Server) notusMapping(w http.ResponseWriter, r *http.Request) {
	code := kit.Query(r, "codigo", "code")
	if code == "" {
		kit.WriteError(w, r, http.StatusBadRequest, msgCodeRequired, nil)
		return
	}

	row, err := s.Service.NotusMappingByCode(code)
	if err != nil {
		s.writeErr(w, r, err, msgUpstream)
		return
	}
	kit.WriteJSON(w, http.StatusOK, row)
}

func (s *Server) notusByMapping(w http.ResponseWriter, r *http.Request) {
	ref := kit.Query(r, "codigo", "code")
	if ref == "" {
		kit.WriteError(w, r, http.StatusBadRequest, msgCodeRequired, nil)
		return
	}

	p, err := s.Service.NotusByInternalRef(ref)
	if err != nil {
		s.writeErr(w, r, err, msgUpstream)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) notusByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := s.Service.NotusByID(r.Context(), id)
	if err != nil {
		s.writeErr(w, r, err, "failed to fetch NOTUS products")
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) mappingsInfo(w http.ResponseWriter, _ *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.Service.MappingInfo())
}

func (s *Server) mappingsReload(w http.ResponseWriter, _ *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.Service.ReloadMappings())
}

func (s *Server) cacheStatus(w http.ResponseWriter, _ *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.Service.Cache.Status())
}

func (s *Server) cacheClearAll(w http.ResponseWriter, _ *http.Request) {
	s.Service.Cache.ClearAll()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) cacheClear(w http.ResponseWriter, r *http.Request) {
	if err := s.Service.Cache.Clear(chi.URLParam(r, "key")); err != nil {
		s.writeErr(w, r, err, msgUpstream)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) cacheRefresh(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := s.Service.Refresh(r.Context(), key); err != nil {
		s.writeErr(w, r, err, msgUpstream)
		return
	}
	kit.WriteJSON(w, http.StatusOK, s.Service.Cache.Status())
}
