package serve

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"strings"
)

// apiProxy forwards <base>/api/proxy/* to <backend>/api/*.
func (s *Server) apiProxy() http.Handler {
	return s.proxyTo(s.pages.Routes.URLs.BasePath+"/api/proxy", "/api")
}

// imageProxy forwards <base>/images/* to <backend>/images/*.
func (s *Server) imageProxy() http.Handler {
	return s.proxyTo(s.pages.Routes.URLs.BasePath+"/images", "/images")
}

func (s *Server) proxyTo(from, to string) http.Handler {
	target := s.backend
	basePath := strings.TrimRight(target.Path, "/")

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			rest := strings.TrimPrefix(pr.In.URL.Path, from)
			pr.SetURL(target)
			pr.Out.URL.Path = basePath + to + rest
			pr.Out.URL.RawPath = ""
			pr.Out.URL.RawQuery = pr.In.URL.RawQuery
			pr.Out.Host = target.Host
			pr.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			s.log.Warn("backend proxy failed",
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()),
			)
			writeJSON(w, http.StatusBadGateway, errorBody("backend unavailable"))
		},
	}
}
