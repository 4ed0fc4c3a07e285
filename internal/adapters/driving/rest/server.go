// Package rest exposes the query, library, and admin services over HTTP.
// Routes are declared with go-restful and documented via OpenAPI at
// /apidocs.json. CORS is wide open by default; this is a local tool.
package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"github.com/go-openapi/spec"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/core/ports/driving"
	"github.com/custodia-labs/docent/internal/logger"
	"github.com/custodia-labs/docent/internal/metrics"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Addr is the listen address (default: localhost:8080).
	Addr string

	// AllowReset enables the destructive POST /reset route.
	AllowReset bool

	// AllowedOrigins configures CORS. Empty allows all origins.
	AllowedOrigins []string

	// MaxUploadBytes bounds document uploads (default: 10MB).
	MaxUploadBytes int64

	// DisplayMinScore hides low-confidence sources from chat
	// responses (default: the pipeline display threshold).
	DisplayMinScore float64
}

// Ports aggregates the driving services the API exposes.
type Ports struct {
	Query   driving.QueryService
	Ingest  driving.IngestService
	Library driving.LibraryService
	Admin   driving.AdminService
}

// Validate ensures the required ports are set.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return errors.New("rest: query service is required")
	}
	if p.Library == nil {
		return errors.New("rest: library service is required")
	}
	if p.Admin == nil {
		return errors.New("rest: admin service is required")
	}
	return nil
}

// Server is the HTTP API server.
type Server struct {
	cfg     Config
	handler http.Handler
}

// NewServer builds the container, routes, and middleware chain.
func NewServer(cfg Config, ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, err
	}
	if cfg.Addr == "" {
		cfg.Addr = "localhost:8080"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if cfg.DisplayMinScore <= 0 {
		cfg.DisplayMinScore = domain.DefaultAppSettings().Pipeline.DisplayMinScore
	}

	h := &handler{ports: ports, cfg: cfg}

	container := restful.NewContainer()
	container.Filter(logFilter)
	container.Filter(recoverFilter)
	registerRoutes(container, h, cfg.AllowReset)

	spec := restfulspec.Config{
		WebServices:                   container.RegisteredWebServices(),
		APIPath:                       "/apidocs.json",
		PostBuildSwaggerObjectHandler: enrichSwaggerObject,
	}
	container.Add(restfulspec.NewOpenAPIService(spec))

	container.Handle("/metrics", promhttp.HandlerFor(
		metrics.Registry, promhttp.HandlerOpts{}))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins(cfg.AllowedOrigins),
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	return &Server{
		cfg:     cfg,
		handler: corsHandler.Handler(container),
	}, nil
}

// Handler returns the composed HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve runs the server until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	logger.Info("http api listening on %s", s.cfg.Addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func enrichSwaggerObject(swo *spec.Swagger) {
	swo.Info = &spec.Info{
		InfoProps: spec.InfoProps{
			Title:       "docent",
			Description: "Document question answering over an ingested corpus",
			Version:     "0.1.0",
		},
	}
}

// registerRoutes declares the API surface on one web service.
func registerRoutes(container *restful.Container, h *handler, allowReset bool) {
	ws := new(restful.WebService)
	ws.Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)

	ws.Route(ws.POST("/chat").
		To(h.chat).
		Doc("Answer a question from the ingested documents").
		Metadata(restfulspec.KeyOpenAPITags, []string{"chat"}).
		Param(ws.QueryParameter("all_sources", "include low-confidence sources").DataType("boolean")).
		Reads(chatRequest{}).
		Returns(http.StatusOK, "OK", chatResponse{}).
		Returns(http.StatusBadRequest, "Bad Request", errorResponse{}).
		Returns(http.StatusInternalServerError, "Internal Server Error", errorResponse{}))

	ws.Route(ws.GET("/documents").
		To(h.listDocuments).
		Doc("List ingested documents").
		Metadata(restfulspec.KeyOpenAPITags, []string{"documents"}).
		Returns(http.StatusOK, "OK", documentListResponse{}))

	ws.Route(ws.POST("/documents").
		To(h.uploadDocument).
		Doc("Upload and ingest a document").
		Metadata(restfulspec.KeyOpenAPITags, []string{"documents"}).
		Consumes("multipart/form-data").
		Returns(http.StatusCreated, "Created", ingestResponse{}).
		Returns(http.StatusBadRequest, "Bad Request", errorResponse{}))

	ws.Route(ws.GET("/documents/{id}").
		To(h.getDocument).
		Doc("Get one document").
		Metadata(restfulspec.KeyOpenAPITags, []string{"documents"}).
		Param(ws.PathParameter("id", "document id").DataType("string")).
		Returns(http.StatusOK, "OK", documentResponse{}).
		Returns(http.StatusNotFound, "Not Found", errorResponse{}))

	ws.Route(ws.DELETE("/documents/{id}").
		To(h.deleteDocument).
		Doc("Delete a document and its index entries").
		Metadata(restfulspec.KeyOpenAPITags, []string{"documents"}).
		Param(ws.PathParameter("id", "document id").DataType("string")).
		Returns(http.StatusNoContent, "No Content", nil).
		Returns(http.StatusNotFound, "Not Found", errorResponse{}))

	ws.Route(ws.GET("/health").
		To(h.health).
		Doc("Component health").
		Metadata(restfulspec.KeyOpenAPITags, []string{"admin"}).
		Returns(http.StatusOK, "OK", healthResponse{}).
		Returns(http.StatusServiceUnavailable, "Degraded", healthResponse{}))

	ws.Route(ws.GET("/stats").
		To(h.stats).
		Doc("Corpus statistics").
		Metadata(restfulspec.KeyOpenAPITags, []string{"admin"}).
		Returns(http.StatusOK, "OK", statsResponse{}))

	if allowReset {
		ws.Route(ws.POST("/reset").
			To(h.reset).
			Doc("Remove all documents, chunks, and vectors").
			Metadata(restfulspec.KeyOpenAPITags, []string{"admin"}).
			Returns(http.StatusNoContent, "No Content", nil))
	}

	container.Add(ws)
}

// logFilter logs one line per request.
func logFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	start := time.Now()
	chain.ProcessFilter(req, resp)
	logger.Debug("http %s %s -> %d (%s)",
		req.Request.Method, req.Request.URL.Path,
		resp.StatusCode(), time.Since(start).Round(time.Millisecond))
}

// recoverFilter converts handler panics into 500 responses.
func recoverFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic serving %s %s: %v", req.Request.Method, req.Request.URL.Path, r)
			writeError(resp, http.StatusInternalServerError, fmt.Errorf("internal error"))
		}
	}()
	chain.ProcessFilter(req, resp)
}
