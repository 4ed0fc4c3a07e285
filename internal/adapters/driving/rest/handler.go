package rest

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	restful "github.com/emicklei/go-restful/v3"

	"github.com/custodia-labs/docent/internal/core/domain"
	"github.com/custodia-labs/docent/internal/logger"
)

// uploadMIMETypes maps accepted upload extensions to their MIME types.
var uploadMIMETypes = map[string]string{
	".txt": "text/plain",
	".md":  "text/markdown",
	".pdf": "application/pdf",
}

type chatRequest struct {
	Query     string            `json:"query"`
	History   []domain.ChatTurn `json:"chat_history,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
}

type chatResponse = domain.Answer

type documentInfo struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	URI        string    `json:"uri"`
	TokenCount int       `json:"token_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type documentListResponse struct {
	Documents []documentInfo `json:"documents"`
	Count     int            `json:"count"`
}

type documentResponse struct {
	documentInfo
	ChunkCount int               `json:"chunk_count"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type ingestResponse struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	Chunks     int    `json:"chunks"`
	Tokens     int    `json:"tokens"`
	Replaced   bool   `json:"replaced"`
}

type healthResponse = domain.HealthStatus

type statsResponse = domain.CorpusStats

type errorResponse struct {
	Error string `json:"error"`
}

type handler struct {
	ports *Ports
	cfg   Config
}

func (h *handler) chat(req *restful.Request, resp *restful.Response) {
	var body chatRequest
	if err := req.ReadEntity(&body); err != nil {
		writeError(resp, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if strings.TrimSpace(body.Query) == "" {
		writeError(resp, http.StatusBadRequest, errors.New("query must not be empty"))
		return
	}

	answer, err := h.ports.Query.Query(req.Request.Context(), domain.QueryRequest{
		Query:     body.Query,
		History:   body.History,
		SessionID: body.SessionID,
	})
	if err != nil {
		writeError(resp, statusForError(err), err)
		return
	}
	if req.QueryParameter("all_sources") != "true" {
		answer.Sources = domain.FilterForDisplay(answer.Sources, h.cfg.DisplayMinScore, answer.Degraded)
	}
	writeJSON(resp, http.StatusOK, answer)
}

func (h *handler) listDocuments(req *restful.Request, resp *restful.Response) {
	docs, err := h.ports.Library.List(req.Request.Context())
	if err != nil {
		writeError(resp, http.StatusInternalServerError, err)
		return
	}
	out := documentListResponse{Documents: make([]documentInfo, 0, len(docs)), Count: len(docs)}
	for _, d := range docs {
		out.Documents = append(out.Documents, documentInfo{
			ID:         d.ID,
			Title:      d.Title,
			URI:        d.URI,
			TokenCount: d.TokenCount,
			CreatedAt:  d.CreatedAt,
			UpdatedAt:  d.UpdatedAt,
		})
	}
	writeJSON(resp, http.StatusOK, out)
}

func (h *handler) getDocument(req *restful.Request, resp *restful.Response) {
	details, err := h.ports.Library.GetDetails(req.Request.Context(), req.PathParameter("id"))
	if err != nil {
		writeError(resp, statusForError(err), err)
		return
	}
	writeJSON(resp, http.StatusOK, documentResponse{
		documentInfo: documentInfo{
			ID:         details.ID,
			Title:      details.Title,
			URI:        details.URI,
			TokenCount: details.TokenCount,
			CreatedAt:  details.CreatedAt,
			UpdatedAt:  details.UpdatedAt,
		},
		ChunkCount: details.ChunkCount,
		Metadata:   details.Metadata,
	})
}

func (h *handler) deleteDocument(req *restful.Request, resp *restful.Response) {
	if err := h.ports.Library.Delete(req.Request.Context(), req.PathParameter("id")); err != nil {
		writeError(resp, statusForError(err), err)
		return
	}
	resp.WriteHeader(http.StatusNoContent)
}

func (h *handler) uploadDocument(req *restful.Request, resp *restful.Response) {
	if h.ports.Ingest == nil {
		writeError(resp, http.StatusServiceUnavailable, errors.New("ingestion is not configured"))
		return
	}

	req.Request.Body = http.MaxBytesReader(resp, req.Request.Body, h.cfg.MaxUploadBytes)
	file, header, err := req.Request.FormFile("file")
	if err != nil {
		writeError(resp, http.StatusBadRequest, fmt.Errorf("missing file field: %w", err))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	mimeType, ok := uploadMIMETypes[ext]
	if !ok {
		writeError(resp, http.StatusBadRequest,
			fmt.Errorf("unsupported file type %q, expected .txt, .md, or .pdf", ext))
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(resp, http.StatusBadRequest, fmt.Errorf("reading upload: %w", err))
		return
	}

	raw := domain.RawDocument{
		URI:      "upload://" + header.Filename,
		Title:    strings.TrimSuffix(header.Filename, ext),
		Content:  content,
		MIMEType: mimeType,
		Metadata: map[string]any{
			"filename": header.Filename,
			"size":     int64(len(content)),
		},
	}

	result, err := h.ports.Ingest.IngestDocument(req.Request.Context(), raw)
	if err != nil {
		writeError(resp, statusForError(err), err)
		return
	}
	if result.Err != nil {
		writeError(resp, statusForError(result.Err), result.Err)
		return
	}
	writeJSON(resp, http.StatusCreated, ingestResponse{
		DocumentID: result.DocumentID,
		Title:      result.Title,
		Chunks:     result.Chunks,
		Tokens:     result.Tokens,
		Replaced:   result.Replaced,
	})
}

func (h *handler) health(req *restful.Request, resp *restful.Response) {
	status, err := h.ports.Admin.Health(req.Request.Context())
	if err != nil {
		writeError(resp, http.StatusInternalServerError, err)
		return
	}
	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(resp, code, status)
}

func (h *handler) stats(req *restful.Request, resp *restful.Response) {
	stats, err := h.ports.Library.Stats(req.Request.Context())
	if err != nil {
		writeError(resp, http.StatusInternalServerError, err)
		return
	}
	writeJSON(resp, http.StatusOK, stats)
}

func (h *handler) reset(req *restful.Request, resp *restful.Response) {
	if err := h.ports.Admin.Reset(req.Request.Context()); err != nil {
		writeError(resp, http.StatusInternalServerError, err)
		return
	}
	logger.Warn("corpus reset via http api")
	resp.WriteHeader(http.StatusNoContent)
}

// statusForError maps domain errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnsupportedType):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrEmbeddingUnavailable),
		errors.Is(err, domain.ErrGenerationUnavailable),
		errors.Is(err, domain.ErrVectorStoreUnavailable),
		errors.Is(err, domain.ErrSourceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(resp *restful.Response, status int, entity any) {
	if err := resp.WriteHeaderAndEntity(status, entity); err != nil {
		logger.Error("writing response: %v", err)
	}
}

func writeError(resp *restful.Response, status int, err error) {
	if werr := resp.WriteHeaderAndEntity(status, errorResponse{Error: err.Error()}); werr != nil {
		logger.Error("writing error response: %v", werr)
	}
}
