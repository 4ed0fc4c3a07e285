package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docent/internal/core/domain"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question  string `json:"question" jsonschema:"the question to answer from the ingested documents"`
	SessionID string `json:"session_id,omitempty" jsonschema:"optional correlation id echoed back in the answer"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer        string         `json:"answer"`
	Sources       []SourceOutput `json:"sources"`
	HasContext    bool           `json:"has_context"`
	GeneralAnswer string         `json:"general_answer,omitempty"`
	Degraded      bool           `json:"degraded,omitempty"`
}

// SourceOutput represents one citation source.
type SourceOutput struct {
	ID       int     `json:"id"`
	Document string  `json:"document"`
	Section  string  `json:"section,omitempty"`
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
}

// IngestFileInput is the input schema for the ingest_file tool.
type IngestFileInput struct {
	Path string `json:"path" jsonschema:"filesystem path or github repository url to ingest"`
}

// IngestFileOutput is the output schema for the ingest_file tool.
type IngestFileOutput struct {
	Documents []IngestedDocument `json:"documents"`
	Failed    []string           `json:"failed,omitempty"`
}

// IngestedDocument summarises one successfully ingested document.
type IngestedDocument struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	URI        string `json:"uri"`
	Chunks     int    `json:"chunks"`
	Tokens     int    `json:"tokens"`
	Replaced   bool   `json:"replaced,omitempty"`
}

// ListDocumentsInput is the input schema for the list_documents tool.
type ListDocumentsInput struct{}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentInfo `json:"documents"`
	Count     int            `json:"count"`
}

// DocumentInfo represents one corpus document.
type DocumentInfo struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	URI        string `json:"uri"`
	TokenCount int    `json:"token_count"`
}

// DeleteDocumentInput is the input schema for the delete_document tool.
type DeleteDocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"the id of the document to delete"`
}

// DeleteDocumentOutput is the output schema for the delete_document tool.
type DeleteDocumentOutput struct {
	Deleted bool `json:"deleted"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Ask a question answered from the ingested documents, with citations",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_file",
		Description: "Ingest a file, directory, or GitHub repository into the corpus",
	}, s.handleIngestFile)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List all documents in the corpus",
	}, s.handleListDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_document",
		Description: "Delete a document and its index entries from the corpus",
	}, s.handleDeleteDocument)
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.Query.Query(ctx, domain.QueryRequest{
		Query:     input.Question,
		SessionID: input.SessionID,
	})
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:     answer.Answer,
		Sources:    make([]SourceOutput, len(answer.Sources)),
		HasContext: answer.HasContext,
		Degraded:   answer.Degraded,
	}
	if answer.GeneralAnswer != nil {
		output.GeneralAnswer = *answer.GeneralAnswer
	}
	for i, src := range answer.Sources {
		output.Sources[i] = SourceOutput{
			ID:       src.LocalID,
			Document: src.Document,
			Section:  src.Section,
			Text:     src.Text,
			Score:    src.Score,
		}
	}

	return nil, output, nil
}

// handleIngestFile handles the ingest_file tool invocation.
func (s *Server) handleIngestFile(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestFileInput,
) (*mcp.CallToolResult, IngestFileOutput, error) {
	if s.ports.Ingest == nil {
		return nil, IngestFileOutput{}, errors.New("ingestion is not available")
	}

	results, err := s.ports.Ingest.Ingest(ctx, input.Path)
	if err != nil {
		return nil, IngestFileOutput{}, err
	}

	output := IngestFileOutput{}
	for _, res := range results {
		if res.Err != nil {
			output.Failed = append(output.Failed, fmt.Sprintf("%s: %v", res.URI, res.Err))
			continue
		}
		output.Documents = append(output.Documents, IngestedDocument{
			DocumentID: res.DocumentID,
			Title:      res.Title,
			URI:        res.URI,
			Chunks:     res.Chunks,
			Tokens:     res.Tokens,
			Replaced:   res.Replaced,
		})
	}

	return nil, output, nil
}

// handleListDocuments handles the list_documents tool invocation.
func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	if s.ports.Library == nil {
		return nil, ListDocumentsOutput{}, errors.New("document library is not available")
	}

	docs, err := s.ports.Library.List(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	output := ListDocumentsOutput{
		Documents: make([]DocumentInfo, len(docs)),
		Count:     len(docs),
	}
	for i := range docs {
		output.Documents[i] = DocumentInfo{
			ID:         docs[i].ID,
			Title:      docs[i].Title,
			URI:        docs[i].URI,
			TokenCount: docs[i].TokenCount,
		}
	}

	return nil, output, nil
}

// handleDeleteDocument handles the delete_document tool invocation.
func (s *Server) handleDeleteDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DeleteDocumentInput,
) (*mcp.CallToolResult, DeleteDocumentOutput, error) {
	if s.ports.Library == nil {
		return nil, DeleteDocumentOutput{}, errors.New("document library is not available")
	}

	if err := s.ports.Library.Delete(ctx, input.DocumentID); err != nil {
		return nil, DeleteDocumentOutput{}, err
	}

	return nil, DeleteDocumentOutput{Deleted: true}, nil
}
