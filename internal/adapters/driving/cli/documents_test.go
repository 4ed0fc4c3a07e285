package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentsCmd_HasSubcommands(t *testing.T) {
	commands := documentsCmd.Commands()
	commandNames := make([]string, 0, len(commands))
	for _, cmd := range commands {
		commandNames = append(commandNames, cmd.Name())
	}

	assert.Contains(t, commandNames, "list")
	assert.Contains(t, commandNames, "get")
	assert.Contains(t, commandNames, "content")
	assert.Contains(t, commandNames, "delete")
}

func TestDocumentsListCmd_Empty(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	libraryService = &mockLibraryService{}

	out, err := executeCommand("documents", "list")

	assert.NoError(t, err)
	assert.Contains(t, out, "No documents ingested")
}

func TestDocumentsListCmd_PrintsDocuments(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("documents", "list")

	assert.NoError(t, err)
	assert.Contains(t, out, "doc-1")
	assert.Contains(t, out, "Test Document 1")
	assert.Contains(t, out, "Total: 1 documents")
}

func TestDocumentsGetCmd_PrintsDetails(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("documents", "get", "doc-1")

	assert.NoError(t, err)
	assert.Contains(t, out, "Document: doc-1")
	assert.Contains(t, out, "Chunks:   3")
}

func TestDocumentsContentCmd_PrintsContent(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("documents", "content", "doc-1")

	assert.NoError(t, err)
	assert.Contains(t, out, "full document content")
}

func TestDocumentsDeleteCmd_Deletes(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	library := &mockLibraryService{}
	libraryService = library

	out, err := executeCommand("documents", "delete", "doc-1")

	assert.NoError(t, err)
	assert.Equal(t, "doc-1", library.deletedID)
	assert.Contains(t, out, "deleted")
}

func TestDocumentsDeleteCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := executeCommand("documents", "delete")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}
