package mcp

import "github.com/modelcontextprotocol/go-sdk/mcp"

const (
	toolWordList   = "word_list"
	toolWordCreate = "word_create"
	toolWordUpdate = "word_update"
	toolWordDelete = "word_delete"
)

// ToolDefinitions returns the word collection MCP tool definitions.
func ToolDefinitions() []*mcp.Tool {
	return []*mcp.Tool{
		{
			Name:        toolWordList,
			Description: "Read one page of the word collection in insertion order. Pages are 1-indexed. The response carries page, pageSize, totalItems, totalPages and data (an array of {id, word}). A page past the end returns an empty data array.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"page": map[string]any{
						"type":        "integer",
						"description": "1-indexed page number (default 1)",
						"minimum":     1,
					},
					"page_size": map[string]any{
						"type":        "integer",
						"description": "Words per page (default 200)",
						"minimum":     1,
					},
				},
			},
		},
		{
			Name:        toolWordCreate,
			Description: "Append a word to the collection. Returns the stored {id, word}. The server assigns the id; ids are never reused.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"word": map[string]any{
						"type":        "string",
						"description": "The word text (required, non-empty)",
					},
				},
				"required": []string{"word"},
			},
		},
		{
			Name:        toolWordUpdate,
			Description: "Replace the text of an existing word. Its id and position do not change. Fails with not_found for unknown ids.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{
						"type":        "integer",
						"description": "The id of the word to update",
					},
					"word": map[string]any{
						"type":        "string",
						"description": "The new word text (required, non-empty)",
					},
				},
				"required": []string{"id", "word"},
			},
		},
		{
			Name:        toolWordDelete,
			Description: "Remove a word from the collection. Returns the deleted {id, word}. Fails with not_found for unknown ids.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{
						"type":        "integer",
						"description": "The id of the word to delete",
					},
				},
				"required": []string{"id"},
			},
		},
	}
}
