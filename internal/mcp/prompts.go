package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const wordWorkflowPromptName = "word_workflow"

const wordWorkflowText = "The word collection is an ordered list of {id, word} records. Use word_list to page through it (page 1 first, stop when data is empty or page reaches totalPages). Use word_create to append, word_update to change text by id, and word_delete to remove by id. Confirm with the user before deleting."

func registerPrompts(mcpServer *mcp.Server) {
	for _, prompt := range PromptDefinitions() {
		mcpServer.AddPrompt(prompt, promptHandler)
	}
}

// PromptDefinitions returns MCP prompt definitions.
func PromptDefinitions() []*mcp.Prompt {
	return []*mcp.Prompt{
		{
			Name:        wordWorkflowPromptName,
			Title:       "Word collection workflow",
			Description: "Brief guidance for paging and editing the word collection.",
		},
	}
}

func promptHandler(_ context.Context, _ *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Brief guidance for paging and editing the word collection.",
		Messages: []*mcp.PromptMessage{
			{
				Role:    mcp.Role("user"),
				Content: &mcp.TextContent{Text: wordWorkflowText},
			},
		},
	}, nil
}
