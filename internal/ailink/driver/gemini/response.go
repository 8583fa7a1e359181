package gemini

import (
	"fmt"

	"github.com/tutorlink/tutorlink/internal/ailink/content"
	"github.com/tutorlink/tutorlink/internal/ailink/driver"
)

type generateResponse struct {
	Candidates     []candidate     `json:"candidates"`
	PromptFeedback *promptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *usageMetadata  `json:"usageMetadata,omitempty"`
}

type candidate struct {
	Content      contentEntry `json:"content"`
	FinishReason string       `json:"finishReason"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

func toDriverResponse(resp *generateResponse) (*driver.Response, error) {
	if resp == nil {
		return nil, fmt.Errorf("empty response")
	}
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return nil, &driver.ProviderError{Provider: "gemini", Message: "prompt blocked: " + resp.PromptFeedback.BlockReason}
		}
		return nil, fmt.Errorf("empty response candidates")
	}

	first := resp.Candidates[0]
	blocks := make([]content.ContentBlock, 0, len(first.Content.Parts))
	for _, p := range first.Content.Parts {
		blocks = append(blocks, content.ContentBlock{Type: content.ContentTypeText, Text: p.Text})
	}

	response := &driver.Response{
		Content:      blocks,
		FinishReason: first.FinishReason,
	}
	if resp.UsageMetadata != nil {
		response.Usage = &driver.Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		}
	}
	return response, nil
}
