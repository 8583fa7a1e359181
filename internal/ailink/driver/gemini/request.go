package gemini

import (
	"fmt"
	"strings"

	"github.com/tutorlink/tutorlink/internal/ailink/content"
	"github.com/tutorlink/tutorlink/internal/ailink/driver"
)

type part struct {
	Text string `json:"text"`
}

type contentEntry struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMIMEType string   `json:"responseMimeType,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxOutputTokens  *int     `json:"maxOutputTokens,omitempty"`
}

type generateRequest struct {
	SystemInstruction *contentEntry     `json:"systemInstruction,omitempty"`
	Contents          []contentEntry    `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

func buildGenerateRequest(req *driver.Request) (*generateRequest, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("messages are required")
	}

	payload := &generateRequest{}
	var system []part
	for _, msg := range req.Messages {
		text := content.JoinText(msg.Content)
		if strings.EqualFold(strings.TrimSpace(msg.Role), content.RoleSystem) {
			system = append(system, part{Text: text})
			continue
		}
		payload.Contents = append(payload.Contents, contentEntry{Role: geminiRole(msg.Role), Parts: []part{{Text: text}}})
	}
	if len(payload.Contents) == 0 {
		return nil, fmt.Errorf("at least one user message is required")
	}
	if len(system) > 0 {
		payload.SystemInstruction = &contentEntry{Parts: system}
	}

	gc := &generationConfig{Temperature: req.Temperature, MaxOutputTokens: req.MaxTokens}
	if req.ResponseFormat != nil && req.ResponseFormat.Type == "json_object" {
		gc.ResponseMIMEType = "application/json"
	}
	if gc.ResponseMIMEType != "" || gc.Temperature != nil || gc.MaxOutputTokens != nil {
		payload.GenerationConfig = gc
	}
	return payload, nil
}

// geminiRole maps chat roles onto the two Gemini accepts.
func geminiRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case content.RoleAssistant, "model":
		return "model"
	default:
		return "user"
	}
}
