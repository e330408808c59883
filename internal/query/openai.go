// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// openaiAPIURL is the OpenAI chat completions endpoint. Package-level var
// for test substitution.
var openaiAPIURL = "https://api.openai.com/v1/chat/completions"

const systemPromptFmt = "You are an assistant that converts natural language requests " +
	"into valid PubMed search queries. The current date is %s. " +
	"Return ONLY the query string."

// OpenAIBackend calls the OpenAI chat completions API to translate a
// research request into a PubMed query (R2.2).
type OpenAIBackend struct {
	APIKey string
	Model  string
	Client *http.Client

	// Now supplies the date embedded in the system prompt. Nil means time.Now.
	Now func() time.Time
}

// openaiRequest is the request body for the chat completions API.
type openaiRequest struct {
	Model    string          `json:"model"`
	Messages []openaiMessage `json:"messages"`
}

// openaiMessage is a single message in the chat completions conversation.
type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// openaiResponse is the response body from the chat completions API.
type openaiResponse struct {
	Choices []openaiChoice `json:"choices"`
}

type openaiChoice struct {
	Message openaiMessage `json:"message"`
}

// GenerateQuery sends the research request to the chat completions API and
// returns the proposed PubMed query string.
func (b *OpenAIBackend) GenerateQuery(ctx context.Context, request string) (string, error) {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}

	reqBody := openaiRequest{
		Model: b.Model,
		Messages: []openaiMessage{
			{Role: "system", Content: fmt.Sprintf(systemPromptFmt, now().Format("2006-01-02"))},
			{Role: "user", Content: request},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openaiAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.APIKey)

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling OpenAI API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("OpenAI API returned %d: %s", resp.StatusCode, string(body))
	}

	var oResp openaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&oResp); err != nil {
		return "", fmt.Errorf("decoding OpenAI response: %w", err)
	}

	if len(oResp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI API returned no choices")
	}

	return oResp.Choices[0].Message.Content, nil
}
