package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type ollamaClient struct {
	host   string
	model  string
	client *http.Client
}

func (c *ollamaClient) Name() string {
	return fmt.Sprintf("Ollama (%s)", c.model)
}

func (c *ollamaClient) Translate(ctx context.Context, req Request, onDelta DeltaHandler) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return req.Text, nil
	}
	payload := map[string]any{
		"model":  c.model,
		"system": systemPrompt(req.Direction),
		"prompt": buildUserPrompt(req),
		"stream": onDelta != nil,
		"options": map[string]any{
			"temperature": temperatureOf(req),
		},
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ollama API error: %s (%s)", resp.Status, string(body))
	}

	// Streaming responses are one JSON object per line; a non-streaming
	// response is the same object on a single line.
	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var part struct {
			Response string `json:"response"`
			Done     bool   `json:"done"`
			Error    string `json:"error"`
		}
		if err := json.Unmarshal(line, &part); err != nil {
			return "", fmt.Errorf("decode ollama response: %w", err)
		}
		if part.Error != "" {
			return "", fmt.Errorf("ollama API error: %s", part.Error)
		}
		if part.Response != "" {
			full.WriteString(part.Response)
			if onDelta != nil {
				if err := onDelta(full.String()); err != nil {
					return "", err
				}
			}
		}
		if part.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	if full.Len() == 0 {
		return "", fmt.Errorf("ollama returned an empty response")
	}
	return preserveEdges(req.Text, full.String()), nil
}
