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

// openAIClient speaks the chat completions protocol, which Qwen's
// compatible mode also serves.
type openAIClient struct {
	apiKey string
	model  string
	base   string
	client *http.Client
}

func (c *openAIClient) Name() string {
	return fmt.Sprintf("OpenAI-compatible (%s)", c.model)
}

func (c *openAIClient) Translate(ctx context.Context, req Request, onDelta DeltaHandler) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return req.Text, nil
	}
	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt(req.Direction)},
			{"role": "user", "content": buildUserPrompt(req)},
		},
		"temperature": temperatureOf(req),
		"stream":      onDelta != nil,
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/chat/completions", c.base)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("openai API error: %s (%s)", resp.Status, string(body))
	}

	var text string
	if onDelta != nil {
		text, err = readEventStream(resp.Body, onDelta)
	} else {
		text, err = readCompletion(resp.Body)
	}
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("openai API returned an empty translation")
	}
	return preserveEdges(req.Text, text), nil
}

func readCompletion(body io.Reader) (string, error) {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai API returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// readEventStream consumes a server-sent event stream of completion deltas.
func readEventStream(body io.Reader, onDelta DeltaHandler) (string, error) {
	var full strings.Builder
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			break
		}
		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return "", fmt.Errorf("decode stream event: %w", err)
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		full.WriteString(chunk.Choices[0].Delta.Content)
		if err := onDelta(full.String()); err != nil {
			return "", err
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return full.String(), nil
}
