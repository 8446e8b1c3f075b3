package openai

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/joseph-ayodele/invoice-scanner/internal/llm"
)

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason       string `json:"finish_reason"`
		NativeFinishReason string `json:"native_finish_reason"`
	} `json:"choices"`
	Usage llm.Usage `json:"usage"`
}

// Complete implements llm.Transport against a chat/completions endpoint.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (llm.Completion, error) {
	start := time.Now()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return llm.Completion{}, &llm.TransportError{Model: req.Model, URL: c.endpoint, Err: err}
		}
	}

	headers := map[string]string{
		"Authorization": "Bearer " + c.cfg.APIKey,
		"X-Title":       c.cfg.AppName,
	}
	if c.cfg.AppURL != "" {
		headers["HTTP-Referer"] = c.cfg.AppURL
	}

	resp, err := llm.SendJSON(ctx, c.http, c.endpoint, RequestBody(req), headers, c.cfg.Retry, c.logger)
	if err != nil {
		var te *llm.TransportError
		if errors.As(err, &te) {
			te.Model = req.Model
		}
		return llm.Completion{}, err
	}

	var cc chatResponse
	if err := json.Unmarshal(resp.Body, &cc); err != nil {
		c.logger.Error("llm.completion.decode_error",
			"model", req.Model, "error", err, "raw_bytes", len(resp.Body),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Completion{}, &llm.TransportError{
			Model:      req.Model,
			URL:        c.endpoint,
			StatusCode: resp.StatusCode,
			Body:       string(resp.Body),
			Attempts:   resp.Attempts,
			Err:        err,
		}
	}

	out := llm.Completion{
		Choices:   len(cc.Choices),
		Model:     cc.Model,
		Usage:     cc.Usage,
		RateLimit: llm.RateLimitHeaders(resp.Header),
		Header:    resp.Header,
		Raw:       json.RawMessage(resp.Body),
	}
	if len(cc.Choices) > 0 {
		out.Content = cc.Choices[0].Message.Content
		out.FinishReason = cc.Choices[0].FinishReason
		if out.FinishReason == "" {
			out.FinishReason = cc.Choices[0].NativeFinishReason
		}
	}

	c.logger.Info("llm.completion.ok",
		"model", req.Model,
		"actual_model", out.Model,
		"choices", out.Choices,
		"finish_reason", out.FinishReason,
		"prompt_tokens", out.Usage.PromptTokens,
		"completion_tokens", out.Usage.CompletionTokens,
		"attempts", resp.Attempts,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// RequestBody maps a CompletionRequest onto the OpenRouter chat/completions body.
func RequestBody(req llm.CompletionRequest) map[string]any {
	body := map[string]any{
		"model":       req.Model,
		"messages":    req.Messages,
		"temperature": req.Temperature,
		"max_tokens":  req.MaxTokens,
		"usage":       map[string]any{"include": true},
	}
	if req.ResponseSchema != nil {
		body["response_format"] = llm.ResponseFormat(req.ResponseSchema)
	}
	if req.ReasoningEffort != "" {
		body["reasoning"] = map[string]any{"effort": req.ReasoningEffort}
	}
	return body
}
