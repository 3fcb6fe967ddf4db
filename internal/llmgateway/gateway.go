// Package llmgateway provides a single synchronous request/response call
// to an external language model with strict JSON-shape validation, retry
// with backoff, and bounded concurrency.
package llmgateway

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/semaphore"

	"github.com/enterprise/aml-compliance/internal/errs"
)

// ResponseFormat selects whether the call expects plain text or a
// validated JSON object.
type ResponseFormat int

const (
	FormatText ResponseFormat = iota
	FormatJSON
)

// Request is the input contract for a single LLM call.
type Request struct {
	SystemPrompt    string
	Prompt          string
	ResponseFormat  ResponseFormat
	MaxOutputTokens int
	Temperature     float64
}

// Response is the output of a single call: exactly one of Text or JSON is
// populated, depending on Request.ResponseFormat.
type Response struct {
	Text string
	JSON json.RawMessage
}

const (
	retryAttempts  = 3
	backoffBase    = 500 * time.Millisecond
	backoffFactor  = 2
	jitterFraction = 0.2
)

// Gateway wraps the teacher's ExternalMLScorer pluggable-placeholder idiom
// (internal/scoring/ml_scorer.go) into a real HTTP-calling client, bounded
// by a process-wide semaphore and a circuit breaker over the upstream.
type Gateway struct {
	client       *openai.Client
	model        string
	breaker      *gobreaker.CircuitBreaker
	globalSem    *semaphore.Weighted
	requestTimeout time.Duration
}

func New(apiKey, baseURL, model string, globalConcurrency int, requestTimeout time.Duration) *Gateway {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	client := openai.NewClientWithConfig(cfg)

	breakerSettings := gobreaker.Settings{
		Name:        "llm-gateway",
		MaxRequests: 5,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &Gateway{
		client:         client,
		model:          model,
		breaker:        gobreaker.NewCircuitBreaker(breakerSettings),
		globalSem:      semaphore.NewWeighted(int64(globalConcurrency)),
		requestTimeout: requestTimeout,
	}
}

// Call performs a single request, retrying transient failures with
// exponential backoff and allowing one re-prompt on invalid JSON shape.
func (g *Gateway) Call(ctx context.Context, req Request) (Response, error) {
	if err := g.globalSem.Acquire(ctx, 1); err != nil {
		return Response{}, errs.New(errs.KindTimeout, "llmgateway.acquire", err)
	}
	defer g.globalSem.Release(1)

	var lastErr error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		resp, err := g.callOnce(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isTransient(err) {
			break
		}
		if attempt < retryAttempts-1 {
			sleepBackoff(ctx, attempt)
		}
	}
	return Response{}, errs.New(errs.KindTransient, "llmgateway.Call", lastErr)
}

func (g *Gateway) callOnce(ctx context.Context, req Request) (Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.requestTimeout)
	defer cancel()

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.completion(callCtx, req)
	})
	if err != nil {
		return Response{}, err
	}
	resp := result.(Response)

	if req.ResponseFormat == FormatJSON {
		if !json.Valid(resp.JSON) {
			reprompted, rerr := g.reprompt(callCtx, req)
			if rerr != nil {
				return Response{}, errs.New(errs.KindInvalid, "llmgateway.reprompt", rerr)
			}
			return reprompted, nil
		}
	}
	return resp, nil
}

func (g *Gateway) completion(ctx context.Context, req Request) (Response, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxOutputTokens,
	}
	if req.ResponseFormat == FormatJSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	result, err := g.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return Response{}, err
	}
	if len(result.Choices) == 0 {
		return Response{}, errors.New("empty completion")
	}
	content := result.Choices[0].Message.Content

	if req.ResponseFormat == FormatJSON {
		return Response{JSON: json.RawMessage(content)}, nil
	}
	return Response{Text: content}, nil
}

func (g *Gateway) reprompt(ctx context.Context, req Request) (Response, error) {
	suffixed := req
	suffixed.Prompt = req.Prompt + "\n\nReturn valid JSON matching the requested shape. No prose."
	resp, err := g.completion(ctx, suffixed)
	if err != nil {
		return Response{}, err
	}
	if !json.Valid(resp.JSON) {
		return Response{}, errors.New("invalid JSON after re-prompt")
	}
	return resp, nil
}

func isTransient(err error) bool {
	return !errors.Is(err, gobreaker.ErrOpenState)
}

func sleepBackoff(ctx context.Context, attempt int) {
	base := backoffBase * time.Duration(pow(backoffFactor, attempt))
	jitter := 1 + (rand.Float64()*2-1)*jitterFraction
	delay := time.Duration(float64(base) * jitter)
	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}
}

func pow(base, exp int) int {
	result := 1
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}
