package gemini

import (
	"context"
	"fmt"
	"time"

	"github.com/Rrens/taskboard/internal/ai"
	"github.com/Rrens/taskboard/internal/config"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type Planner struct {
	apiKey string
	model  string
}

func NewPlanner(cfg config.GeminiConfig) *Planner {
	return &Planner{
		apiKey: cfg.APIKey,
		model:  cfg.Model,
	}
}

func (p *Planner) Name() string {
	return "gemini"
}

func (p *Planner) DefaultModel() string {
	if p.model != "" {
		return p.model
	}
	return "gemini-2.5-flash"
}

func (p *Planner) IsConfigured() bool {
	return p.apiKey != ""
}

func (p *Planner) GenerateSubtasks(ctx context.Context, req ai.Request, model string) (*ai.Response, error) {
	if !p.IsConfigured() {
		return nil, fmt.Errorf("gemini planner is not configured (missing API key)")
	}

	if model == "" {
		model = p.DefaultModel()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	generativeModel := client.GenerativeModel(model)
	// Low temperature keeps the breakdown close to the task text
	var temperature float32 = 0.2
	generativeModel.Temperature = &temperature

	prompt := ai.BuildPrompt(req)

	start := time.Now()
	resp, err := generativeModel.GenerateContent(ctx, genai.Text(prompt))
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return nil, fmt.Errorf("gemini generation error: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from gemini")
	}

	var output string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			output += string(text)
		}
	}

	subtasks, err := ai.ExtractSubtasks(output)
	if err != nil {
		return nil, err
	}

	return &ai.Response{
		Subtasks:  subtasks,
		Model:     model,
		LatencyMs: latency,
	}, nil
}
