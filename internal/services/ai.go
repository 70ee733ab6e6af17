package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/yukikurage/taskflow/internal/models"
)

var errNoCompletion = errors.New("no response from OpenAI")

// chatCompleter is the part of the OpenAI client the drafting uses
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type AIService struct {
	client chatCompleter
	model  string
	now    func() time.Time
}

// GeneratedTask is a task draft extracted from free text
type GeneratedTask struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Priority    models.TaskPriority `json:"priority"`
	DueDate     *time.Time          `json:"due_date"`
}

func NewAIService(apiKey, model string) *AIService {
	return newAIService(openai.NewClient(apiKey), model)
}

func newAIService(client chatCompleter, model string) *AIService {
	if model == "" {
		model = openai.GPT4o
	}
	return &AIService{
		client: client,
		model:  model,
		now:    time.Now,
	}
}

const draftInstructions = `You extract actionable work items for an operations team.
Reply with a JSON object {"tasks": [...]} where every task has:
  "title": short imperative title
  "description": what needs to be done
  "priority": one of low, medium, high, urgent
  "due_date": RFC3339 timestamp, or null when no deadline is stated
Resolve relative deadlines ("tomorrow", "next week") against the current time.
Use an empty list when the text holds no tasks.`

// GenerateTasksFromText asks the model for task drafts found in text
func (s *AIService) GenerateTasksFromText(ctx context.Context, text string) ([]GeneratedTask, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: draftInstructions},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Current time: %s\n\n%s", s.now().Format(time.RFC3339), text)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errNoCompletion
	}

	return parseGeneratedTasks(resp.Choices[0].Message.Content)
}

// parseGeneratedTasks accepts {"tasks": [...]} or a bare array, optionally
// inside a fenced code block
func parseGeneratedTasks(content string) ([]GeneratedTask, error) {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "```"))

	if strings.HasPrefix(trimmed, "[") {
		var tasks []GeneratedTask
		if err := json.Unmarshal([]byte(trimmed), &tasks); err != nil {
			return nil, fmt.Errorf("failed to parse AI response: %w", err)
		}
		return tasks, nil
	}

	var wrapped struct {
		Tasks []GeneratedTask `json:"tasks"`
	}
	if err := json.Unmarshal([]byte(trimmed), &wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w", err)
	}
	return wrapped.Tasks, nil
}
