package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BuildPrompt creates a prompt for subtask generation.
func BuildPrompt(req Request) string {
	projectStr := ""
	if req.ProjectName != "" {
		projectStr = fmt.Sprintf("\nProject: %s", req.ProjectName)
		if req.ProjectDescription != "" {
			projectStr += fmt.Sprintf("\nProject context: %s", req.ProjectDescription)
		}
	}

	return fmt.Sprintf(`You are an expert project planner on a Scrum team.

Break the following task down into 3 to 5 short, actionable subtasks.

Rules:
1. Respond with ONLY a JSON array of strings, no explanations or markdown
2. Each subtask must be a single concrete step, at most 80 characters
3. Order the subtasks in the sequence they should be done
4. Do not repeat the task title as a subtask

Task: %s
Details: %s%s

JSON:`, req.Title, req.Description, projectStr)
}

// ExtractSubtasks parses the model output into subtask texts. It tolerates
// markdown fences around the JSON array.
func ExtractSubtasks(content string) ([]string, error) {
	raw := strings.TrimSpace(content)
	if block := extractFromCodeBlock(raw, "```json"); block != "" {
		raw = block
	} else if block := extractFromCodeBlock(raw, "```"); block != "" {
		raw = block
	}

	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON array in model output")
	}

	var items []string
	if err := json.Unmarshal([]byte(raw[start:end+1]), &items); err != nil {
		return nil, fmt.Errorf("failed to parse subtask list: %w", err)
	}

	out := items[:0]
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("model returned no subtasks")
	}
	return out, nil
}

func extractFromCodeBlock(content, startMarker string) string {
	startIdx := strings.Index(content, startMarker)
	if startIdx == -1 {
		return ""
	}
	rest := content[startIdx+len(startMarker):]
	endIdx := strings.Index(rest, "```")
	if endIdx == -1 {
		return ""
	}
	return strings.TrimSpace(rest[:endIdx])
}
