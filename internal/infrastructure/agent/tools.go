package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/weatherbot/backend/internal/infrastructure/weather"
)

// ToolGetCurrentWeather 当前天气工具名
const ToolGetCurrentWeather = "get_current_weather"

// weatherTools 暴露给模型的工具
var weatherTools = []openai.Tool{
	{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        ToolGetCurrentWeather,
			Description: "Get the current weather (temperature, humidity, wind, conditions) for a place.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"location": {
						Type:        jsonschema.String,
						Description: "City or place name, e.g. Paris or New York",
					},
				},
				Required: []string{"location"},
			},
		},
	},
}

type weatherArgs struct {
	Location string `json:"location"`
}

type toolError struct {
	Error string `json:"error"`
}

// executeToolCall 执行模型发起的工具调用，返回交给模型的内容
// 工具自身的失败以 {"error": ...} 交还模型，只有未知工具才返回 error
func (a *ChatAgent) executeToolCall(ctx context.Context, call openai.ToolCall) (string, error) {
	if call.Type != "" && call.Type != openai.ToolTypeFunction {
		return "", fmt.Errorf("unsupported tool type: %s", call.Type)
	}

	switch call.Function.Name {
	case ToolGetCurrentWeather:
		var args weatherArgs
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return marshalToolResult(toolError{Error: "invalid arguments: " + err.Error()}), nil
		}

		report, err := a.weather.Current(ctx, args.Location)
		if err != nil {
			a.logger.Warn("Weather tool failed",
				"location", args.Location,
				"error", err,
			)
			msg := err.Error()
			if errors.Is(err, weather.ErrLocationNotFound) {
				msg = fmt.Sprintf("no place named %q was found", args.Location)
			}
			return marshalToolResult(toolError{Error: msg}), nil
		}
		return marshalToolResult(report), nil
	default:
		return "", fmt.Errorf("unknown tool: %s", call.Function.Name)
	}
}

func marshalToolResult(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return `{"error":"failed to encode tool result"}`
	}
	return string(data)
}
