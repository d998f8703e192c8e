package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// AskInput ask_weatherbot 工具输入
type AskInput struct {
	Message   string `json:"message" jsonschema:"the weather question"`
	SessionID string `json:"session_id,omitempty" jsonschema:"existing session to continue, optional"`
}

// AskOutput ask_weatherbot 工具输出
type AskOutput struct {
	SessionID    string `json:"session_id" jsonschema:"session the turn was recorded in"`
	Reply        string `json:"reply" jsonschema:"assistant reply"`
	Location     string `json:"location,omitempty" jsonschema:"location the history was reseeded with"`
	HistoryReset bool   `json:"history_reset" jsonschema:"whether the conversation history was reset"`
}

// DetectInput detect_locations 工具输入
type DetectInput struct {
	Text string `json:"text" jsonschema:"text to scan for place names"`
}

// LocationOutput 识别出的地点
type LocationOutput struct {
	Word  string  `json:"word" jsonschema:"place name"`
	Score float64 `json:"score" jsonschema:"model confidence"`
}

// DetectOutput detect_locations 工具输出
type DetectOutput struct {
	Threshold float64          `json:"threshold" jsonschema:"confidence threshold in use"`
	Locations []LocationOutput `json:"locations" jsonschema:"detected locations"`
}

// TranscriptInput get_session_transcript 工具输入
type TranscriptInput struct {
	SessionID string `json:"session_id" jsonschema:"session ID"`
}

// TranscriptMessage 会话消息
type TranscriptMessage struct {
	Role    string `json:"role" jsonschema:"user or assistant"`
	Content string `json:"content" jsonschema:"message text"`
}

// TranscriptOutput get_session_transcript 工具输出
type TranscriptOutput struct {
	SessionID string              `json:"session_id"`
	Messages  []TranscriptMessage `json:"messages"`
	Total     int                 `json:"total"`
}

// askWeatherbotTool 向天气助手提问
func (s *MCPServer) askWeatherbotTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	sessionID := input.SessionID
	if sessionID == "" {
		session, err := s.svc.StartSession(ctx, "")
		if err != nil {
			return nil, AskOutput{}, fmt.Errorf("failed to start session: %w", err)
		}
		sessionID = session.ID
	}

	turn, err := s.svc.Send(ctx, sessionID, input.Message)
	if err != nil {
		return nil, AskOutput{}, err
	}

	s.logger.Debug("ask_weatherbot answered",
		"session_id", sessionID,
		"history_reset", turn.HistoryReset,
	)
	return nil, AskOutput{
		SessionID:    sessionID,
		Reply:        turn.Assistant.Content,
		Location:     turn.Location,
		HistoryReset: turn.HistoryReset,
	}, nil
}

// detectLocationsTool 识别文本中的地点
func (s *MCPServer) detectLocationsTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input DetectInput,
) (*mcp.CallToolResult, DetectOutput, error) {
	entities, err := s.recognizer.Locations(ctx, input.Text)
	if err != nil {
		return nil, DetectOutput{}, err
	}

	output := DetectOutput{
		Threshold: s.recognizer.Threshold(),
		Locations: make([]LocationOutput, 0, len(entities)),
	}
	for _, e := range entities {
		output.Locations = append(output.Locations, LocationOutput{Word: e.Word, Score: e.Score})
	}
	return nil, output, nil
}

// getSessionTranscriptTool 读取会话消息
func (s *MCPServer) getSessionTranscriptTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input TranscriptInput,
) (*mcp.CallToolResult, TranscriptOutput, error) {
	messages, err := s.svc.Transcript(ctx, input.SessionID)
	if err != nil {
		return nil, TranscriptOutput{}, err
	}

	output := TranscriptOutput{
		SessionID: input.SessionID,
		Messages:  make([]TranscriptMessage, 0, len(messages)),
		Total:     len(messages),
	}
	for _, m := range messages {
		output.Messages = append(output.Messages, TranscriptMessage{Role: string(m.Role), Content: m.Content})
	}
	return nil, output, nil
}
