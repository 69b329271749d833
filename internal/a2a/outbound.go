package a2a

import (
	"time"

	"github.com/suPer8Hu/standup-agent/internal/common"
)

type Style string

const (
	// StyleTask answers with a completed task carrying status, artifacts
	// and history.
	StyleTask Style = "task"
	// StyleMessage answers with the bare agent message.
	StyleMessage Style = "message"
)

const timestampLayout = "2006-01-02T15:04:05.000Z"

type Part struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

type Message struct {
	Kind      string `json:"kind"`
	MessageID string `json:"messageId"`
	Role      string `json:"role"`
	Parts     []Part `json:"parts"`
	TaskID    string `json:"taskId,omitempty"`
	ContextID string `json:"contextId,omitempty"`
}

type TaskStatus struct {
	State     string   `json:"state"`
	Timestamp string   `json:"timestamp"`
	Message   *Message `json:"message,omitempty"`
}

type Artifact struct {
	ArtifactID string `json:"artifactId"`
	Name       string `json:"name"`
	Parts      []Part `json:"parts"`
}

type Task struct {
	Kind      string     `json:"kind"`
	ID        string     `json:"id"`
	ContextID string     `json:"contextId"`
	Status    TaskStatus `json:"status"`
	Artifacts []Artifact `json:"artifacts"`
	History   []Message  `json:"history"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type Response struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

type Builder struct {
	style Style
	now   func() time.Time
	token func(prefix string) string
}

func NewBuilder(style Style, now func() time.Time) *Builder {
	if style != StyleMessage {
		style = StyleTask
	}
	if now == nil {
		now = time.Now
	}
	return &Builder{style: style, now: now, token: common.NewToken}
}

func (b *Builder) Style() Style { return b.style }

func (b *Builder) BuildSuccessResponse(requestID any, contextID, responseText, userText, userMessageID string) Response {
	taskID := b.token("task")
	agent := Message{
		Kind:      "message",
		MessageID: b.token("msg"),
		Role:      "agent",
		Parts:     []Part{{Kind: "text", Text: responseText}},
		TaskID:    taskID,
		ContextID: contextID,
	}

	if b.style == StyleMessage {
		return Response{JSONRPC: JSONRPCVersion, ID: requestID, Result: agent}
	}

	if userMessageID == "" {
		userMessageID = b.token("msg")
	}
	user := Message{
		Kind:      "message",
		MessageID: userMessageID,
		Role:      "user",
		Parts:     []Part{{Kind: "text", Text: userText}},
		TaskID:    taskID,
		ContextID: contextID,
	}
	task := Task{
		Kind:      "task",
		ID:        taskID,
		ContextID: contextID,
		Status: TaskStatus{
			State:     "completed",
			Timestamp: b.now().UTC().Format(timestampLayout),
			Message:   &agent,
		},
		Artifacts: []Artifact{{
			ArtifactID: b.token("artifact"),
			Name:       "standupAgentResponse",
			Parts:      []Part{{Kind: "text", Text: responseText}},
		}},
		History: []Message{user, agent},
	}
	return Response{JSONRPC: JSONRPCVersion, ID: requestID, Result: task}
}

func BuildErrorResponse(requestID any, code int, message string) Response {
	return Response{
		JSONRPC: JSONRPCVersion,
		ID:      requestID,
		Error:   &RPCError{Code: code, Message: message},
	}
}
