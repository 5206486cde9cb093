package contract

import (
	"time"

	"github.com/luis-bzk/llm-agent/domain"
)

// TurnMessage is one entry in a turn's transient working sequence. Tool
// requests and results appear here during a turn but are never persisted;
// only plain human and assistant messages survive into durable history.
type TurnMessage struct {
	Role       string      `json:"role"` // human | assistant | tool
	Content    string      `json:"content"`
	ToolCalls  []OpRequest `json:"tool_calls,omitempty"`
	ToolCallID string      `json:"tool_call_id,omitempty"`
}

const (
	RoleHuman     = "human"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// OpRequest is one named operation the assistant asked to run.
type OpRequest struct {
	ID   string         `json:"id"`
	Op   string         `json:"op"`
	Args map[string]any `json:"args,omitempty"`
}

// OpResult is the outcome of one operation, fed back into the working
// sequence. Error carries user-facing failure text; domain failures are
// reported here, never raised to the caller.
type OpResult struct {
	ID     string `json:"id"`
	Op     string `json:"op"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// OpSpec describes one operation to the reasoning capability. Parameters is
// a JSON schema object.
type OpSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// AssistantReply is the reasoning capability's output for one invocation.
type AssistantReply struct {
	Text         string
	RequestedOps []OpRequest
}

// SystemContext is the per-turn system-level block handed to the assistant:
// business identity, active summary, and whatever is known about the caller.
type SystemContext struct {
	Client      *domain.Client
	Branch      *domain.Branch
	Branches    []domain.Branch
	User        *domain.User
	Summary     string
	CallerPhone string
	Now         time.Time
}

// TurnConfig is the slice of system configuration one turn runs under,
// loaded once per turn and immutable within it.
type TurnConfig struct {
	Model                  string
	Temperature            float64
	MaxTokens              int
	SummaryThreshold       int
	ConversationTimeout    time.Duration
	MaxMessagesInContext   int
	BookingWindowDays      int
	SlotGranularityMinutes int
	MaxToolRounds          int
}

// TurnResult is what a completed turn returns to its caller.
type TurnResult struct {
	Reply          string
	ConversationID string
	UserID         string
	Escalated      bool
	Working        []TurnMessage
}
