package llm

import (
	"testing"
	"time"

	contractx "github.com/luis-bzk/llm-agent/agent/contract"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()
	cfg := Config{BaseURL: "https://api.openai.com/v1", APIKey: "sk-test", Timeout: 30 * time.Second}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	cfg.APIKey = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestToSDKMessagesRoundTrip(t *testing.T) {
	t.Parallel()
	messages := []contractx.TurnMessage{
		{Role: contractx.RoleHuman, Content: "hi"},
		{Role: contractx.RoleAssistant, Content: "", ToolCalls: []contractx.OpRequest{
			{ID: "c1", Op: "get_services", Args: map[string]any{"branch_id": "b1"}},
		}},
		{Role: contractx.RoleTool, Content: `{"ok":true}`, ToolCallID: "c1"},
		{Role: contractx.RoleAssistant, Content: "done"},
	}

	out := toSDKMessages("system block", messages)
	// system + the four turn messages
	if len(out) != 5 {
		t.Fatalf("expected 5 sdk messages, got %d", len(out))
	}
	if out[0].OfSystem == nil {
		t.Fatal("first message must be the system block")
	}
	if out[1].OfUser == nil {
		t.Fatal("second message must be the user turn")
	}
	assistant := out[2].OfAssistant
	if assistant == nil || len(assistant.ToolCalls) != 1 {
		t.Fatalf("tool-calling assistant turn not preserved: %+v", out[2])
	}
	if assistant.ToolCalls[0].ID != "c1" || assistant.ToolCalls[0].Function.Name != "get_services" {
		t.Fatalf("tool call = %+v", assistant.ToolCalls[0])
	}
	if out[3].OfTool == nil {
		t.Fatal("tool result turn not preserved")
	}
	if out[4].OfAssistant == nil {
		t.Fatal("final assistant turn not preserved")
	}
}

func TestToSDKTools(t *testing.T) {
	t.Parallel()
	tools := toSDKTools([]contractx.OpSpec{{
		Name:        "get_services",
		Description: "List services",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"branch_id": map[string]any{"type": "string"}},
		},
	}})
	if len(tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(tools))
	}
	if tools[0].Function.Name != "get_services" {
		t.Fatalf("tool name = %q", tools[0].Function.Name)
	}
}
