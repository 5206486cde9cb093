package prompt

import (
	"strings"
	"testing"
	"time"

	contractx "github.com/luis-bzk/llm-agent/agent/contract"
	"github.com/luis-bzk/llm-agent/domain"
)

func baseContext() contractx.SystemContext {
	return contractx.SystemContext{
		Client: &domain.Client{
			ID:           "client-1",
			BusinessName: "Bella Salon",
			BotName:      "Bella",
		},
		CallerPhone: "+200",
		Now:         time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC),
	}
}

func TestSystemSingleBranch(t *testing.T) {
	t.Parallel()
	sys := baseContext()
	sys.Branch = &domain.Branch{ID: "branch-1", Name: "Downtown", Address: "1 Main St"}

	out, err := System(sys)
	if err != nil {
		t.Fatalf("System: %v", err)
	}
	for _, want := range []string{"Bella", "Bella Salon", "2026-09-15", "branch-1", "client-1", "+200"} {
		if !strings.Contains(out, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
	if strings.Contains(out, "AVAILABLE BRANCHES") {
		t.Error("single-branch prompt should not list branches")
	}
}

func TestSystemMultipleBranchesListed(t *testing.T) {
	t.Parallel()
	sys := baseContext()
	sys.Branches = []domain.Branch{
		{ID: "branch-1", Name: "Downtown"},
		{ID: "branch-2", Name: "Uptown"},
	}

	out, err := System(sys)
	if err != nil {
		t.Fatalf("System: %v", err)
	}
	if !strings.Contains(out, "AVAILABLE BRANCHES") {
		t.Fatal("expected the branch list block")
	}
	if !strings.Contains(out, "branch-2") {
		t.Fatal("expected every branch in the list")
	}
}

func TestSystemKnownCallerProfile(t *testing.T) {
	t.Parallel()
	sys := baseContext()
	sys.User = &domain.User{ID: "user-1", FullName: "Ana Diaz", IdentificationNumber: "091"}

	out, err := System(sys)
	if err != nil {
		t.Fatalf("System: %v", err)
	}
	if !strings.Contains(out, "user-1") || !strings.Contains(out, "Ana Diaz") {
		t.Fatal("expected the caller profile block")
	}
}

func TestSystemSummaryIncluded(t *testing.T) {
	t.Parallel()
	sys := baseContext()
	sys.Summary = "caller wants a haircut on Friday"

	out, err := System(sys)
	if err != nil {
		t.Fatalf("System: %v", err)
	}
	if !strings.Contains(out, "caller wants a haircut on Friday") {
		t.Fatal("expected the summary block")
	}
}

func TestSystemDefaultGreeting(t *testing.T) {
	t.Parallel()
	sys := baseContext()
	sys.Client.BotName = ""
	sys.Client.GreetingMessage = ""

	out, err := System(sys)
	if err != nil {
		t.Fatalf("System: %v", err)
	}
	if !strings.Contains(out, "the assistant of Bella Salon") {
		t.Fatal("expected the synthesized default greeting")
	}
}

func TestTranscriptSkipsUnknownRoles(t *testing.T) {
	t.Parallel()
	out := Transcript([]domain.Message{
		{Role: domain.RoleHuman, Content: "hi"},
		{Role: domain.RoleAssistant, Content: "hello"},
		{Role: "tool", Content: "raw payload"},
	})
	if !strings.Contains(out, "Caller: hi") || !strings.Contains(out, "Assistant: hello") {
		t.Fatalf("transcript = %q", out)
	}
	if strings.Contains(out, "raw payload") {
		t.Fatal("tool content must not reach the transcript")
	}
}

func TestSummaryPrompts(t *testing.T) {
	t.Parallel()
	created, err := SummaryCreate("Caller: hi\n")
	if err != nil {
		t.Fatalf("SummaryCreate: %v", err)
	}
	if !strings.Contains(created, "Caller: hi") {
		t.Fatal("create prompt missing transcript")
	}

	updated, err := SummaryUpdate("old summary", "Caller: more\n")
	if err != nil {
		t.Fatalf("SummaryUpdate: %v", err)
	}
	if !strings.Contains(updated, "old summary") || !strings.Contains(updated, "Caller: more") {
		t.Fatal("update prompt missing inputs")
	}
}
