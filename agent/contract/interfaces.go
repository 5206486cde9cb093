package contract

import "context"

// Assistant is the external reasoning capability. Invoke produces one reply
// that may carry operation requests; Complete is plain text-in text-out, used
// for summarization.
type Assistant interface {
	Invoke(ctx context.Context, system string, messages []TurnMessage, ops []OpSpec, cfg TurnConfig) (AssistantReply, error)
	Complete(ctx context.Context, prompt string, cfg TurnConfig) (string, error)
}

// OpExecutor runs one batch of operation requests and returns one result per
// request, in request order.
type OpExecutor interface {
	Execute(ctx context.Context, reqs []OpRequest, env OpEnv) []OpResult
}

// OpEnv is the per-turn environment operations run against. SessionID lets
// user registration attach the resolved user to the caller's session.
type OpEnv struct {
	System    SystemContext
	Config    TurnConfig
	SessionID string
}
