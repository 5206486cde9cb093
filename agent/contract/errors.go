package contract

import "errors"

var (
	// ErrUnknownTenant means the inbound destination number resolves to no
	// active client. Fatal to the turn.
	ErrUnknownTenant = errors.New("unknown tenant")

	// ErrToolLoopExceeded flags a turn that hit the tool-round cap while the
	// assistant was still requesting operations. The turn completes with its
	// best-effort reply and the escalation flag set.
	ErrToolLoopExceeded = errors.New("tool loop exceeded")

	// ErrSummarizationFailed marks a summarizer failure. Logged only; it
	// never aborts the turn.
	ErrSummarizationFailed = errors.New("summarization failed")

	ErrModelInvoke = errors.New("model invoke failed")
)
