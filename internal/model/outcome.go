package model

// OutcomeResult is the tagged result of extracting a structured outcome
// from an agent's free text. Exactly one of the two cases is populated;
// check Success to discriminate.
type OutcomeResult struct {
	Success bool

	// Success case.
	Outcome            string
	OtherDescription   string // only meaningful when Outcome == "other"
	HasOtherDescription bool

	// Failure case.
	Error              string
	MalformedCandidate string // the raw candidate line, when one was found but did not parse; empty otherwise
}

func SuccessOutcome(outcome, otherDescription string, hasOtherDescription bool) OutcomeResult {
	return OutcomeResult{
		Success:             true,
		Outcome:             outcome,
		OtherDescription:    otherDescription,
		HasOtherDescription: hasOtherDescription,
	}
}

func FailureOutcome(errMsg, malformedCandidate string) OutcomeResult {
	return OutcomeResult{
		Success:            false,
		Error:              errMsg,
		MalformedCandidate: malformedCandidate,
	}
}

// AgentResponse is what a Backend returns for a single sendPrompt call.
type AgentResponse struct {
	Success      bool
	ResponseText string
	Error        string
	SessionID    string
	InputTokens  *int
	OutputTokens *int
	CostUSD      *float64
}
