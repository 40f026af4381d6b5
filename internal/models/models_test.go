package models

import "testing"

func TestCanTransitionLinearProgression(t *testing.T) {
	order := []JobStatus{
		StatusPending,
		StatusProcessing,
		StatusParsingInProgress,
		StatusAnalysisInProgress,
		StatusComplete,
	}
	for i := 0; i < len(order)-1; i++ {
		if !CanTransition(order[i], order[i+1]) {
			t.Errorf("expected %s -> %s to be legal", order[i], order[i+1])
		}
	}
	// Skipping a stage is not.
	if CanTransition(StatusPending, StatusParsingInProgress) {
		t.Error("Pending -> ParsingInProgress must be rejected")
	}
	if CanTransition(StatusProcessing, StatusComplete) {
		t.Error("Processing -> Complete must be rejected")
	}
}

func TestCanTransitionIdempotentRewrite(t *testing.T) {
	for _, s := range []JobStatus{StatusProcessing, StatusParsingInProgress, StatusAnalysisInProgress} {
		if !CanTransition(s, s) {
			t.Errorf("expected %s -> %s to be legal", s, s)
		}
	}
}

func TestCanTransitionFailedFromAnyNonTerminal(t *testing.T) {
	for _, s := range []JobStatus{StatusPending, StatusProcessing, StatusParsingInProgress, StatusAnalysisInProgress} {
		if !CanTransition(s, StatusFailed) {
			t.Errorf("expected %s -> Failed to be legal", s)
		}
	}
}

func TestTerminalStatesAreFrozen(t *testing.T) {
	for _, from := range []JobStatus{StatusComplete, StatusFailed} {
		for _, to := range []JobStatus{StatusPending, StatusProcessing, StatusComplete, StatusFailed} {
			if CanTransition(from, to) {
				t.Errorf("expected %s -> %s to be rejected", from, to)
			}
		}
	}
}

func TestBackwardMovesAreRejected(t *testing.T) {
	if CanTransition(StatusAnalysisInProgress, StatusProcessing) {
		t.Error("AnalysisInProgress -> Processing must be rejected")
	}
	if CanTransition(StatusParsingInProgress, StatusPending) {
		t.Error("ParsingInProgress -> Pending must be rejected")
	}
}

func TestKeyLayout(t *testing.T) {
	cases := []struct {
		got, want string
	}{
		{DocumentKey("j1", "cv.docx"), "documents/j1/cv.docx"},
		{ParseResultKey("j1"), "parsed/j1/parse-result.json"},
		{ImageKey("j1", "docx_0", "png"), "images/j1/docx_0.png"},
		{TemplateResultKey("j1"), "results/j1/template.json"},
		{ContextResultKey("j1"), "results/j1/context.json"},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("expected %q, got %q", c.want, c.got)
		}
	}
}
