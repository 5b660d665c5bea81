package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func newTestSynthesizer(llm completionClient) *AnswerSynthesizer {
	s := NewAnswerSynthesizer(ChatConfig{APIKey: "test-key", Model: "test-model"})
	s.llm = llm
	return s
}

func TestSynthesizeNoMatchesShortCircuits(t *testing.T) {
	llm := &fakeCompletion{response: "unused"}
	s := newTestSynthesizer(llm)

	answer, err := s.Synthesize(context.Background(), "저당권 질문", nil)
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if answer != NoResultsMessage {
		t.Errorf("answer = %q, want the fixed no-results message", answer)
	}
	if llm.calls != 0 {
		t.Errorf("model called %d times, want 0 for zero matches", llm.calls)
	}
}

func TestSynthesizeNoMatchesBeatsReadinessCheck(t *testing.T) {
	s := NewAnswerSynthesizer(ChatConfig{})

	answer, err := s.Synthesize(context.Background(), "저당권 질문", nil)
	if err != nil {
		t.Fatalf("zero matches must answer even without an API key, got %v", err)
	}
	if answer != NoResultsMessage {
		t.Errorf("answer = %q", answer)
	}
}

func TestSynthesizeNotInitialized(t *testing.T) {
	s := NewAnswerSynthesizer(ChatConfig{})

	matches := []MatchContext{{Metadata: map[string]interface{}{"caseName": "사건"}, Score: 0.9}}
	if _, err := s.Synthesize(context.Background(), "질문", matches); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestFormatMatch(t *testing.T) {
	block := formatMatch(1, MatchContext{
		Score: 0.9,
		Metadata: map[string]interface{}{
			"caseName":       "소유권이전등기말소",
			"caseNumber":     "2015다12345",
			"courtName":      "대법원",
			"referencedLaws": "민법 제186조",
		},
	})

	for _, want := range []string{
		"[판례 1] (유사도 90.0%)",
		"사건명: 소유권이전등기말소",
		"사건번호: 2015다12345",
		"참조조문: 민법 제186조",
	} {
		if !strings.Contains(block, want) {
			t.Errorf("block missing %q:\n%s", want, block)
		}
	}
	if strings.Contains(block, "참조판례") {
		t.Error("absent referencedCases must be omitted from the block")
	}
}

func TestSynthesizeRejectsEmptyAnswer(t *testing.T) {
	s := newTestSynthesizer(&fakeCompletion{response: "   "})

	matches := []MatchContext{{Score: 0.8}}
	if _, err := s.Synthesize(context.Background(), "질문", matches); err == nil {
		t.Fatal("expected error for blank model answer")
	}
}
