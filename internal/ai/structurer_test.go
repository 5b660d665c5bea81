package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeCompletion struct {
	response string
	err      error
	calls    int
}

func (f *fakeCompletion) Complete(ctx context.Context, cfg ChatConfig, messages []ChatMessage) (string, error) {
	f.calls++
	return f.response, f.err
}

func (f *fakeCompletion) CompleteJSON(ctx context.Context, cfg ChatConfig, messages []ChatMessage) (string, error) {
	f.calls++
	return f.response, f.err
}

const validCaseJSON = `{
	"caseId": "228541",
	"caseName": "소유권이전등기말소",
	"caseNumber": "2015다12345",
	"courtName": "대법원",
	"caseType": "민사",
	"decisionDate": "2015-03-26",
	"subjectMatter": "저당권 설정의 효력",
	"legalPrinciple": "저당권은 등기한 때에 효력이 생긴다.",
	"content": "주문. 상고를 기각한다."
}`

func newTestStructurer(llm completionClient) *CaseStructurer {
	s := NewCaseStructurer(ChatConfig{APIKey: "test-key", Model: "test-model"})
	s.llm = llm
	return s
}

func TestParseCaseText(t *testing.T) {
	s := newTestStructurer(&fakeCompletion{response: validCaseJSON})

	record, err := s.ParseCaseText(context.Background(), "판례 전문")
	if err != nil {
		t.Fatalf("ParseCaseText returned error: %v", err)
	}
	if record.CaseID != "228541" || record.CourtName != "대법원" {
		t.Errorf("record = %+v", record)
	}
}

func TestParseCaseTextNamesFirstMissingField(t *testing.T) {
	missing := strings.Replace(validCaseJSON, `"caseType": "민사",`, "", 1)
	s := newTestStructurer(&fakeCompletion{response: missing})

	_, err := s.ParseCaseText(context.Background(), "판례 전문")
	if !errors.Is(err, ErrFieldMissing) {
		t.Fatalf("expected ErrFieldMissing, got %v", err)
	}
	if !strings.Contains(err.Error(), "caseType") {
		t.Errorf("error must name the missing field, got %q", err)
	}
}

func TestParseCaseTextStripsCodeFences(t *testing.T) {
	fenced := "```json\n" + validCaseJSON + "\n```"
	s := newTestStructurer(&fakeCompletion{response: fenced})

	record, err := s.ParseCaseText(context.Background(), "판례 전문")
	if err != nil {
		t.Fatalf("ParseCaseText returned error: %v", err)
	}
	if record.CaseName != "소유권이전등기말소" {
		t.Errorf("CaseName = %q", record.CaseName)
	}
}

func TestParseCaseTextToleratesNumericCaseID(t *testing.T) {
	numeric := strings.Replace(validCaseJSON, `"caseId": "228541"`, `"caseId": 228541`, 1)
	s := newTestStructurer(&fakeCompletion{response: numeric})

	record, err := s.ParseCaseText(context.Background(), "판례 전문")
	if err != nil {
		t.Fatalf("ParseCaseText returned error: %v", err)
	}
	if record.CaseID != "228541" {
		t.Errorf("CaseID = %q, numeric ids must be stringified", record.CaseID)
	}
}

func TestParseCaseTextRejectsMalformedJSON(t *testing.T) {
	s := newTestStructurer(&fakeCompletion{response: "죄송합니다, 파싱할 수 없습니다."})

	if _, err := s.ParseCaseText(context.Background(), "판례 전문"); err == nil {
		t.Fatal("expected error for non-JSON response")
	}
}

func TestParseCaseTextNotInitialized(t *testing.T) {
	llm := &fakeCompletion{response: validCaseJSON}
	s := NewCaseStructurer(ChatConfig{})
	s.llm = llm

	if _, err := s.ParseCaseText(context.Background(), "판례 전문"); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if llm.calls != 0 {
		t.Error("no model call may happen without an API key")
	}
}

func TestAnalyzeQuestion(t *testing.T) {
	s := newTestStructurer(&fakeCompletion{response: `{
		"searchQuery": "저당권 효력 발생 시기",
		"filters": {"courtName": "대법원", "dateRange": {"from": "2010-01-01", "to": "2020-12-31"}},
		"intent": "legal_interpretation",
		"legalArea": "민법"
	}`})

	analysis, err := s.AnalyzeQuestion(context.Background(), "저당권 설정 시 효력발생 시기는?")
	if err != nil {
		t.Fatalf("AnalyzeQuestion returned error: %v", err)
	}
	if analysis.SearchQuery != "저당권 효력 발생 시기" {
		t.Errorf("SearchQuery = %q", analysis.SearchQuery)
	}
	if analysis.Filters.CourtName != "대법원" {
		t.Errorf("CourtName = %q", analysis.Filters.CourtName)
	}
	if analysis.Filters.DateRange == nil || analysis.Filters.DateRange.From != "2010-01-01" {
		t.Errorf("DateRange = %+v", analysis.Filters.DateRange)
	}
}

func TestAnalyzeQuestionFallsBackToRawQuestion(t *testing.T) {
	s := newTestStructurer(&fakeCompletion{response: `{"searchQuery": "  ", "intent": "precedent_lookup"}`})

	analysis, err := s.AnalyzeQuestion(context.Background(), "저당권 관련 판례 알려줘")
	if err != nil {
		t.Fatalf("AnalyzeQuestion returned error: %v", err)
	}
	if analysis.SearchQuery != "저당권 관련 판례 알려줘" {
		t.Errorf("blank searchQuery must fall back to the question, got %q", analysis.SearchQuery)
	}
}
