package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"legalrag-backend/internal/model"
)

// ErrFieldMissing marks a structuring result that passed JSON parsing but is
// missing one of the required case fields.
var ErrFieldMissing = errors.New("required case field missing")

// requiredCaseFields in validation order; the first absent one is reported.
var requiredCaseFields = []string{
	"caseId",
	"caseName",
	"caseNumber",
	"courtName",
	"caseType",
	"decisionDate",
	"subjectMatter",
	"legalPrinciple",
	"content",
}

type completionClient interface {
	Complete(ctx context.Context, cfg ChatConfig, messages []ChatMessage) (string, error)
	CompleteJSON(ctx context.Context, cfg ChatConfig, messages []ChatMessage) (string, error)
}

// CaseStructurer turns free legal text into a structured case record and free
// questions into search instructions, each with one LLM call.
type CaseStructurer struct {
	llm   completionClient
	cfg   ChatConfig
	ready bool
}

func NewCaseStructurer(cfg ChatConfig) *CaseStructurer {
	s := &CaseStructurer{
		llm:   NewOpenAICompatibleClient(),
		cfg:   cfg,
		ready: strings.TrimSpace(cfg.APIKey) != "",
	}
	if !s.ready {
		log.Printf("OPENAI_API_KEY is not set, case structuring will be unavailable")
	}
	return s
}

func (s *CaseStructurer) Ready() bool {
	return s.ready
}

const parseCasePrompt = `당신은 한국 판례 데이터를 구조화하는 도우미입니다.
입력된 판례 텍스트(또는 JSON)를 분석하여 아래 키를 가진 JSON 객체 하나만 출력하세요.
- caseId: 판례일련번호 (문자열)
- caseName: 사건명
- caseNumber: 사건번호
- courtName: 법원명
- caseType: 사건종류명 (예: 민사, 형사, 행정)
- decisionDate: 선고일자 (YYYY-MM-DD)
- subjectMatter: 판시사항
- legalPrinciple: 판결요지
- referencedLaws: 참조조문 (없으면 생략)
- referencedCases: 참조판례 (없으면 생략)
- content: 판례 전문
JSON 외의 다른 텍스트는 출력하지 마세요.`

// ParseCaseText extracts a structured CaseRecord from free legal text.
// The nine required fields must all be present and non-empty; the first
// missing one is named in the returned error.
func (s *CaseStructurer) ParseCaseText(ctx context.Context, legalText string) (*model.CaseRecord, error) {
	if !s.ready {
		return nil, ErrNotInitialized
	}

	raw, err := s.llm.CompleteJSON(ctx, s.cfg, []ChatMessage{
		{Role: "system", Content: parseCasePrompt},
		{Role: "user", Content: legalText},
	})
	if err != nil {
		return nil, fmt.Errorf("parse case llm call failed: %w", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(stripJSONFences(raw)), &fields); err != nil {
		return nil, fmt.Errorf("parse case response is not valid json: %w", err)
	}

	for _, name := range requiredCaseFields {
		if asString(fields[name]) == "" {
			return nil, fmt.Errorf("%w: %s", ErrFieldMissing, name)
		}
	}

	return &model.CaseRecord{
		CaseID:          asString(fields["caseId"]),
		CaseName:        asString(fields["caseName"]),
		CaseNumber:      asString(fields["caseNumber"]),
		CourtName:       asString(fields["courtName"]),
		CaseType:        asString(fields["caseType"]),
		DecisionDate:    asString(fields["decisionDate"]),
		SubjectMatter:   asString(fields["subjectMatter"]),
		LegalPrinciple:  asString(fields["legalPrinciple"]),
		ReferencedLaws:  asString(fields["referencedLaws"]),
		ReferencedCases: asString(fields["referencedCases"]),
		Content:         asString(fields["content"]),
	}, nil
}

const analyzeQuestionPrompt = `당신은 법률 질문을 분석하여 판례 검색 조건을 만드는 도우미입니다.
입력된 질문을 분석하여 아래 형태의 JSON 객체 하나만 출력하세요.
{
  "searchQuery": "벡터 검색에 사용할 핵심 검색 문장",
  "filters": {
    "courtName": "특정 법원이 언급된 경우에만 (예: 대법원)",
    "caseType": "사건 종류가 분명한 경우에만 (예: 민사)",
    "dateRange": {"from": "YYYY-MM-DD", "to": "YYYY-MM-DD"},
    "keywords": ["핵심", "키워드"]
  },
  "intent": "질문 의도 (예: precedent_lookup, legal_interpretation)",
  "legalArea": "법률 분야 (예: 민법, 형법)"
}
확실하지 않은 filters 항목은 생략하세요. JSON 외의 다른 텍스트는 출력하지 마세요.`

// AnalyzeQuestion extracts a search query and optional structured filter hints
// from a free-form legal question. An empty searchQuery from the model falls
// back to the question itself.
func (s *CaseStructurer) AnalyzeQuestion(ctx context.Context, question string) (*model.QuestionAnalysis, error) {
	if !s.ready {
		return nil, ErrNotInitialized
	}

	raw, err := s.llm.CompleteJSON(ctx, s.cfg, []ChatMessage{
		{Role: "system", Content: analyzeQuestionPrompt},
		{Role: "user", Content: question},
	})
	if err != nil {
		return nil, fmt.Errorf("analyze question llm call failed: %w", err)
	}

	var analysis model.QuestionAnalysis
	if err := json.Unmarshal([]byte(stripJSONFences(raw)), &analysis); err != nil {
		return nil, fmt.Errorf("question analysis response is not valid json: %w", err)
	}
	if strings.TrimSpace(analysis.SearchQuery) == "" {
		analysis.SearchQuery = question
	}
	return &analysis, nil
}

// stripJSONFences removes markdown code fences some models wrap around JSON.
func stripJSONFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

// asString tolerates the model emitting numbers where strings are expected
// (the original corpus stores case ids as numbers).
func asString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}
