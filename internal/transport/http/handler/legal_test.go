package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/gin-gonic/gin"

	"legalrag-backend/internal/ai"
	"legalrag-backend/internal/app"
	"legalrag-backend/internal/model"
	"legalrag-backend/internal/pinecone"
)

type stubEmbedder struct {
	err error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []float32{0.1, 0.2}, nil
}

type stubStore struct {
	matches []pinecone.Match
	upserts int
}

func (s *stubStore) Upsert(ctx context.Context, vec pinecone.Vector) error {
	s.upserts++
	return nil
}

func (s *stubStore) Query(ctx context.Context, req pinecone.QueryRequest) ([]pinecone.Match, error) {
	return s.matches, nil
}

func (s *stubStore) Delete(ctx context.Context, id string) error {
	return nil
}

type stubStructurer struct{}

func (s *stubStructurer) ParseCaseText(ctx context.Context, legalText string) (*model.CaseRecord, error) {
	return &model.CaseRecord{
		CaseID:         "228541",
		CaseName:       "소유권이전등기말소",
		CaseNumber:     "2015다12345",
		CourtName:      "대법원",
		CaseType:       "민사",
		DecisionDate:   "2015-03-26",
		SubjectMatter:  "저당권 설정의 효력",
		LegalPrinciple: "저당권은 등기한 때에 효력이 생긴다.",
		Content:        "주문. 상고를 기각한다.",
	}, nil
}

func (s *stubStructurer) AnalyzeQuestion(ctx context.Context, question string) (*model.QuestionAnalysis, error) {
	return &model.QuestionAnalysis{SearchQuery: "저당권 효력 발생 시기"}, nil
}

type stubSynthesizer struct{}

func (s *stubSynthesizer) Synthesize(ctx context.Context, question string, matches []ai.MatchContext) (string, error) {
	return "저당권은 등기 시점에 효력이 발생합니다.", nil
}

func newTestRouter(embedder *stubEmbedder, store *stubStore) *gin.Engine {
	gin.SetMode(gin.TestMode)

	svc := app.NewLegalService(embedder, store, &stubStructurer{}, &stubSynthesizer{}, nil, nil, app.SearchSettings{
		DefaultTopK:     5,
		MinScore:        0.7,
		OverfetchFactor: 2,
	})
	h := NewLegalHandler(svc)

	router := gin.New()
	legal := router.Group("/api/v1/legal")
	legal.POST("", h.Upsert)
	legal.POST("/auto-parse", h.AutoParse)
	legal.POST("/question", h.Question)
	legal.POST("/batch", h.BatchUpsert)
	legal.DELETE("/:vectorId", h.Delete)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var payload map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
	}
	return rec, payload
}

const upsertBody = `{
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

func TestUpsertResultIsVectorIDString(t *testing.T) {
	router := newTestRouter(&stubEmbedder{}, &stubStore{})

	rec, payload := doJSON(t, router, http.MethodPost, "/api/v1/legal", upsertBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if payload["status"] != float64(200) || payload["message"] != "성공" {
		t.Errorf("envelope = %v", payload)
	}

	result, ok := payload["result"].(string)
	if !ok {
		t.Fatalf("result must be the vector id string, got %T: %v", payload["result"], payload["result"])
	}
	if !regexp.MustCompile(`^legal_228541_\d+$`).MatchString(result) {
		t.Errorf("result = %q", result)
	}
}

func TestAutoParseResultShape(t *testing.T) {
	router := newTestRouter(&stubEmbedder{}, &stubStore{})

	rec, payload := doJSON(t, router, http.MethodPost, "/api/v1/legal/auto-parse",
		`{"legalText": "판례 본문", "additionalMetadata": {"uploadedBy": "admin"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	result, _ := payload["result"].(map[string]interface{})
	if result == nil {
		t.Fatalf("result = %v", payload["result"])
	}
	if result["message"] != "텍스트가 성공적으로 분석되어 저장되었습니다." {
		t.Errorf("message = %v", result["message"])
	}
	if _, ok := result["vectorId"].(string); !ok {
		t.Errorf("vectorId = %v", result["vectorId"])
	}
	parsed, _ := result["parsedData"].(map[string]interface{})
	if parsed == nil || parsed["caseId"] != "228541" {
		t.Errorf("parsedData = %v", result["parsedData"])
	}
}

func TestQuestionResultShape(t *testing.T) {
	store := &stubStore{matches: []pinecone.Match{
		{ID: "legal_228541_1700000000000", Score: 0.9, Metadata: map[string]interface{}{
			"caseId": "228541", "caseName": "소유권이전등기말소", "dataType": "legal_case",
		}},
	}}
	router := newTestRouter(&stubEmbedder{}, store)

	rec, payload := doJSON(t, router, http.MethodPost, "/api/v1/legal/question",
		`{"question": "저당권 설정 시 효력발생 시기는?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	result, _ := payload["result"].(map[string]interface{})
	if result == nil {
		t.Fatalf("result = %v", payload["result"])
	}
	if result["answer"] != "저당권은 등기 시점에 효력이 발생합니다." {
		t.Errorf("answer = %v", result["answer"])
	}

	searchInfo, _ := result["searchInfo"].(map[string]interface{})
	if searchInfo == nil {
		t.Fatal("result must nest searchInfo")
	}
	if searchInfo["query"] != "저당권 효력 발생 시기" {
		t.Errorf("searchInfo.query = %v", searchInfo["query"])
	}
	if searchInfo["totalResults"] != float64(1) {
		t.Errorf("searchInfo.totalResults = %v", searchInfo["totalResults"])
	}
	if _, ok := searchInfo["filters"]; !ok {
		t.Error("searchInfo must carry filters")
	}

	related, _ := result["relatedCases"].([]interface{})
	if len(related) != 1 {
		t.Fatalf("relatedCases = %v", result["relatedCases"])
	}
	first, _ := related[0].(map[string]interface{})
	if first["vectorId"] != "legal_228541_1700000000000" {
		t.Errorf("relatedCases[0] = %v", first)
	}

	if _, ok := result["searchResults"]; ok {
		t.Error("flat searchResults must not leak into the response")
	}
}

func TestBatchRequestShape(t *testing.T) {
	router := newTestRouter(&stubEmbedder{}, &stubStore{})

	rec, payload := doJSON(t, router, http.MethodPost, "/api/v1/legal/batch",
		`{"data": [{"text": "판례 본문"}], "options": {"batchSize": 1, "delay": 0}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	result, _ := payload["result"].(map[string]interface{})
	if result == nil || result["success"] != float64(1) || result["failed"] != float64(0) {
		t.Errorf("result = %v", payload["result"])
	}

	rec, payload = doJSON(t, router, http.MethodPost, "/api/v1/legal/batch",
		`{"items": [{"legalText": "판례 본문"}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("a body without data must be rejected, status = %d", rec.Code)
	}
	if payload["code"] != float64(40000001) {
		t.Errorf("error code = %v", payload["code"])
	}
}

func TestUpsertServiceUnavailableEnvelope(t *testing.T) {
	router := newTestRouter(&stubEmbedder{err: ai.ErrNotInitialized}, &stubStore{})

	rec, payload := doJSON(t, router, http.MethodPost, "/api/v1/legal", upsertBody)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if payload["code"] != float64(50300001) {
		t.Errorf("error code = %v, want 50300001", payload["code"])
	}
	if _, ok := payload["timestamp"].(string); !ok {
		t.Error("error envelope must carry a timestamp")
	}
}
