package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"legalrag-backend/internal/app"
	"legalrag-backend/internal/model"
	"legalrag-backend/internal/transport/http/response"
)

type LegalHandler struct {
	legalService *app.LegalService
}

type UpsertCaseRequest struct {
	CaseID          string                 `json:"caseId" binding:"required"`
	CaseName        string                 `json:"caseName" binding:"required"`
	CaseNumber      string                 `json:"caseNumber" binding:"required"`
	CourtName       string                 `json:"courtName" binding:"required"`
	CaseType        string                 `json:"caseType" binding:"required"`
	DecisionDate    string                 `json:"decisionDate" binding:"required"`
	SubjectMatter   string                 `json:"subjectMatter" binding:"required"`
	LegalPrinciple  string                 `json:"legalPrinciple" binding:"required"`
	ReferencedLaws  string                 `json:"referencedLaws"`
	ReferencedCases string                 `json:"referencedCases"`
	Content         string                 `json:"content" binding:"required"`
	Metadata        map[string]interface{} `json:"metadata"`
}

type AutoParseRequest struct {
	LegalText          string                 `json:"legalText" binding:"required"`
	AdditionalMetadata map[string]interface{} `json:"additionalMetadata"`
}

type QuestionRequest struct {
	Question string   `json:"question" binding:"required"`
	TopK     int      `json:"topK"`
	MinScore *float64 `json:"minScore"`
}

type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"topK"`
}

type BatchTextItem struct {
	Text     string                 `json:"text" binding:"required"`
	Metadata map[string]interface{} `json:"metadata"`
}

// BatchOptionsRequest distinguishes an omitted delay (default gap) from an
// explicit zero (no gap); the value is in milliseconds.
type BatchOptionsRequest struct {
	BatchSize int  `json:"batchSize"`
	Delay     *int `json:"delay"`
}

type BatchUpsertRequest struct {
	Data    []BatchTextItem      `json:"data" binding:"required,min=1,dive"`
	Options *BatchOptionsRequest `json:"options"`
}

func NewLegalHandler(legalService *app.LegalService) *LegalHandler {
	return &LegalHandler{legalService: legalService}
}

func (h *LegalHandler) Upsert(c *gin.Context) {
	var req UpsertCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	vectorID, err := h.legalService.UpsertCase(c.Request.Context(), model.CaseRecord{
		CaseID:          req.CaseID,
		CaseName:        req.CaseName,
		CaseNumber:      req.CaseNumber,
		CourtName:       req.CourtName,
		CaseType:        req.CaseType,
		DecisionDate:    req.DecisionDate,
		SubjectMatter:   req.SubjectMatter,
		LegalPrinciple:  req.LegalPrinciple,
		ReferencedLaws:  req.ReferencedLaws,
		ReferencedCases: req.ReferencedCases,
		Content:         req.Content,
		Metadata:        req.Metadata,
	})
	if err != nil {
		writeLegalError(c, err, "법률 데이터 저장에 실패했습니다.")
		return
	}

	response.OK(c, vectorID)
}

func (h *LegalHandler) AutoParse(c *gin.Context) {
	var req AutoParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.legalService.UpsertCaseFromText(c.Request.Context(), req.LegalText, req.AdditionalMetadata)
	if err != nil {
		writeLegalError(c, err, "판례 자동 파싱에 실패했습니다.")
		return
	}

	response.OK(c, gin.H{
		"vectorId":   result.VectorID,
		"message":    "텍스트가 성공적으로 분석되어 저장되었습니다.",
		"parsedData": result.ParsedData,
	})
}

func (h *LegalHandler) Question(c *gin.Context) {
	var req QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.legalService.AnswerQuestion(c.Request.Context(), app.AnswerInput{
		Question: req.Question,
		TopK:     req.TopK,
		MinScore: req.MinScore,
	})
	if err != nil {
		writeLegalError(c, err, "질문 답변 생성에 실패했습니다.")
		return
	}

	response.OK(c, gin.H{
		"answer": result.Answer,
		"searchInfo": gin.H{
			"query":        result.SearchQuery,
			"filters":      result.Filters,
			"totalResults": result.TotalResults,
		},
		"relatedCases": result.SearchResults,
	})
}

func (h *LegalHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	results, err := h.legalService.SearchCases(c.Request.Context(), req.Query, req.TopK)
	if err != nil {
		writeLegalError(c, err, "판례 검색에 실패했습니다.")
		return
	}

	response.OK(c, gin.H{
		"totalResults":  len(results),
		"searchResults": results,
	})
}

func (h *LegalHandler) BatchUpsert(c *gin.Context) {
	var req BatchUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	items := make([]app.BatchItem, len(req.Data))
	for i, item := range req.Data {
		items[i] = app.BatchItem{LegalText: item.Text, Metadata: item.Metadata}
	}

	var opts app.BatchOptions
	if req.Options != nil {
		opts.BatchSize = req.Options.BatchSize
		if req.Options.Delay != nil {
			d := time.Duration(*req.Options.Delay) * time.Millisecond
			opts.Delay = &d
		}
	}

	result, err := h.legalService.BatchUpsertFromText(c.Request.Context(), items, opts)
	if err != nil {
		writeLegalError(c, err, "일괄 저장에 실패했습니다.")
		return
	}

	response.OK(c, result)
}

func (h *LegalHandler) Delete(c *gin.Context) {
	vectorID := c.Param("vectorId")

	if err := h.legalService.DeleteCase(c.Request.Context(), vectorID); err != nil {
		writeLegalError(c, err, "법률 데이터 삭제에 실패했습니다.")
		return
	}

	response.OK(c, gin.H{"deletedVectorId": vectorID})
}

// writeLegalError maps the service failure kinds to HTTP exactly once.
func writeLegalError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrServiceUnavailable):
		response.Error(c, http.StatusServiceUnavailable, response.CodeServiceUnavailable, err.Error())
	case errors.Is(err, app.ErrParseValidation):
		response.Error(c, http.StatusUnprocessableEntity, response.CodeParseValidation, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
