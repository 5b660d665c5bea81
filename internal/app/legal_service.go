package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"legalrag-backend/internal/ai"
	"legalrag-backend/internal/model"
	"legalrag-backend/internal/pinecone"
)

const (
	dataTypeLegalCase = "legal_case"

	defaultBatchSize  = 10
	defaultBatchDelay = 1000 * time.Millisecond

	// Fixed answer used when no match survives the score threshold; the
	// synthesizer is never called in that path.
	noMatchAnswer = "질문과 관련된 판례를 찾을 수 없습니다. 질문을 조금 더 구체적으로 작성해 주세요."
)

// Embedder converts text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStore is the hosted vector database surface the orchestrators use.
type VectorStore interface {
	Upsert(ctx context.Context, vec pinecone.Vector) error
	Query(ctx context.Context, req pinecone.QueryRequest) ([]pinecone.Match, error)
	Delete(ctx context.Context, id string) error
}

// CaseStructurer extracts structure from free text with LLM calls.
type CaseStructurer interface {
	ParseCaseText(ctx context.Context, legalText string) (*model.CaseRecord, error)
	AnalyzeQuestion(ctx context.Context, question string) (*model.QuestionAnalysis, error)
}

// AnswerSynthesizer turns retrieved matches into a natural-language answer.
type AnswerSynthesizer interface {
	Synthesize(ctx context.Context, question string, matches []ai.MatchContext) (string, error)
}

// AnswerCache is an optional read-through cache for answered questions.
// Failures are never fatal.
type AnswerCache interface {
	Get(ctx context.Context, question string, topK int, minScore float64) (*QuestionAnswerResult, bool, error)
	Set(ctx context.Context, question string, topK int, minScore float64, result *QuestionAnswerResult) error
}

// QuestionLogPublisher enqueues audit records of answered questions.
type QuestionLogPublisher interface {
	Publish(ctx context.Context, entry model.QuestionLog) error
}

// SearchSettings are the retrieval tunables resolved from config.
type SearchSettings struct {
	DefaultTopK     int
	MinScore        float64
	OverfetchFactor int
}

// LegalService orchestrates the case upsert and question answering pipelines.
// Every pipeline is a strictly ordered sequence of adapter calls; no state is
// shared between requests.
type LegalService struct {
	embedder    Embedder
	store       VectorStore
	structurer  CaseStructurer
	synthesizer AnswerSynthesizer
	cache       AnswerCache          // nil when redis is unavailable
	publisher   QuestionLogPublisher // nil when rabbitmq is unavailable
	settings    SearchSettings
}

func NewLegalService(
	embedder Embedder,
	store VectorStore,
	structurer CaseStructurer,
	synthesizer AnswerSynthesizer,
	cache AnswerCache,
	publisher QuestionLogPublisher,
	settings SearchSettings,
) *LegalService {
	if settings.DefaultTopK <= 0 {
		settings.DefaultTopK = 5
	}
	if settings.MinScore <= 0 {
		settings.MinScore = 0.7
	}
	if settings.OverfetchFactor <= 0 {
		settings.OverfetchFactor = 2
	}
	return &LegalService{
		embedder:    embedder,
		store:       store,
		structurer:  structurer,
		synthesizer: synthesizer,
		cache:       cache,
		publisher:   publisher,
		settings:    settings,
	}
}

// UpsertCase embeds the case's searchable text and stores vector plus
// metadata. Returns the generated vector id `legal_<caseId>_<epochMillis>`.
func (s *LegalService) UpsertCase(ctx context.Context, record model.CaseRecord) (string, error) {
	if strings.TrimSpace(record.CaseID) == "" || strings.TrimSpace(record.Content) == "" {
		return "", ErrInvalidInput
	}

	text := buildSearchableText(record)
	embedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return "", s.failWith(ErrUpsertFailed, "embed case text", err)
	}

	vectorID := fmt.Sprintf("legal_%s_%d", record.CaseID, time.Now().UnixMilli())
	if err := s.store.Upsert(ctx, pinecone.Vector{
		ID:       vectorID,
		Values:   embedding,
		Metadata: buildCaseMetadata(record),
	}); err != nil {
		return "", s.failWith(ErrUpsertFailed, "upsert case vector", err)
	}

	log.Printf("upserted legal case %s as %s", record.CaseID, vectorID)
	return vectorID, nil
}

// AutoParseResult carries the stored vector id together with the structured
// record the model extracted, so callers can inspect what was parsed.
type AutoParseResult struct {
	VectorID   string            `json:"vectorId"`
	ParsedData *model.CaseRecord `json:"parsedData"`
}

// UpsertCaseFromText parses free legal text into a CaseRecord and upserts it.
// Caller-supplied metadata keys win over the generated provenance keys.
func (s *LegalService) UpsertCaseFromText(ctx context.Context, legalText string, additionalMetadata map[string]interface{}) (*AutoParseResult, error) {
	if strings.TrimSpace(legalText) == "" {
		return nil, ErrInvalidInput
	}

	record, err := s.structurer.ParseCaseText(ctx, legalText)
	if err != nil {
		return nil, s.failWith(ErrUpsertFailed, "parse legal text", err)
	}

	metadata := map[string]interface{}{
		"source":             "auto_parsed",
		"parsedAt":           time.Now().Format(time.RFC3339),
		"originalTextLength": utf8.RuneCountInString(legalText),
	}
	for k, v := range additionalMetadata {
		metadata[k] = v
	}
	record.Metadata = metadata

	vectorID, err := s.UpsertCase(ctx, *record)
	if err != nil {
		return nil, err
	}
	return &AutoParseResult{VectorID: vectorID, ParsedData: record}, nil
}

// CaseSummary is the display projection of one retrieved case.
type CaseSummary struct {
	VectorID      string  `json:"vectorId"`
	CaseID        string  `json:"caseId"`
	CaseName      string  `json:"caseName"`
	CourtName     string  `json:"courtName"`
	CaseType      string  `json:"caseType"`
	DecisionDate  string  `json:"decisionDate"`
	Score         float64 `json:"score"`
	SubjectMatter string  `json:"subjectMatter"`
}

// AnswerInput is one question-answering request. A nil MinScore or
// non-positive TopK falls back to the configured defaults.
type AnswerInput struct {
	Question string
	TopK     int
	MinScore *float64
}

// QuestionAnswerResult is the combined payload of one answered question.
type QuestionAnswerResult struct {
	Answer        string                `json:"answer"`
	SearchQuery   string                `json:"searchQuery"`
	Filters       model.AnalysisFilters `json:"filters"`
	Intent        string                `json:"intent,omitempty"`
	LegalArea     string                `json:"legalArea,omitempty"`
	TotalResults  int                   `json:"totalResults"`
	SearchResults []CaseSummary         `json:"searchResults"`
}

// AnswerQuestion runs the full pipeline: analyze question, embed the derived
// search query, filtered vector query with over-fetch, local score threshold,
// then answer synthesis over the survivors.
func (s *LegalService) AnswerQuestion(ctx context.Context, input AnswerInput) (*QuestionAnswerResult, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, ErrInvalidInput
	}
	topK := input.TopK
	if topK <= 0 {
		topK = s.settings.DefaultTopK
	}
	minScore := s.settings.MinScore
	if input.MinScore != nil {
		minScore = *input.MinScore
	}

	if s.cache != nil {
		if cached, hit, err := s.cache.Get(ctx, question, topK, minScore); err == nil && hit {
			return cached, nil
		}
	}

	analysis, err := s.structurer.AnalyzeQuestion(ctx, question)
	if err != nil {
		return nil, s.failWith(ErrQuestionFailed, "analyze question", err)
	}
	log.Printf("question analyzed: intent=%s legalArea=%s", analysis.Intent, analysis.LegalArea)

	// The embedding is taken from the derived search query, not the raw
	// question.
	embedding, err := s.embedder.Embed(ctx, analysis.SearchQuery)
	if err != nil {
		return nil, s.failWith(ErrQuestionFailed, "embed search query", err)
	}

	matches, err := s.store.Query(ctx, pinecone.QueryRequest{
		Vector:          embedding,
		TopK:            topK * s.settings.OverfetchFactor,
		Filter:          buildQuestionFilter(analysis.Filters),
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, s.failWith(ErrQuestionFailed, "query vector store", err)
	}

	qualified := thresholdMatches(matches, minScore, topK)

	result := &QuestionAnswerResult{
		SearchQuery:   analysis.SearchQuery,
		Filters:       analysis.Filters,
		Intent:        analysis.Intent,
		LegalArea:     analysis.LegalArea,
		TotalResults:  len(qualified),
		SearchResults: summarize(qualified),
	}

	if len(qualified) == 0 {
		result.Answer = noMatchAnswer
		return result, nil
	}

	contexts := make([]ai.MatchContext, len(qualified))
	for i, m := range qualified {
		contexts[i] = ai.MatchContext{Metadata: m.Metadata, Score: m.Score}
	}
	answer, err := s.synthesizer.Synthesize(ctx, question, contexts)
	if err != nil {
		return nil, s.failWith(ErrQuestionFailed, "synthesize answer", err)
	}
	result.Answer = answer

	if s.publisher != nil {
		entry := model.QuestionLog{
			Question:     question,
			SearchQuery:  analysis.SearchQuery,
			Intent:       analysis.Intent,
			LegalArea:    analysis.LegalArea,
			TotalResults: result.TotalResults,
			Answer:       answer,
			CreatedAt:    time.Now(),
		}
		if err := s.publisher.Publish(ctx, entry); err != nil {
			log.Printf("publish question log failed: %v", err)
		}
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, question, topK, minScore, result); err != nil {
			log.Printf("cache answer failed: %v", err)
		}
	}
	return result, nil
}

// SearchCases is a raw similarity search without synthesis or thresholding.
func (s *LegalService) SearchCases(ctx context.Context, query string, topK int) ([]CaseSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidInput
	}
	if topK <= 0 {
		topK = s.settings.DefaultTopK
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, s.failWith(ErrSearchFailed, "embed search query", err)
	}

	matches, err := s.store.Query(ctx, pinecone.QueryRequest{
		Vector:          embedding,
		TopK:            topK,
		Filter:          pinecone.NewFilter().Eq("dataType", dataTypeLegalCase),
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, s.failWith(ErrSearchFailed, "query vector store", err)
	}
	return summarize(matches), nil
}

// DeleteCase removes one stored vector by id.
func (s *LegalService) DeleteCase(ctx context.Context, vectorID string) error {
	if strings.TrimSpace(vectorID) == "" {
		return ErrInvalidInput
	}
	if err := s.store.Delete(ctx, vectorID); err != nil {
		return s.failWith(ErrDeleteFailed, "delete case vector", err)
	}
	return nil
}

// BatchItem is one entry of a batch auto-parse upsert.
type BatchItem struct {
	LegalText string
	Metadata  map[string]interface{}
}

// BatchOptions tune batch processing. A zero BatchSize and a nil Delay mean
// the defaults; an explicit zero Delay disables the inter-batch gap.
type BatchOptions struct {
	BatchSize int
	Delay     *time.Duration
}

// BatchItemResult reports the outcome for one item, by input order.
type BatchItemResult struct {
	VectorID string `json:"vectorId,omitempty"`
	Error    string `json:"error,omitempty"`
}

// BatchResult is the aggregate batch report.
type BatchResult struct {
	Success int               `json:"success"`
	Failed  int               `json:"failed"`
	Results []BatchItemResult `json:"results"`
}

// BatchUpsertFromText processes items in fixed-size batches: items inside a
// batch run in parallel, batches run sequentially with a delay between them
// to stay under vendor rate limits. Item failures are reported, not fatal.
func (s *LegalService) BatchUpsertFromText(ctx context.Context, items []BatchItem, opts BatchOptions) (*BatchResult, error) {
	if len(items) == 0 {
		return nil, ErrInvalidInput
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	delay := defaultBatchDelay
	if opts.Delay != nil {
		delay = *opts.Delay
	}

	result := &BatchResult{Results: make([]BatchItemResult, len(items))}
	log.Printf("starting batch upsert of %d items with batch size %d", len(items), batchSize)

	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				parsed, err := s.UpsertCaseFromText(ctx, items[idx].LegalText, items[idx].Metadata)
				if err != nil {
					result.Results[idx] = BatchItemResult{Error: err.Error()}
					return
				}
				result.Results[idx] = BatchItemResult{VectorID: parsed.VectorID}
			}(i)
		}
		wg.Wait()

		if end < len(items) && delay > 0 {
			select {
			case <-ctx.Done():
				return nil, s.failWith(ErrUpsertFailed, "batch upsert canceled", ctx.Err())
			case <-time.After(delay):
			}
		}
	}

	for _, r := range result.Results {
		if r.Error == "" {
			result.Success++
		} else {
			result.Failed++
		}
	}
	log.Printf("batch upsert completed: success=%d failed=%d", result.Success, result.Failed)
	return result, nil
}

// failWith logs the underlying cause and re-signals it as one of the closed
// failure kinds. Adapter not-initialized errors surface as
// ErrServiceUnavailable regardless of operation; parse field validation keeps
// its own kind.
func (s *LegalService) failWith(operation error, step string, err error) error {
	log.Printf("%s failed: %v", step, err)
	switch {
	case errors.Is(err, ai.ErrNotInitialized), errors.Is(err, pinecone.ErrNotInitialized):
		return fmt.Errorf("%w: %s", ErrServiceUnavailable, step)
	case errors.Is(err, ai.ErrFieldMissing):
		return fmt.Errorf("%w: %v", ErrParseValidation, err)
	default:
		return fmt.Errorf("%w: %s", operation, step)
	}
}

// buildSearchableText concatenates labeled fields in fixed order, so the same
// record always yields a byte-identical embedding input.
func buildSearchableText(record model.CaseRecord) string {
	lines := []string{
		"사건명: " + record.CaseName,
		"사건번호: " + record.CaseNumber,
		"법원명: " + record.CourtName,
		"사건종류: " + record.CaseType,
		"선고일자: " + record.DecisionDate,
		"판시사항: " + record.SubjectMatter,
		"판결요지: " + record.LegalPrinciple,
	}
	if record.ReferencedLaws != "" {
		lines = append(lines, "참조조문: "+record.ReferencedLaws)
	}
	if record.ReferencedCases != "" {
		lines = append(lines, "참조판례: "+record.ReferencedCases)
	}
	lines = append(lines, "", record.Content)
	return strings.Join(lines, "\n")
}

// buildCaseMetadata assembles the stored metadata: required case fields plus
// system fields, then optional references, then caller-supplied metadata
// overlaid last so caller values win on key collision.
func buildCaseMetadata(record model.CaseRecord) map[string]interface{} {
	metadata := map[string]interface{}{
		"caseId":         record.CaseID,
		"caseName":       record.CaseName,
		"caseNumber":     record.CaseNumber,
		"courtName":      record.CourtName,
		"caseType":       record.CaseType,
		"decisionDate":   record.DecisionDate,
		"subjectMatter":  record.SubjectMatter,
		"legalPrinciple": record.LegalPrinciple,
		"dataType":       dataTypeLegalCase,
		"createdAt":      time.Now().Format(time.RFC3339),
		"contentLength":  utf8.RuneCountInString(record.Content),
	}
	if record.ReferencedLaws != "" {
		metadata["referencedLaws"] = record.ReferencedLaws
	}
	if record.ReferencedCases != "" {
		metadata["referencedCases"] = record.ReferencedCases
	}
	for k, v := range record.Metadata {
		metadata[k] = v
	}
	return metadata
}

// buildQuestionFilter always constrains dataType and adds hints only when the
// analysis produced them.
func buildQuestionFilter(hints model.AnalysisFilters) *pinecone.Filter {
	filter := pinecone.NewFilter().Eq("dataType", dataTypeLegalCase)
	if hints.CourtName != "" {
		filter.Eq("courtName", hints.CourtName)
	}
	if hints.CaseType != "" {
		filter.Eq("caseType", hints.CaseType)
	}
	if hints.DateRange != nil {
		if hints.DateRange.From != "" {
			filter.Gte("decisionDate", hints.DateRange.From)
		}
		if hints.DateRange.To != "" {
			filter.Lte("decisionDate", hints.DateRange.To)
		}
	}
	return filter
}

// thresholdMatches keeps matches scoring at least minScore, preserving the
// store's descending order, truncated to topK. The comparison happens in
// float32 so a stored score exactly at the threshold is never excluded by
// widening artifacts.
func thresholdMatches(matches []pinecone.Match, minScore float64, topK int) []pinecone.Match {
	qualified := make([]pinecone.Match, 0, len(matches))
	threshold := float32(minScore)
	for _, m := range matches {
		if m.Score >= threshold {
			qualified = append(qualified, m)
		}
	}
	if len(qualified) > topK {
		qualified = qualified[:topK]
	}
	return qualified
}

func summarize(matches []pinecone.Match) []CaseSummary {
	summaries := make([]CaseSummary, len(matches))
	for i, m := range matches {
		summaries[i] = CaseSummary{
			VectorID:      m.ID,
			CaseID:        metaString(m.Metadata, "caseId"),
			CaseName:      metaString(m.Metadata, "caseName"),
			CourtName:     metaString(m.Metadata, "courtName"),
			CaseType:      metaString(m.Metadata, "caseType"),
			DecisionDate:  metaString(m.Metadata, "decisionDate"),
			Score:         float64(m.Score),
			SubjectMatter: metaString(m.Metadata, "subjectMatter"),
		}
	}
	return summaries
}

func metaString(metadata map[string]interface{}, key string) string {
	if metadata == nil {
		return ""
	}
	if v, ok := metadata[key].(string); ok {
		return v
	}
	return ""
}
