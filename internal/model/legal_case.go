package model

// CaseRecord is a structured court decision (판례). All fields except
// ReferencedLaws, ReferencedCases and Metadata are required; validation happens
// at the HTTP boundary for caller input and in the structurer for parsed text.
// The record is immutable once built and consumed once per upsert.
type CaseRecord struct {
	CaseID          string                 `json:"caseId"`
	CaseName        string                 `json:"caseName"`
	CaseNumber      string                 `json:"caseNumber"`
	CourtName       string                 `json:"courtName"`
	CaseType        string                 `json:"caseType"`
	DecisionDate    string                 `json:"decisionDate"`
	SubjectMatter   string                 `json:"subjectMatter"`
	LegalPrinciple  string                 `json:"legalPrinciple"`
	ReferencedLaws  string                 `json:"referencedLaws,omitempty"`
	ReferencedCases string                 `json:"referencedCases,omitempty"`
	Content         string                 `json:"content"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// DateRange bounds decisionDate in a question analysis, ISO date strings.
type DateRange struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// AnalysisFilters are optional structured hints extracted from a question.
type AnalysisFilters struct {
	CourtName string     `json:"courtName,omitempty"`
	CaseType  string     `json:"caseType,omitempty"`
	DateRange *DateRange `json:"dateRange,omitempty"`
	Keywords  []string   `json:"keywords,omitempty"`
}

// QuestionAnalysis is the structured result of one question-analysis LLM call.
// Intent and LegalArea are informational only; they are logged and echoed back
// but never used to constrain the vector query.
type QuestionAnalysis struct {
	SearchQuery string          `json:"searchQuery"`
	Filters     AnalysisFilters `json:"filters"`
	Intent      string          `json:"intent,omitempty"`
	LegalArea   string          `json:"legalArea,omitempty"`
}
