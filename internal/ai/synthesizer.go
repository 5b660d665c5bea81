package ai

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// NoResultsMessage is returned without any model call when synthesis is asked
// to answer over zero matches.
const NoResultsMessage = "관련된 판례를 찾을 수 없습니다. 질문을 바꾸어 다시 시도해 주세요."

// MatchContext is the slice of a retrieved match the synthesizer needs:
// the stored metadata echoed back by the vector store and the similarity score.
type MatchContext struct {
	Metadata map[string]interface{}
	Score    float32
}

// AnswerSynthesizer produces a natural-language answer from retrieved cases
// with a single LLM call.
type AnswerSynthesizer struct {
	llm   completionClient
	cfg   ChatConfig
	ready bool
}

func NewAnswerSynthesizer(cfg ChatConfig) *AnswerSynthesizer {
	s := &AnswerSynthesizer{
		llm:   NewOpenAICompatibleClient(),
		cfg:   cfg,
		ready: strings.TrimSpace(cfg.APIKey) != "",
	}
	if !s.ready {
		log.Printf("OPENAI_API_KEY is not set, answer synthesis will be unavailable")
	}
	return s
}

func (s *AnswerSynthesizer) Ready() bool {
	return s.ready
}

const synthesizePrompt = `당신은 한국 판례에 근거하여 법률 질문에 답하는 전문가입니다.
아래 제공된 판례들만 근거로 삼아 질문에 답하세요.
- 판례에 없는 내용은 추측하지 마세요.
- 근거가 된 판례의 사건번호를 답변에 인용하세요.
- 법률 자문이 아닌 참고 정보임을 명시하세요.`

// Synthesize answers the question using the given matches. Zero matches
// short-circuit locally with NoResultsMessage and no model call.
func (s *AnswerSynthesizer) Synthesize(ctx context.Context, question string, matches []MatchContext) (string, error) {
	if len(matches) == 0 {
		return NoResultsMessage, nil
	}
	if !s.ready {
		return "", ErrNotInitialized
	}

	var b strings.Builder
	b.WriteString("검색된 판례:\n")
	for i, m := range matches {
		b.WriteString(formatMatch(i+1, m))
		b.WriteString("\n")
	}
	b.WriteString("\n질문: ")
	b.WriteString(question)

	answer, err := s.llm.Complete(ctx, s.cfg, []ChatMessage{
		{Role: "system", Content: synthesizePrompt},
		{Role: "user", Content: b.String()},
	})
	if err != nil {
		return "", fmt.Errorf("answer synthesis llm call failed: %w", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("answer synthesis returned an empty response")
	}
	return answer, nil
}

// formatMatch renders one retrieved case as a human-readable block for the
// synthesis prompt. Similarity is a percentage rounded to one decimal.
func formatMatch(ordinal int, m MatchContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[판례 %d] (유사도 %.1f%%)\n", ordinal, m.Score*100)
	fmt.Fprintf(&b, "사건명: %s\n", metaString(m.Metadata, "caseName"))
	fmt.Fprintf(&b, "사건번호: %s\n", metaString(m.Metadata, "caseNumber"))
	fmt.Fprintf(&b, "법원명: %s\n", metaString(m.Metadata, "courtName"))
	fmt.Fprintf(&b, "사건종류: %s\n", metaString(m.Metadata, "caseType"))
	fmt.Fprintf(&b, "선고일자: %s\n", metaString(m.Metadata, "decisionDate"))
	fmt.Fprintf(&b, "판시사항: %s\n", metaString(m.Metadata, "subjectMatter"))
	fmt.Fprintf(&b, "판결요지: %s\n", metaString(m.Metadata, "legalPrinciple"))
	if laws := metaString(m.Metadata, "referencedLaws"); laws != "" {
		fmt.Fprintf(&b, "참조조문: %s\n", laws)
	}
	if cases := metaString(m.Metadata, "referencedCases"); cases != "" {
		fmt.Fprintf(&b, "참조판례: %s\n", cases)
	}
	return b.String()
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
