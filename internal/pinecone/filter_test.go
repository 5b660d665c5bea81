package pinecone

import (
	"reflect"
	"testing"
)

func TestFilterMap(t *testing.T) {
	filter := NewFilter().
		Eq("dataType", "legal_case").
		Eq("courtName", "대법원")

	want := map[string]interface{}{
		"dataType":  map[string]interface{}{OpEq: "legal_case"},
		"courtName": map[string]interface{}{OpEq: "대법원"},
	}
	if got := filter.Map(); !reflect.DeepEqual(got, want) {
		t.Errorf("Map() = %v, want %v", got, want)
	}
}

func TestFilterMergesSameFieldRange(t *testing.T) {
	filter := NewFilter().
		Gte("decisionDate", "2010-01-01").
		Lte("decisionDate", "2020-12-31")

	want := map[string]interface{}{
		"decisionDate": map[string]interface{}{
			OpGte: "2010-01-01",
			OpLte: "2020-12-31",
		},
	}
	if got := filter.Map(); !reflect.DeepEqual(got, want) {
		t.Errorf("Map() = %v, want merged range %v", got, want)
	}
}

func TestFilterEmpty(t *testing.T) {
	if !NewFilter().Empty() {
		t.Error("fresh filter must be empty")
	}
	var nilFilter *Filter
	if !nilFilter.Empty() {
		t.Error("nil filter must be empty")
	}
	if NewFilter().Eq("dataType", "legal_case").Empty() {
		t.Error("filter with a condition must not be empty")
	}
	if got := NewFilter().Map(); got != nil {
		t.Errorf("empty filter Map() = %v, want nil", got)
	}
}

func TestFilterStruct(t *testing.T) {
	s, err := NewFilter().Eq("dataType", "legal_case").Struct()
	if err != nil {
		t.Fatalf("Struct() returned error: %v", err)
	}
	if s == nil {
		t.Fatal("Struct() returned nil for non-empty filter")
	}

	field := s.Fields["dataType"].GetStructValue()
	if field == nil || field.Fields[OpEq].GetStringValue() != "legal_case" {
		t.Errorf("unexpected struct shape: %v", s)
	}
}

func TestFilterStructEmpty(t *testing.T) {
	s, err := NewFilter().Struct()
	if err != nil {
		t.Fatalf("Struct() returned error: %v", err)
	}
	if s != nil {
		t.Errorf("empty filter Struct() = %v, want nil", s)
	}
}
