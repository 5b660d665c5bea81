package pinecone

import "google.golang.org/protobuf/types/known/structpb"

// Pinecone metadata filter operators. Conditions on different fields combine
// by implicit conjunction; conditions on the same field merge into one
// operator object (used for date ranges).
const (
	OpEq  = "$eq"
	OpGte = "$gte"
	OpLte = "$lte"
)

type condition struct {
	field string
	op    string
	value interface{}
}

// Filter builds a metadata filter expression programmatically instead of
// ad hoc map literals, so the shape can be unit-tested offline.
type Filter struct {
	conds []condition
}

func NewFilter() *Filter {
	return &Filter{}
}

func (f *Filter) Eq(field string, value interface{}) *Filter {
	f.conds = append(f.conds, condition{field: field, op: OpEq, value: value})
	return f
}

func (f *Filter) Gte(field string, value interface{}) *Filter {
	f.conds = append(f.conds, condition{field: field, op: OpGte, value: value})
	return f
}

func (f *Filter) Lte(field string, value interface{}) *Filter {
	f.conds = append(f.conds, condition{field: field, op: OpLte, value: value})
	return f
}

func (f *Filter) Empty() bool {
	return f == nil || len(f.conds) == 0
}

// Map renders the filter in Pinecone's wire shape:
// {"field": {"$op": value, ...}, ...}
func (f *Filter) Map() map[string]interface{} {
	if f.Empty() {
		return nil
	}
	out := make(map[string]interface{})
	for _, c := range f.conds {
		ops, ok := out[c.field].(map[string]interface{})
		if !ok {
			ops = make(map[string]interface{})
			out[c.field] = ops
		}
		ops[c.op] = c.value
	}
	return out
}

func (f *Filter) Struct() (*structpb.Struct, error) {
	m := f.Map()
	if m == nil {
		return nil, nil
	}
	return structpb.NewStruct(m)
}
