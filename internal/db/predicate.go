package db

import (
	"fmt"
	"strings"
)

type Op string

const (
	OpEqual        Op = "=="
	OpNotEqual     Op = "!="
	OpLess         Op = "<"
	OpLessEqual    Op = "<="
	OpGreater      Op = ">"
	OpGreaterEqual Op = ">="
)

func (o Op) inequality() bool {
	return o != OpEqual
}

func (o Op) sql() string {
	if o == OpEqual {
		return "="
	}
	return string(o)
}

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Predicate is one clause of a query: a filter, an ordering, a limit or a cursor.
type Predicate interface {
	apply(*plan) error
	String() string
}

type whereClause struct {
	Field string
	Op    Op
	Value any
}

type orderClause struct {
	Field     string
	Direction Direction
}

type limitClause struct {
	N int
}

type startAfterClause struct {
	Doc Document
}

func Where(field string, op Op, value any) Predicate {
	return whereClause{Field: field, Op: op, Value: value}
}

func OrderBy(field string, dir Direction) Predicate {
	return orderClause{Field: field, Direction: dir}
}

func Limit(n int) Predicate {
	return limitClause{N: n}
}

// StartAfter positions the result after doc in the query's ordering.
func StartAfter(doc Document) Predicate {
	return startAfterClause{Doc: doc}
}

func (w whereClause) String() string {
	return fmt.Sprintf("where(%s %s %v)", w.Field, w.Op, w.Value)
}

func (o orderClause) String() string {
	return fmt.Sprintf("orderBy(%s %s)", o.Field, o.Direction)
}

func (l limitClause) String() string {
	return fmt.Sprintf("limit(%d)", l.N)
}

func (s startAfterClause) String() string {
	return fmt.Sprintf("startAfter(%s)", s.Doc.Ref.ID)
}

func (w whereClause) apply(p *plan) error {
	if !validField(w.Field) {
		return newError(CodeInvalidArgument, "query", "invalid field %q", w.Field)
	}
	switch w.Op {
	case OpEqual, OpNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
	default:
		return newError(CodeInvalidArgument, "query", "unsupported operator %q", w.Op)
	}
	if w.Value == nil && w.Op != OpEqual && w.Op != OpNotEqual {
		return newError(CodeInvalidArgument, "query", "null only supports == and !=")
	}
	p.filters = append(p.filters, w)
	return nil
}

func (o orderClause) apply(p *plan) error {
	if !validField(o.Field) {
		return newError(CodeInvalidArgument, "query", "invalid field %q", o.Field)
	}
	if o.Direction != Asc && o.Direction != Desc {
		return newError(CodeInvalidArgument, "query", "invalid direction %q", o.Direction)
	}
	p.orders = append(p.orders, o)
	return nil
}

func (l limitClause) apply(p *plan) error {
	if l.N < 0 {
		return newError(CodeInvalidArgument, "query", "negative limit %d", l.N)
	}
	p.limit = l.N
	p.hasLimit = true
	return nil
}

func (s startAfterClause) apply(p *plan) error {
	if s.Doc.Ref.ID == "" {
		return newError(CodeInvalidArgument, "query", "cursor document has no id")
	}
	cursor := s.Doc
	p.after = &cursor
	return nil
}

type plan struct {
	filters  []whereClause
	orders   []orderClause
	limit    int
	hasLimit bool
	after    *Document
}

// compile validates predicates and enforces the index rules of the store: a query may
// filter by inequality on a single field, and that field must lead the ordering.
func compile(preds []Predicate) (plan, error) {
	var p plan
	for _, pred := range preds {
		if pred == nil {
			continue
		}
		if err := pred.apply(&p); err != nil {
			return plan{}, err
		}
	}

	inequalityField := ""
	for _, filter := range p.filters {
		if !filter.Op.inequality() {
			continue
		}
		if inequalityField != "" && inequalityField != filter.Field {
			return plan{}, newError(CodeFailedPrecondition, "query",
				"query requires an index: inequality filters on %s and %s", inequalityField, filter.Field)
		}
		inequalityField = filter.Field
	}
	if inequalityField != "" && len(p.orders) > 0 && p.orders[0].Field != inequalityField {
		return plan{}, newError(CodeFailedPrecondition, "query",
			"query requires an index: first ordering must be on %s, got %s", inequalityField, p.orders[0].Field)
	}
	if inequalityField != "" && len(p.orders) == 0 {
		p.orders = append(p.orders, orderClause{Field: inequalityField, Direction: Asc})
	}

	return p, nil
}

// Describe renders predicates for logs and tests.
func Describe(preds []Predicate) string {
	parts := make([]string, 0, len(preds))
	for _, pred := range preds {
		if pred != nil {
			parts = append(parts, pred.String())
		}
	}
	return strings.Join(parts, ", ")
}
