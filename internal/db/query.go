package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

func buildSelect(collection string, p plan) (string, []any) {
	var sb strings.Builder
	args := []any{collection}
	sb.WriteString("SELECT id, data FROM documents WHERE collection = ?")

	for _, filter := range p.filters {
		path := "$." + filter.Field
		switch {
		case filter.Value == nil && filter.Op == OpEqual:
			sb.WriteString(" AND json_extract(data, ?) IS NULL")
			args = append(args, path)
		case filter.Value == nil:
			sb.WriteString(" AND json_extract(data, ?) IS NOT NULL")
			args = append(args, path)
		default:
			sb.WriteString(" AND json_extract(data, ?) " + filter.Op.sql() + " ?")
			args = append(args, path, sqlValue(filter.Value))
		}
	}

	// Ordering by a field requires the field to exist.
	for _, order := range p.orders {
		sb.WriteString(" AND json_type(data, ?) IS NOT NULL")
		args = append(args, "$."+order.Field)
	}

	sb.WriteString(" ORDER BY ")
	for _, order := range p.orders {
		sb.WriteString("json_extract(data, ?) ")
		sb.WriteString(strings.ToUpper(string(order.Direction)))
		sb.WriteString(", ")
		args = append(args, "$."+order.Field)
	}
	sb.WriteString("id ASC")

	if p.hasLimit && p.after == nil {
		sb.WriteString(" LIMIT ?")
		args = append(args, p.limit)
	}
	return sb.String(), args
}

// sqlValue maps a filter value onto the type json_extract yields for it.
func sqlValue(value any) any {
	switch v := value.(type) {
	case bool:
		if v {
			return int64(1)
		}
		return int64(0)
	case *string:
		if v == nil {
			return nil
		}
		return *v
	default:
		return v
	}
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) execute(ctx context.Context, q querier, collection string, p plan) ([]Document, error) {
	statement, args := buildSelect(collection, p)
	rows, err := q.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, wrapError("query "+collection, err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, wrapError("query "+collection, err)
		}
		var data map[string]any
		if err := json.Unmarshal([]byte(payload), &data); err != nil {
			return nil, wrapError("query "+collection, fmt.Errorf("decode %s/%s: %w", collection, id, err))
		}
		docs = append(docs, Document{Ref: Doc(collection, id), Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("query "+collection, err)
	}

	if p.after != nil {
		docs = applyCursor(docs, p.orders, *p.after)
		if p.hasLimit && len(docs) > p.limit {
			docs = docs[:p.limit]
		}
	}
	return docs, nil
}

// applyCursor drops every document ordered at or before the cursor.
func applyCursor(docs []Document, orders []orderClause, cursor Document) []Document {
	for i, doc := range docs {
		if doc.Ref.ID == cursor.Ref.ID {
			return docs[i+1:]
		}
	}
	for i, doc := range docs {
		if compareDocs(doc, cursor, orders) > 0 {
			return docs[i:]
		}
	}
	return docs[:0]
}

func compareDocs(a, b Document, orders []orderClause) int {
	for _, order := range orders {
		cmp := compareValues(a.Data[order.Field], b.Data[order.Field])
		if order.Direction == Desc {
			cmp = -cmp
		}
		if cmp != 0 {
			return cmp
		}
	}
	return strings.Compare(a.Ref.ID, b.Ref.ID)
}

// compareValues mirrors sqlite ordering: null, then numbers, then text.
func compareValues(a, b any) int {
	rankA, rankB := valueRank(a), valueRank(b)
	if rankA != rankB {
		if rankA < rankB {
			return -1
		}
		return 1
	}
	switch rankA {
	case 1:
		x, y := numeric(a), numeric(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case 2:
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
	return 0
}

func valueRank(value any) int {
	switch value.(type) {
	case nil:
		return 0
	case bool, float64, float32, int, int64, int32:
		return 1
	default:
		return 2
	}
}

func numeric(value any) float64 {
	switch v := value.(type) {
	case bool:
		if v {
			return 1
		}
		return 0
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	}
	return 0
}
