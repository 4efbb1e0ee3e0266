package db

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// TimestampLayout sorts lexically in the same order as the instants it encodes.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"

type serverTimestamp struct{}

// ServerTimestamp is replaced by the commit time of the write that carries it.
var ServerTimestamp = serverTimestamp{}

type Fields map[string]any

// Ref addresses one document.
type Ref struct {
	Collection string
	ID         string
}

func Doc(collection, id string) Ref {
	return Ref{Collection: collection, ID: id}
}

func (r Ref) Path() string {
	return r.Collection + "/" + r.ID
}

// Sub returns a collection nested under the document.
func (r Ref) Sub(name string) string {
	return r.Path() + "/" + name
}

type Document struct {
	Ref  Ref
	Data map[string]any
}

func (d Document) ID() string {
	return d.Ref.ID
}

// Decode copies the document into v through its JSON form, exposing the id as "id".
func (d Document) Decode(v any) error {
	data := make(map[string]any, len(d.Data)+1)
	for key, value := range d.Data {
		data[key] = value
	}
	data["id"] = d.Ref.ID

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", d.Ref.Path(), err)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode %s: %w", d.Ref.Path(), err)
	}
	return nil
}

// Path builds a slash separated path from segments.
func Path(segments ...string) string {
	return strings.Join(segments, "/")
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validField(name string) bool {
	return fieldPattern.MatchString(name)
}

// validCollection accepts paths with an odd number of non-empty segments.
func validCollection(path string) bool {
	if path == "" {
		return false
	}
	segments := strings.Split(path, "/")
	if len(segments)%2 == 0 {
		return false
	}
	for _, segment := range segments {
		if strings.TrimSpace(segment) == "" {
			return false
		}
	}
	return true
}

func validRef(ref Ref) bool {
	return validCollection(ref.Collection) && ref.ID != "" && !strings.Contains(ref.ID, "/")
}

// normalizeFields resolves sentinels and coerces values to their JSON types.
func normalizeFields(fields Fields, at time.Time) (map[string]any, error) {
	resolved := make(map[string]any, len(fields))
	for key, value := range fields {
		if !validField(key) {
			return nil, newError(CodeInvalidArgument, "write", "invalid field name %q", key)
		}
		if _, ok := value.(serverTimestamp); ok {
			resolved[key] = at.Format(TimestampLayout)
			continue
		}
		if t, ok := value.(time.Time); ok {
			resolved[key] = t.UTC().Format(TimestampLayout)
			continue
		}
		resolved[key] = value
	}

	payload, err := json.Marshal(resolved)
	if err != nil {
		return nil, newError(CodeInvalidArgument, "write", "encode fields: %v", err)
	}
	var normalized map[string]any
	if err := json.Unmarshal(payload, &normalized); err != nil {
		return nil, newError(CodeInvalidArgument, "write", "decode fields: %v", err)
	}
	return normalized, nil
}
