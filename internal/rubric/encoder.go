package rubric

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Prefix is the root of every key-path accepted by the legacy grading endpoint.
const Prefix = "rubric_assessment"

// Field enumerates the suffixes that may appear in a key-path.
type Field int

const (
	FieldUserID Field = iota
	FieldAnonymousID
	FieldAssessmentType
	FieldPoints
	FieldComments
	FieldSaveComment
	FieldDescription
	FieldRatingID
)

var fieldSuffixes = [...]string{
	FieldUserID:         "user_id",
	FieldAnonymousID:    "anonymous_id",
	FieldAssessmentType: "assessment_type",
	FieldPoints:         "points",
	FieldComments:       "comments",
	FieldSaveComment:    "save_comment",
	FieldDescription:    "description",
	FieldRatingID:       "rating_id",
}

// String returns the key suffix for the field.
func (f Field) String() string {
	if f < 0 || int(f) >= len(fieldSuffixes) {
		return "unknown"
	}
	return fieldSuffixes[f]
}

// KeyPath addresses one value in the payload. Criterion is empty for assessment-level fields.
type KeyPath struct {
	Criterion string
	Field     Field
}

// String renders the bracketed key-path.
func (k KeyPath) String() string {
	var b strings.Builder
	b.WriteString(Prefix)
	if k.Criterion != "" {
		b.WriteString("[criterion_")
		b.WriteString(k.Criterion)
		b.WriteByte(']')
	}
	b.WriteByte('[')
	b.WriteString(k.Field.String())
	b.WriteByte(']')
	return b.String()
}

// Value is a scalar payload value: either a string or a number.
type Value struct {
	text    string
	number  float64
	numeric bool
}

// StringValue wraps a string.
func StringValue(s string) Value { return Value{text: s} }

// NumberValue wraps a number.
func NumberValue(n float64) Value { return Value{number: n, numeric: true} }

// IsNumber reports whether the value is numeric.
func (v Value) IsNumber() bool { return v.numeric }

// Interface returns the value as a float64 or a string.
func (v Value) Interface() any {
	if v.numeric {
		return v.number
	}
	return v.text
}

// String renders the value for form encoding.
func (v Value) String() string {
	if v.numeric {
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	}
	return v.text
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.numeric {
		return json.Marshal(v.number)
	}
	return json.Marshal(v.text)
}

// Payload is the flat key-path mapping submitted to the legacy grading endpoint. Keys are kept in
// emission order.
type Payload struct {
	order  []KeyPath
	values map[KeyPath]Value
}

func newPayload(capacity int) *Payload {
	return &Payload{
		order:  make([]KeyPath, 0, capacity),
		values: make(map[KeyPath]Value, capacity),
	}
}

// put panics on a repeated key: the encoder rejects duplicate criteria before emitting anything.
func (p *Payload) put(key KeyPath, value Value) {
	if _, exists := p.values[key]; exists {
		panic(fmt.Sprintf("rubric: key-path %s emitted twice", key))
	}
	p.order = append(p.order, key)
	p.values[key] = value
}

// Len returns the number of keys in the payload.
func (p *Payload) Len() int { return len(p.order) }

// Keys returns the rendered key-paths in emission order.
func (p *Payload) Keys() []string {
	keys := make([]string, 0, len(p.order))
	for _, key := range p.order {
		keys = append(keys, key.String())
	}
	return keys
}

// Lookup returns the value stored under the key-path.
func (p *Payload) Lookup(key KeyPath) (Value, bool) {
	value, ok := p.values[key]
	return value, ok
}

// Map returns the payload as a plain map of rendered key-paths to float64 or string values.
func (p *Payload) Map() map[string]any {
	out := make(map[string]any, len(p.order))
	for _, key := range p.order {
		out[key.String()] = p.values[key].Interface()
	}
	return out
}

// Form returns the payload as form values.
func (p *Payload) Form() url.Values {
	form := make(url.Values, len(p.order))
	for _, key := range p.order {
		form.Set(key.String(), p.values[key].String())
	}
	return form
}

// MarshalJSON writes the payload as a JSON object in emission order.
func (p *Payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for idx, key := range p.order {
		if idx > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(key.String())
		if err != nil {
			return nil, err
		}
		value, err := p.values[key].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Identity identifies who performed the assessment. It is read from the caller's session.
type Identity struct {
	Anonymous   bool
	UserID      string
	AnonymousID string
}

// Key resolves the single identity key-path and its value.
func (i Identity) Key() (KeyPath, string, error) {
	userID := strings.TrimSpace(i.UserID)
	anonymousID := strings.TrimSpace(i.AnonymousID)

	switch {
	case i.Anonymous && anonymousID != "":
		return KeyPath{Field: FieldAnonymousID}, anonymousID, nil
	case i.Anonymous:
		return KeyPath{}, "", fmt.Errorf("%w: anonymous assessment without anonymous id", ErrMissingIdentity)
	case userID != "":
		return KeyPath{Field: FieldUserID}, userID, nil
	case anonymousID != "":
		return KeyPath{Field: FieldAnonymousID}, anonymousID, nil
	default:
		return KeyPath{}, "", ErrMissingIdentity
	}
}

// Metadata carries the assessment-level values of a submission.
type Metadata struct {
	Identity       Identity
	AssessmentType string
}

// Encode flattens entries into the key-path payload. Every entry must reference a criterion of
// the rubric and appear at most once.
func Encode(r Rubric, entries []Entry, meta Metadata) (*Payload, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	identityKey, identityValue, err := meta.Identity.Key()
	if err != nil {
		return nil, err
	}

	assessmentType := strings.TrimSpace(meta.AssessmentType)
	if assessmentType == "" {
		return nil, ErrMissingAssessmentType
	}

	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		criterion, ok := r.Criterion(entry.CriterionID)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCriterion, entry.CriterionID)
		}
		if _, dup := seen[entry.CriterionID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateEntry, entry.CriterionID)
		}
		seen[entry.CriterionID] = struct{}{}

		if entry.RatingID != nil {
			if _, ok := criterion.Rating(*entry.RatingID); !ok {
				return nil, fmt.Errorf("%w: %q in criterion %q", ErrUnknownRating, *entry.RatingID, entry.CriterionID)
			}
		}
	}

	payload := newPayload(2 + len(entries)*5)
	payload.put(identityKey, StringValue(identityValue))
	payload.put(KeyPath{Field: FieldAssessmentType}, StringValue(assessmentType))

	for _, entry := range entries {
		criterion := entry.CriterionID

		points := StringValue("")
		if entry.Points != nil {
			points = NumberValue(*entry.Points)
		}
		saveComment := "0"
		if entry.SaveCommentsForLater {
			saveComment = "1"
		}

		payload.put(KeyPath{Criterion: criterion, Field: FieldPoints}, points)
		payload.put(KeyPath{Criterion: criterion, Field: FieldComments}, StringValue(entry.Comments))
		payload.put(KeyPath{Criterion: criterion, Field: FieldSaveComment}, StringValue(saveComment))
		payload.put(KeyPath{Criterion: criterion, Field: FieldDescription}, StringValue(entry.Description))
		if entry.RatingID != nil {
			payload.put(KeyPath{Criterion: criterion, Field: FieldRatingID}, StringValue(*entry.RatingID))
		}
	}

	return payload, nil
}

// EncodeCollector encodes a snapshot of the collector's current entries.
func EncodeCollector(c *Collector, meta Metadata) (*Payload, error) {
	return Encode(c.Rubric(), c.Snapshot(), meta)
}
