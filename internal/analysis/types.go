// Package analysis turns the loosely shaped analysis payloads of the legal
// backend into a tagged Result and derives the transcript synopsis from it.
package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Insufficient is the literal the backend sends instead of a position when it
// could not build one.
const Insufficient = "INFORMATION_INSUFFISANTE"

// Kind discriminates the three shapes a normalized analysis can take.
type Kind int

const (
	KindAbsent Kind = iota
	KindOpaque
	KindStructured
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindOpaque:
		return "opaque"
	case KindStructured:
		return "structured"
	default:
		return "unknown"
	}
}

// Result is the normalized analysis. Debate is set only for KindStructured,
// Text only for KindOpaque.
type Result struct {
	Kind   Kind
	Debate *Debate
	Text   string
}

func Absent() Result { return Result{Kind: KindAbsent} }

func Opaque(text string) Result { return Result{Kind: KindOpaque, Text: text} }

func Structured(d Debate) Result { return Result{Kind: KindStructured, Debate: &d} }

func (r Result) IsStructured() bool { return r.Kind == KindStructured && r.Debate != nil }

// Debate is the pro/contra analysis produced by the backend.
type Debate struct {
	PositionPro       Stance `json:"position_pro"`
	PositionContra    Stance `json:"position_contra"`
	PointsDeVigilance List   `json:"points_de_vigilance"`
	Synthese          string `json:"synthese"`

	// Carried through when present; older backend revisions only send these.
	Qualification   string `json:"qualification,omitempty"`
	Recommandations List   `json:"recommandations,omitempty"`

	// Flat shape of the hypothesis-first pipeline, sent without positions.
	ValidationHypothesis string     `json:"validation_hypothesis,omitempty"`
	TextesApplicables    List       `json:"textes_applicables,omitempty"`
	Argumentation        []Argument `json:"argumentation,omitempty"`
	Risques              List       `json:"risques,omitempty"`
}

// HasStances reports whether the payload carried either position, even as
// the sentinel.
func (d *Debate) HasStances() bool {
	return d.PositionPro.present() || d.PositionContra.present()
}

// UnmarshalJSON decodes each field on its own; a malformed value is
// dropped. It fails only when data is not an object.
func (d *Debate) UnmarshalJSON(data []byte) error {
	fields, err := objectFields(data)
	if err != nil {
		return err
	}
	*d = Debate{
		PositionPro:          stanceField(fields["position_pro"]),
		PositionContra:       stanceField(fields["position_contra"]),
		PointsDeVigilance:    listField(fields["points_de_vigilance"]),
		Synthese:             textField(fields["synthese"]),
		Qualification:        textField(fields["qualification"]),
		Recommandations:      listField(fields["recommandations"]),
		ValidationHypothesis: textField(fields["validation_hypothesis"]),
		TextesApplicables:    listField(fields["textes_applicables"]),
		Argumentation:        argumentsField(fields["argumentation"]),
		Risques:              listField(fields["risques"]),
	}
	return nil
}

// Stance is either a full Position or the Insufficient sentinel. The zero
// value means the field was missing altogether.
type Stance struct {
	Position     *Position
	Insufficient bool
}

// Available reports whether the stance carries a usable position.
func (s Stance) Available() bool {
	return s.Position != nil && !s.Insufficient
}

func (s Stance) present() bool { return s.Position != nil || s.Insufficient }

func (s Stance) MarshalJSON() ([]byte, error) {
	switch {
	case s.Position != nil:
		return json.Marshal(s.Position)
	case s.Insufficient:
		return json.Marshal(Insufficient)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON never fails on shape: anything that is not an object with a
// thesis collapses to the sentinel.
func (s *Stance) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	*s = Stance{}
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] != '{' {
		s.Insufficient = true
		return nil
	}
	var pos Position
	if err := json.Unmarshal(trimmed, &pos); err != nil || strings.TrimSpace(pos.These) == "" {
		s.Insufficient = true
		return nil
	}
	s.Position = &pos
	return nil
}

// Position is one side of the debate.
type Position struct {
	These             string     `json:"these"`
	TextesApplicables List       `json:"textes_applicables"`
	Arguments         []Argument `json:"arguments"`
	Risques           List       `json:"risques"`
}

func (p *Position) UnmarshalJSON(data []byte) error {
	fields, err := objectFields(data)
	if err != nil {
		return err
	}
	*p = Position{
		These:             textField(fields["these"]),
		TextesApplicables: listField(fields["textes_applicables"]),
		Arguments:         argumentsField(fields["arguments"]),
		Risques:           listField(fields["risques"]),
	}
	return nil
}

// FirstArgument returns the leading argument, if any.
func (p *Position) FirstArgument() (Argument, bool) {
	if p == nil || len(p.Arguments) == 0 {
		return Argument{}, false
	}
	return p.Arguments[0], true
}

// Argument is a single supporting point. A bare string in the payload is
// read as the argument body.
type Argument struct {
	Point   string `json:"point,omitempty"`
	Analyse string `json:"analyse"`
	Sources List   `json:"sources"`
}

// Label returns the argument title, falling back to "Argument N" for the
// 0-based index i.
func (a Argument) Label(i int) string {
	if point := strings.TrimSpace(a.Point); point != "" {
		return point
	}
	return fmt.Sprintf("Argument %d", i+1)
}

// UnmarshalJSON accepts an object, a bare string or any scalar, which
// becomes the argument body.
func (a *Argument) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		fields, err := objectFields(trimmed)
		if err != nil {
			return err
		}
		*a = Argument{
			Point:   textField(fields["point"]),
			Analyse: textField(fields["analyse"]),
			Sources: listField(fields["sources"]),
		}
		return nil
	}
	*a = Argument{Analyse: textField(trimmed)}
	return nil
}

func (a Argument) empty() bool {
	return strings.TrimSpace(a.Point) == "" && strings.TrimSpace(a.Analyse) == "" && len(a.Sources) == 0
}

// List is a string sequence that also accepts a lone string or scalar items.
type List []string

func (l *List) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*l = nil
		return nil
	}
	if trimmed[0] == '"' {
		var single string
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return err
		}
		if strings.TrimSpace(single) == "" {
			*l = nil
			return nil
		}
		*l = List{single}
		return nil
	}
	var items []any
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return err
	}
	out := make(List, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		text := strings.TrimSpace(fmt.Sprint(item))
		if text != "" {
			out = append(out, text)
		}
	}
	*l = out
	return nil
}

func objectFields(data []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func stanceField(raw json.RawMessage) Stance {
	var s Stance
	_ = s.UnmarshalJSON(raw)
	return s
}

func listField(raw json.RawMessage) List {
	var l List
	if err := l.UnmarshalJSON(raw); err != nil {
		return nil
	}
	return l
}

// textField reads a string-ish value. Arrays are joined, objects and
// invalid JSON read as "".
func textField(raw json.RawMessage) string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return ""
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		return ""
	case []any:
		return strings.Join(listField(raw), " ")
	default:
		return fmt.Sprint(v)
	}
}

// argumentsField reads a list of arguments; a lone value is one argument.
func argumentsField(raw json.RawMessage) []Argument {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	var items []json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil
		}
	} else {
		items = []json.RawMessage{trimmed}
	}
	out := make([]Argument, 0, len(items))
	for _, item := range items {
		var arg Argument
		if err := arg.UnmarshalJSON(item); err != nil || arg.empty() {
			continue
		}
		out = append(out, arg)
	}
	return out
}
