package rubric

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Template is one scoring question: what to ask, what a full score is worth,
// and which result column the answer lands in.
type Template struct {
	QuestionTitle string `yaml:"question_title"`
	Question      string `yaml:"question"`
	FullScore     int    `yaml:"full_score"`
}

// Set is the rubric for one batch run, read-only after parsing. Keys holds
// the template keys in document order.
type Set struct {
	Keys      []string
	Templates map[string]Template

	// decode problems per key, detected at parse time but surfaced only
	// when the template is used
	parseErrs map[string]error
}

// Parse reads the rubric document. The document must carry a top-level
// `templates` mapping; a template that fails to decode stays in the set and
// errors when looked up, so one bad template never sinks the document.
func Parse(data []byte) (Set, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Set{}, fmt.Errorf("parse rubric document: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return Set{}, fmt.Errorf("rubric document is empty")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return Set{}, fmt.Errorf("rubric document root must be a mapping")
	}

	var templatesNode *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "templates" {
			templatesNode = root.Content[i+1]
			break
		}
	}
	if templatesNode == nil {
		return Set{}, fmt.Errorf("rubric document has no `templates` key")
	}
	if templatesNode.Kind != yaml.MappingNode {
		return Set{}, fmt.Errorf("`templates` must be a mapping of key -> template")
	}

	set := Set{
		Templates: map[string]Template{},
		parseErrs: map[string]error{},
	}
	for i := 0; i+1 < len(templatesNode.Content); i += 2 {
		key := templatesNode.Content[i].Value
		if _, seen := set.Templates[key]; !seen {
			set.Keys = append(set.Keys, key)
		}
		var t Template
		if err := templatesNode.Content[i+1].Decode(&t); err != nil {
			set.parseErrs[key] = fmt.Errorf("template %q: %w", key, err)
			set.Templates[key] = Template{}
			continue
		}
		set.Templates[key] = t
	}
	return set, nil
}

// Template returns the template for key, or an error when the key is unknown
// or the template is structurally unusable for scoring.
func (s Set) Template(key string) (Template, error) {
	if err, ok := s.parseErrs[key]; ok {
		return Template{}, err
	}
	t, ok := s.Templates[key]
	if !ok {
		return Template{}, fmt.Errorf("template %q: not found", key)
	}
	if err := t.validate(); err != nil {
		return Template{}, fmt.Errorf("template %q: %w", key, err)
	}
	return t, nil
}

// Validate reports every unusable template, keyed by template key. Callers
// that want a strict read can refuse the rubric when this is non-empty.
func (s Set) Validate() map[string]error {
	errs := map[string]error{}
	for _, key := range s.Keys {
		if _, err := s.Template(key); err != nil {
			errs[key] = err
		}
	}
	return errs
}

func (t Template) validate() error {
	if t.Question == "" {
		return fmt.Errorf("missing question")
	}
	if t.QuestionTitle == "" {
		return fmt.Errorf("missing question_title")
	}
	if t.FullScore <= 0 {
		return fmt.Errorf("full_score must be a positive integer, got %d", t.FullScore)
	}
	return nil
}
