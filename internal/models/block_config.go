package models

import (
	"encoding/json"
	"strings"
)

// BlockConfig is the typed form of CourseBlock.ConfigJSON. The blob is parsed
// once when a block is loaded instead of being poked at as an untyped map.
// Assessment timing and pass rules live on the Assessment row; this struct
// only carries presentation-level knobs.
type BlockConfig struct {
	DurationMinutes       int  `json:"duration_minutes,omitempty"`
	SkippableAfterMinutes int  `json:"skippable_after_minutes,omitempty"`
	RequireCompletion     bool `json:"require_completion,omitempty"`
}

// ParseBlockConfig decodes a config blob. An empty blob yields the zero
// config; unknown keys are preserved by NormalizeConfigJSON but ignored here.
func ParseBlockConfig(raw string) (BlockConfig, error) {
	var cfg BlockConfig
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return cfg, nil
	}
	if err := json.Unmarshal([]byte(trimmed), &cfg); err != nil {
		return BlockConfig{}, err
	}
	return cfg, nil
}

// NormalizeConfigJSON validates that a config blob is a JSON object and
// re-marshals it into canonical compact form for storage. An empty blob is
// stored as the empty string.
func NormalizeConfigJSON(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return "", err
	}
	out, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// DecodeChoices fills Question.Choices from the stored JSON blob.
func (q *Question) DecodeChoices() error {
	if q == nil || strings.TrimSpace(q.ChoicesJSON) == "" {
		return nil
	}
	return json.Unmarshal([]byte(q.ChoicesJSON), &q.Choices)
}

// EncodeChoices stores Question.Choices into the JSON blob column.
func (q *Question) EncodeChoices() error {
	if q == nil {
		return nil
	}
	if len(q.Choices) == 0 {
		q.ChoicesJSON = ""
		return nil
	}
	out, err := json.Marshal(q.Choices)
	if err != nil {
		return err
	}
	q.ChoicesJSON = string(out)
	return nil
}

// CorrectChoice maps both question types onto a single comparison rule: the
// index a correct answer must equal. TF maps true to 0 and false to 1.
func (q *Question) CorrectChoice() int {
	switch q.Type {
	case QuestionTypeMCQ:
		if q.CorrectIndex != nil {
			return *q.CorrectIndex
		}
	case QuestionTypeTF:
		if q.CorrectBool != nil {
			if *q.CorrectBool {
				return 0
			}
			return 1
		}
	}
	return -1
}
