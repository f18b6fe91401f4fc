package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
)

// WorkflowStep is one step of an operator-authored workflow. The Type field
// discriminates the tagged union; type-specific fields are ignored by other
// step types. An empty Next falls back to positional order.
type WorkflowStep struct {
	ID       string   `json:"id"`
	Type     StepType `json:"type"`
	Prompt   string   `json:"prompt"`
	Key      string   `json:"key,omitempty"`      // collect_field: data key
	Options  []string `json:"options,omitempty"`  // show_options: labels
	MediaIDs []string `json:"mediaIds,omitempty"` // share_media: asset ids
	Next     string   `json:"next,omitempty"`
}

// StepList stores the ordered steps as JSONB.
type StepList []WorkflowStep

func (s StepList) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

func (s *StepList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StepList", src)
	}
	return json.Unmarshal(raw, s)
}

// WorkflowAction is a terminal action executed when a workflow completes.
type WorkflowAction struct {
	Type string `json:"type"` // currently only "save_inquiry"
}

type ActionList []WorkflowAction

func (a ActionList) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

func (a *ActionList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ActionList", src)
	}
	return json.Unmarshal(raw, a)
}

const ActionSaveInquiry = "save_inquiry"

// WorkflowDefinition is immutable configuration while a conversation is
// running it.
type WorkflowDefinition struct {
	ID        string         `db:"id" json:"id"`
	BotID     string         `db:"bot_id" json:"botId"`
	Name      string         `db:"name" json:"name"`
	Triggers  pq.StringArray `db:"triggers" json:"triggers"`
	Steps     StepList       `db:"steps" json:"steps"`
	Actions   ActionList     `db:"actions" json:"actions"`
	Published bool           `db:"published" json:"published"`
	Position  int            `db:"position" json:"position"`
}

// StepByID returns the step with the given id, or nil.
func (w *WorkflowDefinition) StepByID(id string) *WorkflowStep {
	for i := range w.Steps {
		if w.Steps[i].ID == id {
			return &w.Steps[i]
		}
	}
	return nil
}

// NextStep resolves the step after cur: the explicit Next id when set,
// otherwise the positionally following step. Returns nil at the end of the
// list.
func (w *WorkflowDefinition) NextStep(cur *WorkflowStep) *WorkflowStep {
	if cur.Next != "" {
		return w.StepByID(cur.Next)
	}
	for i := range w.Steps {
		if w.Steps[i].ID == cur.ID {
			if i+1 < len(w.Steps) {
				return &w.Steps[i+1]
			}
			return nil
		}
	}
	return nil
}
