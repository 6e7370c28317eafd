package dto

import (
	"bytes"
	"encoding/json"
	"time"

	model "task-assignment-api.com/task-assignment-api/internal/models"
)

// Timestamp binds a deadline given as RFC3339, YYYY-MM-DD or epoch
// milliseconds, from either a JSON body or a form field.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		raw = []byte(s)
	}
	return t.UnmarshalParam(string(raw))
}

// UnmarshalParam implements echo.BindUnmarshaler.
func (t *Timestamp) UnmarshalParam(param string) error {
	parsed, err := model.ParseTimestamp(param)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t *Timestamp) Value() *time.Time {
	if t == nil {
		return nil
	}
	v := t.Time
	return &v
}
