package feed

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/alfredjeanlab/taskboard/internal/echo"
	"github.com/alfredjeanlab/taskboard/internal/model"
)

// RawChange is the loosely typed payload a transport delivers for one row
// change. Both transports speak this shape:
//
//	{"table": "tasks", "eventType": "UPDATE", "new": {...}, "old": {...}}
type RawChange struct {
	Table     model.Table    `json:"table"`
	EventType echo.EventType `json:"eventType"`
	New       map[string]any `json:"new,omitempty"`
	Old       map[string]any `json:"old,omitempty"`
}

// Change is a RawChange narrowed to what the subscriber needs.
type Change struct {
	Table    model.Table
	Type     echo.EventType
	RecordID string
	Record   map[string]any // new row for insert/update, old row for delete
}

// DecodeRawChange parses a transport payload and narrows it. If the payload
// omits its table, fallback is used.
func DecodeRawChange(data []byte, fallback model.Table) (Change, error) {
	var raw RawChange
	if err := json.Unmarshal(data, &raw); err != nil {
		return Change{}, fmt.Errorf("decode change payload: %w", err)
	}
	if raw.Table == "" {
		raw.Table = fallback
	}
	return raw.Narrow()
}

// Narrow validates the raw payload and extracts the record key.
func (r RawChange) Narrow() (Change, error) {
	if !r.Table.IsValid() {
		return Change{}, fmt.Errorf("unwatched table %q", r.Table)
	}

	var record map[string]any
	switch r.EventType {
	case echo.EventInsert, echo.EventUpdate:
		record = r.New
	case echo.EventDelete:
		record = r.Old
	default:
		return Change{}, fmt.Errorf("unknown event type %q", r.EventType)
	}
	if record == nil {
		return Change{}, fmt.Errorf("%s on %s carries no row", r.EventType, r.Table)
	}

	id, err := recordKey(r.Table, record)
	if err != nil {
		return Change{}, fmt.Errorf("%s on %s: %w", r.EventType, r.Table, err)
	}

	return Change{Table: r.Table, Type: r.EventType, RecordID: id, Record: record}, nil
}

func recordKey(table model.Table, record map[string]any) (string, error) {
	if table == model.TableProjectMembers {
		projectID, err := stringField(record, "project_id")
		if err != nil {
			return "", err
		}
		userID, err := stringField(record, "user_id")
		if err != nil {
			return "", err
		}
		return model.MemberKey(projectID, userID), nil
	}
	return stringField(record, "id")
}

// stringField reads an id-like column. JSON numbers decode as float64, so
// integral numbers are formatted without a fractional part.
func stringField(record map[string]any, name string) (string, error) {
	v, ok := record[name]
	if !ok || v == nil {
		return "", fmt.Errorf("missing %q", name)
	}
	switch x := v.(type) {
	case string:
		if x == "" {
			return "", fmt.Errorf("empty %q", name)
		}
		return x, nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return "", fmt.Errorf("non-integral %q: %v", name, x)
		}
		return strconv.FormatInt(int64(x), 10), nil
	case json.Number:
		return x.String(), nil
	default:
		return "", fmt.Errorf("unsupported type %T for %q", v, name)
	}
}

// decodeProfile converts a profiles row into a model.Profile.
func decodeProfile(record map[string]any) (*model.Profile, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	var p model.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, fmt.Errorf("profile row has no id")
	}
	return &p, nil
}
