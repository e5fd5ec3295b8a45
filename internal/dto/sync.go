package dto

import (
	"encoding/json"
	"strconv"
)

// FlexID accepts both numeric and string ids. Clients that created a
// record offline send provisional string ids like "local-3"; those
// parse to zero and the server assigns a real id.
type FlexID int64

func (f *FlexID) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = FlexID(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		*f = 0
		return nil
	}
	*f = FlexID(n)
	return nil
}

func (f FlexID) Int64() int64 { return int64(f) }

// ChangeRecord is one page state pushed by a sync client. Absent fields
// stay nil so merges can tell "not sent" from a zero value.
type ChangeRecord struct {
	ID        FlexID  `json:"id"`
	Title     *string `json:"title"`
	Content   *string `json:"content"`
	Rev       *int64  `json:"rev"`
	Deleted   *int64  `json:"deleted"`
	CreatedAt *string `json:"created_at"`
	UpdatedAt *string `json:"updated_at"`
}

type changeEnvelope struct {
	Changes []ChangeRecord `json:"changes"`
}

type rowsEnvelope struct {
	Rows []ChangeRecord `json:"rows"`
}

// DecodeChangeBatch accepts either a bare JSON array of records or an
// object wrapping them as {"changes": [...]}.
func DecodeChangeBatch(raw []byte) ([]ChangeRecord, error) {
	var items []ChangeRecord
	if err := json.Unmarshal(raw, &items); err == nil {
		return items, nil
	}
	var env changeEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	return env.Changes, nil
}

// DecodeImportRows accepts either a bare JSON array of rows or an
// object wrapping them as {"rows": [...]}.
func DecodeImportRows(raw []byte) ([]ChangeRecord, error) {
	var items []ChangeRecord
	if err := json.Unmarshal(raw, &items); err == nil {
		return items, nil
	}
	var env rowsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	return env.Rows, nil
}
