package clubworx

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is an identifier the service hands out either as a JSON string or a JSON
// number. Numbers keep their literal text, so 42 and "42" decode to the same ID.
type ID string

// isNumberLiteral reports whether raw holds a JSON number rather than a
// string or null.
func isNumberLiteral(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] != '"' && !bytes.Equal(raw, []byte("null"))
}

func (id ID) String() string {
	return string(id)
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		err := json.Unmarshal(data, &s)
		if err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	err := json.Unmarshal(data, &n)
	if err != nil {
		return fmt.Errorf("id must be a string or number, got %s", data)
	}
	*id = ID(n.String())
	return nil
}
