package permission

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes the nested edit form in module id order:
//
//	{"Order Management": {"moduleId": 7, "all": false, "view": true, ...}}
func (m Matrix) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(e.name)
		if err != nil {
			return nil, err
		}
		set, err := json.Marshal(e.set)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(set)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the nested edit form. The incoming "all" value is
// ignored and recomputed.
func (m *Matrix) UnmarshalJSON(data []byte) error {
	var in map[string]PermissionSet
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode permission matrix: %w", err)
	}
	b := newBuilder(len(in))
	for name, set := range in {
		if err := b.add(name, set); err != nil {
			return err
		}
	}
	*m = b.matrix()
	return nil
}
