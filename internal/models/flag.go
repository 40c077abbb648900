package models

import (
	"bytes"
	"fmt"
)

// Flag is a boolean the backend sends as true/false or as 1/0, sometimes
// quoted.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	switch string(bytes.Trim(bytes.TrimSpace(data), `"`)) {
	case "true", "1":
		*f = true
	case "false", "0", "", "null":
		*f = false
	default:
		return fmt.Errorf("decode flag: unexpected value %s", data)
	}
	return nil
}
