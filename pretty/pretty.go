// Package pretty formats values for logs and exported reports.
package pretty

import (
	"encoding/json"
	"fmt"
)

const indent = "  "

// Object returns the indented JSON form of o, falling back to its default format.
func Object(o interface{}) string {
	b, err := json.MarshalIndent(o, "", indent)
	if err != nil {
		return fmt.Sprint(o)
	}
	return string(b)
}

// JSON returns the indented JSON form of o terminated by a newline.
func JSON(o interface{}) ([]byte, error) {
	b, err := json.MarshalIndent(o, "", indent)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
