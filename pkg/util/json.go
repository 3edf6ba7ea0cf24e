package util

import (
	"encoding/json"
	"io"
)

// FprintJSON writes v to w as indented JSON followed by a newline.
func FprintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
