package tutorial

import (
	"bytes"
	"encoding/json"
)

// compactJSON strips insignificant whitespace so that output does not depend
// on how the source file was formatted.
func compactJSON(raw []byte) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}
	return json.RawMessage(buf.Bytes()), nil
}
