package ioutil

import (
	"fmt"
	"io"
	"strings"
)

// ReadLimited reads at most limit bytes of an error response body for use in
// error messages and logs. A failed read is reported in the returned text.
func ReadLimited(r io.Reader, limit int64) string {
	body, err := io.ReadAll(io.LimitReader(r, limit))
	if err != nil {
		return fmt.Sprintf("<unreadable: %v>", err)
	}
	return strings.TrimSpace(string(body))
}
