// internal/jsonlutil/jsonlutil.go
package jsonlutil

import (
	"bufio"
	"encoding/json"
	"io"
)

// Write encodes each element of vs as one JSON line, converting it with conv
// first. Output is buffered and flushed once at the end.
func Write[T, W any](out io.Writer, vs []T, conv func(T) W) error {
	bw := bufio.NewWriterSize(out, 64<<10)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for _, v := range vs {
		if err := enc.Encode(conv(v)); err != nil {
			return err
		}
	}
	return bw.Flush()
}
