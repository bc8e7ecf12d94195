package utils

import (
	"encoding/json"
	"net/http"
)

// SetupNDJSONHeaders prepares a response for newline-delimited JSON
// streaming.
func SetupNDJSONHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// WriteNDJSONLine marshals payload as one NDJSON line and flushes it so the
// client sees each frame as soon as it is produced.
func WriteNDJSONLine(w http.ResponseWriter, flusher http.Flusher, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
