package chat

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
)

// imageExtension sniffs the payload's magic bytes. Unrecognized payloads
// default to .png, which downstream vision tooling tolerates.
func imageExtension(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG")):
		return ".png"
	case bytes.HasPrefix(data, []byte("\xff\xd8\xff")):
		return ".jpg"
	case bytes.HasPrefix(data, []byte("GIF8")):
		return ".gif"
	case bytes.HasPrefix(data, []byte("RIFF")) && len(data) >= 12 && bytes.Equal(data[8:12], []byte("WEBP")):
		return ".webp"
	default:
		return ".png"
	}
}

// stageImage decodes a base64 payload into a temp file so the orchestrator
// can reference it by path. The cleanup func removes the file and is safe to
// defer unconditionally.
func stageImage(encoded string) (string, func(), error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, fmt.Errorf("decode image payload: %w", err)
	}

	f, err := os.CreateTemp("", "chat-image-*"+imageExtension(data))
	if err != nil {
		return "", nil, fmt.Errorf("create image temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("write image temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("close image temp file: %w", err)
	}

	path := f.Name()
	return path, func() { os.Remove(path) }, nil
}
