// docconvert moves uploaded documents into the knowledge base corpus:
// presentations are converted to PDF with LibreOffice, other supported
// formats are copied through, and the source objects are deleted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iecho-platform/iecho/backend/internal/logger"
	"github.com/iecho-platform/iecho/backend/internal/storage"
)

const (
	uploadsPrefix   = "uploads/"
	processedPrefix = "processed/"

	// maxUploadBytes skips oversized uploads instead of failing the run.
	maxUploadBytes = 50 << 20

	convertTimeout = 4 * time.Minute
)

// copyThroughExtensions are ingested as-is.
var copyThroughExtensions = map[string]bool{
	".pdf":  true,
	".txt":  true,
	".md":   true,
	".html": true,
	".docx": true,
}

func main() {
	var (
		bucket          string
		credentialsFile string
		sofficePath     string
	)

	rootCmd := &cobra.Command{
		Use:   "docconvert",
		Short: "Convert uploaded documents and publish them to the knowledge base corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.New("", false)
			defer log.Sync()
			return run(cmd.Context(), bucket, credentialsFile, sofficePath, log)
		},
	}
	rootCmd.Flags().StringVar(&bucket, "bucket", os.Getenv("GCS_BUCKET"), "GCS bucket holding uploads/ and processed/")
	rootCmd.Flags().StringVar(&credentialsFile, "credentials", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"), "service account key file")
	rootCmd.Flags().StringVar(&sofficePath, "soffice", "soffice", "LibreOffice binary used for presentation conversion")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, bucket, credentialsFile, sofficePath string, log *zap.Logger) error {
	docs, err := storage.NewDocuments(ctx, bucket, credentialsFile, log)
	if err != nil {
		return err
	}
	defer docs.Close()

	uploads, err := docs.ListPrefix(ctx, uploadsPrefix)
	if err != nil {
		return err
	}
	if len(uploads) == 0 {
		log.Info("no uploads to process")
		return nil
	}

	processed := 0
	for _, key := range uploads {
		if err := processUpload(ctx, docs, key, sofficePath, log); err != nil {
			log.Error("upload processing failed", zap.String("key", key), zap.Error(err))
			continue
		}
		processed++
	}
	log.Info("processing completed", zap.Int("processedFiles", processed), zap.Int("total", len(uploads)))
	return nil
}

func processUpload(ctx context.Context, docs *storage.Documents, key, sofficePath string, log *zap.Logger) error {
	size, err := docs.Size(ctx, key)
	if err != nil {
		return err
	}
	if size > maxUploadBytes {
		log.Warn("skipping oversized upload", zap.String("key", key), zap.Int64("bytes", size))
		return nil
	}

	name := path.Base(key)
	ext := strings.ToLower(path.Ext(name))
	switch {
	case ext == ".ppt" || ext == ".pptx":
		pdfKey, err := convertPresentation(ctx, docs, key, name, sofficePath)
		if err != nil {
			return err
		}
		log.Info("converted presentation", zap.String("from", key), zap.String("to", pdfKey))
	case copyThroughExtensions[ext]:
		if err := docs.Copy(ctx, key, processedPrefix+name); err != nil {
			return err
		}
		log.Info("copied document", zap.String("from", key), zap.String("to", processedPrefix+name))
	default:
		log.Warn("skipping unsupported format", zap.String("key", key))
		return nil
	}

	return docs.Delete(ctx, key)
}

// convertPresentation downloads the deck, renders it to PDF with LibreOffice,
// and uploads the result under processed/.
func convertPresentation(ctx context.Context, docs *storage.Documents, key, name, sofficePath string) (string, error) {
	tempDir, err := os.MkdirTemp("", "docconvert-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tempDir)

	localPath := filepath.Join(tempDir, name)
	if err := docs.Download(ctx, key, localPath); err != nil {
		return "", err
	}

	convertCtx, cancel := context.WithTimeout(ctx, convertTimeout)
	defer cancel()
	cmd := exec.CommandContext(convertCtx, sofficePath, "--headless", "--convert-to", "pdf", "--outdir", tempDir, localPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("soffice conversion: %w: %s", err, out)
	}

	base := strings.TrimSuffix(name, path.Ext(name))
	pdfPath := filepath.Join(tempDir, base+".pdf")
	if _, err := os.Stat(pdfPath); err != nil {
		return "", fmt.Errorf("converted pdf not found: %w", err)
	}

	pdfKey := processedPrefix + base + ".pdf"
	if err := docs.Upload(ctx, pdfPath, pdfKey); err != nil {
		return "", err
	}
	return pdfKey, nil
}
