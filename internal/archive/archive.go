package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	supa "github.com/supabase-community/supabase-go"
)

// Archive uploads finished exports to Supabase Storage so they outlive
// the in-memory session. It is optional: the pipeline works without it.
type Archive struct {
	client     *supa.Client
	bucket     string
	baseURL    string
	httpClient *http.Client
	log        *logrus.Logger
}

func New(client *supa.Client, supabaseURL, bucket string, log *logrus.Logger) *Archive {
	return &Archive{
		client:     client,
		bucket:     bucket,
		baseURL:    strings.TrimRight(supabaseURL, "/"),
		httpClient: &http.Client{Timeout: 120 * time.Second},
		log:        log,
	}
}

// UploadExport stores the stitched video under the storyboard's id and
// returns the storage path. It requests a signed upload URL and PUTs the
// bytes to it.
func (a *Archive) UploadExport(ctx context.Context, storyboardID uuid.UUID, data []byte) (string, error) {
	path := fmt.Sprintf("%s/export.mp4", storyboardID)

	signed, err := a.client.Storage.CreateSignedUploadUrl(a.bucket, path)
	if err != nil {
		return "", fmt.Errorf("creating signed upload url: %w", err)
	}
	uploadURL := signed.Url
	if !strings.HasPrefix(uploadURL, "http") {
		if !strings.HasPrefix(uploadURL, "/") {
			uploadURL = "/" + uploadURL
		}
		uploadURL = a.baseURL + uploadURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "video/mp4")

	res, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading export: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return "", fmt.Errorf("upload rejected (http %d): %s", res.StatusCode, string(body))
	}

	if a.log != nil {
		a.log.WithFields(logrus.Fields{
			"bucket": a.bucket,
			"path":   path,
			"bytes":  len(data),
		}).Info("Export uploaded to storage")
	}
	return path, nil
}
