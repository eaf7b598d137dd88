package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// Uploader pushes a local artifact to object storage and returns a
// time-limited read URL for it.
type Uploader interface {
	Upload(ctx context.Context, localPath, remoteName string) (string, error)
}

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Service implements Uploader using Cloudinary authenticated delivery, so
// the returned URLs are signed and expire.
type Service struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

// New constructs a Cloudinary service instance.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}
	cld.Config.URL.SignURL = true

	return &Service{
		client: cld,
		folder: cfg.Folder,
		logger: logger.With().Str("component", "storage").Logger(),
	}, nil
}

// Upload sends the local file to Cloudinary and returns a signed URL.
// A missing or empty local file is an error.
func (s *Service) Upload(ctx context.Context, localPath, remoteName string) (string, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		return "", fmt.Errorf("artifact not readable: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("artifact is not a regular file: %s", localPath)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("artifact is empty: %s", localPath)
	}

	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer file.Close()

	params := uploader.UploadParams{
		Folder:       strings.Trim(s.folder, "/"),
		PublicID:     publicID(remoteName),
		ResourceType: "auto",
		Type:         "authenticated",
	}

	result, err := s.client.Upload.Upload(ctx, file, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload artifact: %w", err)
	}

	s.logger.Info().
		Str("public_id", result.PublicID).
		Int64("size", info.Size()).
		Msg("artifact uploaded")

	return result.SecureURL, nil
}

func publicID(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, base)

	return strings.Trim(base, "-")
}
