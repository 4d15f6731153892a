package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

// Uploader is the part of the Cloudinary upload API this package calls.
type Uploader interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
}

// Client uploads chat attachments. PDFs and images both go through the "auto"
// resource type so Cloudinary stores each under its natural type.
type Client struct {
	cloudName string
	uploader  Uploader
}

func NewClient(cloudName string, up Uploader) *Client {
	return &Client{cloudName: cloudName, uploader: up}
}

// NewClientFromParams builds a Client from Cloudinary cloud name, API key, and secret.
func NewClientFromParams(cloudName, apiKey, apiSecret string) (*Client, error) {
	cfg, err := config.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	up, err := uploader.NewWithConfiguration(cfg)
	if err != nil {
		return nil, err
	}
	return NewClient(cloudName, up), nil
}

var overwrite = false

func (c *Client) UploadAttachment(ctx context.Context, file io.Reader, folder, publicID string) (string, error) {
	result, err := c.uploader.Upload(ctx, file, uploader.UploadParams{
		Folder:       folder,
		PublicID:     publicID,
		ResourceType: "auto",
		Overwrite:    &overwrite,
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", result.Error.Message)
	}
	if result.SecureURL == "" {
		return "", errors.New("cloudinary upload: empty url")
	}
	return result.SecureURL, nil
}
