package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"guardianangel/internal/domain"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const MaxAttachmentSize = 2 << 20 // 2 MiB

var allowedAttachmentTypes = []string{"application/pdf", "image/png", "image/jpeg"}

var (
	ErrAttachmentTooLarge  = errors.New("attachment exceeds 2 MiB")
	ErrAttachmentType      = errors.New("attachment must be a PDF, PNG or JPEG")
	ErrAttachmentsDisabled = errors.New("attachments are not configured")
)

// AttachmentStore keeps uploaded chat files and returns their public URL.
type AttachmentStore interface {
	UploadAttachment(ctx context.Context, file io.Reader, folder, publicID string) (url string, err error)
}

type Attachment struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	Size     int    `json:"size"`
}

// AttachFile stores a file for a chat the caller may write to. The content type is
// sniffed from the bytes; the client's declared type is not trusted.
func (s *ChatService) AttachFile(ctx context.Context, p domain.Principal, chatID uint, file io.Reader) (*Attachment, error) {
	if s.media == nil {
		return nil, ErrAttachmentsDisabled
	}
	if _, err := s.OpenChat(p, chatID); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(file, MaxAttachmentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read attachment: %w", err)
	}
	if len(data) > MaxAttachmentSize {
		return nil, ErrAttachmentTooLarge
	}
	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), allowedAttachmentTypes...) {
		return nil, ErrAttachmentType
	}

	folder := fmt.Sprintf("chats/%d", chatID)
	publicID := "att_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	url, err := s.media.UploadAttachment(ctx, bytes.NewReader(data), folder, publicID)
	if err != nil {
		s.log.Error("attachment upload failed", zap.Uint("chat_id", chatID), zap.Error(err))
		return nil, err
	}
	return &Attachment{URL: url, MimeType: mt.String(), Size: len(data)}, nil
}
