package discord

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prefeitura-rio/app-identidade/internal/models"
	"github.com/prefeitura-rio/app-identidade/internal/utils"
	"github.com/prefeitura-rio/app-identidade/internal/utils/httpclient"
)

// AttachmentFetcher downloads attachment bytes from the Discord CDN
type AttachmentFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewAttachmentFetcher creates a fetcher that rejects bodies over maxBytes
func NewAttachmentFetcher(timeout time.Duration, maxBytes int64) *AttachmentFetcher {
	return &AttachmentFetcher{
		client:   httpclient.NewClient(timeout),
		maxBytes: maxBytes,
	}
}

// Fetch returns the attachment body. Every failure wraps models.ErrTransport.
func (f *AttachmentFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, span := utils.TraceExternalService(ctx, "discord_cdn", "fetch_attachment")
	defer span.End()

	data, err := httpclient.Download(ctx, f.client, url, f.maxBytes)
	if err != nil {
		err = fmt.Errorf("%w: %v", models.ErrTransport, err)
		utils.RecordErrorInSpan(span, err, nil)
		return nil, err
	}
	utils.AddSpanAttribute(span, "attachment.bytes", len(data))
	return data, nil
}
