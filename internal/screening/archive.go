package screening

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// Archive stores captured JPEGs for later review.
type Archive interface {
	Upload(ctx context.Context, screeningID string, jpegData []byte) (string, error)
}

// BlobArchive uploads to Azure block blobs under screenings/<id>.jpg.
type BlobArchive struct {
	client    *azblob.Client
	account   string
	container string
}

func NewBlobArchive(accountName, accountKey, container string) (*BlobArchive, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("building blob credential: %w", err)
	}
	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("building blob client: %w", err)
	}
	return &BlobArchive{client: client, account: accountName, container: container}, nil
}

func (a *BlobArchive) Upload(ctx context.Context, screeningID string, jpegData []byte) (string, error) {
	blobName := fmt.Sprintf("screenings/%s.jpg", screeningID)
	_, err := a.client.UploadBuffer(ctx, a.container, blobName, jpegData, nil)
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", blobName, err)
	}
	return fmt.Sprintf("https://%s.blob.core.windows.net/%s/%s", a.account, a.container, blobName), nil
}

// NopArchive is used when no blob account is configured.
type NopArchive struct{}

func (NopArchive) Upload(ctx context.Context, screeningID string, jpegData []byte) (string, error) {
	return "", nil
}
