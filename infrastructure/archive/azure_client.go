package archive

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// AzureConfig configures the Azure Blob Storage client. Without an account
// key or connection string the default Azure credential is used.
type AzureConfig struct {
	Container        string
	AccountName      string
	AccountKey       string
	ConnectionString string
}

// AzureClient stores objects in one blob container.
type AzureClient struct {
	client    *azblob.Client
	container string
}

// NewAzureClient creates an Azure Blob Storage client.
func NewAzureClient(cfg AzureConfig) (*AzureClient, error) {
	if cfg.AccountName == "" && cfg.ConnectionString == "" {
		return nil, errors.New("account name or connection string is required")
	}

	var (
		client *azblob.Client
		err    error
	)
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)

	switch {
	case cfg.ConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	case cfg.AccountKey != "":
		var cred *azblob.SharedKeyCredential
		cred, err = azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
		if err == nil {
			client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
		}
	default:
		var cred *azidentity.DefaultAzureCredential
		cred, err = azidentity.NewDefaultAzureCredential(nil)
		if err == nil {
			client, err = azblob.NewClient(serviceURL, cred, nil)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create azure blob client: %w", err)
	}

	return &AzureClient{client: client, container: cfg.Container}, nil
}

// Upload streams the blob.
func (c *AzureClient) Upload(ctx context.Context, key string, content io.Reader, _ int64) error {
	_, err := c.client.UploadStream(ctx, c.container, key, content, nil)
	return err
}

// Download streams the blob.
func (c *AzureClient) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := c.client.DownloadStream(ctx, c.container, key, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Delete deletes the blob.
func (c *AzureClient) Delete(ctx context.Context, key string) error {
	_, err := c.client.DeleteBlob(ctx, c.container, key, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return ErrObjectNotFound
	}
	return err
}

// List pages through the blobs under prefix.
func (c *AzureClient) List(ctx context.Context, prefix string) ([]Object, error) {
	opts := &azblob.ListBlobsFlatOptions{}
	if prefix != "" {
		opts.Prefix = &prefix
	}

	var objects []Object
	pager := c.client.NewListBlobsFlatPager(c.container, opts)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, b := range page.Segment.BlobItems {
			if b.Name == nil {
				continue
			}
			o := Object{Key: *b.Name}
			if b.Properties != nil {
				if b.Properties.ContentLength != nil {
					o.Size = *b.Properties.ContentLength
				}
				if b.Properties.LastModified != nil {
					o.Modified = *b.Properties.LastModified
				}
			}
			objects = append(objects, o)
		}
	}
	return objects, nil
}

var _ Client = (*AzureClient)(nil)
