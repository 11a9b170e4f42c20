package encoding

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// Blob is the raw content of a fetched document.
type Blob struct {
	Data []byte
	// ContentType is the media type reported by the source, if any.
	ContentType string
}

// Source fetches documents for one URI scheme. ref is the source string
// with the scheme prefix removed.
type Source interface {
	Fetch(ctx context.Context, ref string) (Blob, error)
}

// FileSource reads documents from the local filesystem.
type FileSource struct {
	// MaxBytes rejects files larger than this when positive.
	MaxBytes int64
}

func (s FileSource) Fetch(ctx context.Context, ref string) (Blob, error) {
	if err := ctx.Err(); err != nil {
		return Blob{}, err
	}

	path := filepath.Clean(ref)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Blob{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Blob{}, err
	}
	if info.IsDir() {
		return Blob{}, fmt.Errorf("%s is a directory", path)
	}
	if s.MaxBytes > 0 && info.Size() > s.MaxBytes {
		return Blob{}, fmt.Errorf("%s is %d bytes, limit is %d", path, info.Size(), s.MaxBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Blob{}, err
	}
	return Blob{Data: data}, nil
}

// blobGetter is the slice of the azblob client BlobSource needs.
type blobGetter interface {
	Get(ctx context.Context, container, name string) (io.ReadCloser, string, error)
}

type azblobGetter struct {
	client *azblob.Client
}

func (g azblobGetter) Get(ctx context.Context, container, name string) (io.ReadCloser, string, error) {
	resp, err := g.client.DownloadStream(ctx, container, name, nil)
	if err != nil {
		return nil, "", err
	}
	var contentType string
	if resp.ContentType != nil {
		contentType = *resp.ContentType
	}
	return resp.Body, contentType, nil
}

// BlobSource reads documents from Azure Blob Storage. References have the
// form <container>/<blob path>.
type BlobSource struct {
	getter   blobGetter
	maxBytes int64
}

// NewBlobSource authenticates against the storage account with a token
// credential. A nil credential uses the default Azure credential chain.
func NewBlobSource(accountURL string, cred azcore.TokenCredential) (*BlobSource, error) {
	if cred == nil {
		var err error
		cred, err = azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("creating azure credential: %w", err)
		}
	}
	client, err := azblob.NewClient(accountURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("creating blob client: %w", err)
	}
	return &BlobSource{getter: azblobGetter{client: client}}, nil
}

// NewBlobSourceFromConnectionString is NewBlobSource for shared-key auth.
func NewBlobSourceFromConnectionString(connStr string) (*BlobSource, error) {
	client, err := azblob.NewClientFromConnectionString(connStr, nil)
	if err != nil {
		return nil, fmt.Errorf("creating blob client: %w", err)
	}
	return &BlobSource{getter: azblobGetter{client: client}}, nil
}

// WithMaxBytes limits the size of downloaded blobs.
func (s *BlobSource) WithMaxBytes(n int64) *BlobSource {
	s.maxBytes = n
	return s
}

func (s *BlobSource) Fetch(ctx context.Context, ref string) (Blob, error) {
	container, name, ok := strings.Cut(strings.TrimPrefix(ref, "/"), "/")
	if !ok || container == "" || name == "" {
		return Blob{}, fmt.Errorf("blob reference %q must be <container>/<blob>", ref)
	}

	body, contentType, err := s.getter.Get(ctx, container, name)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return Blob{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return Blob{}, fmt.Errorf("downloading %s: %w", ref, err)
	}
	defer body.Close()

	var r io.Reader = body
	if s.maxBytes > 0 {
		r = io.LimitReader(body, s.maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Blob{}, fmt.Errorf("reading %s: %w", ref, err)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return Blob{}, fmt.Errorf("%s exceeds %d bytes", ref, s.maxBytes)
	}
	return Blob{Data: data, ContentType: contentType}, nil
}
