//go:build !no_s3

package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/prasisiri/pycode-cronjob/internal/config"
)

const (
	defaultS3Endpoint = "s3.amazonaws.com"
	defaultS3Region   = "us-east-1"
)

// S3Settings is the validated [s3] section
type S3Settings struct {
	Endpoint    string
	Secure      bool
	Region      string
	AccessKey   string
	SecretKey   string
	Bucket      string
	ObjectName  string
	ContentType string
}

func parseS3Settings(section config.Section, filePath string) (S3Settings, error) {
	accessKey, err := section.String("s3_access_key")
	if err != nil {
		return S3Settings{}, err
	}
	secretKey, err := section.String("s3_secret_key")
	if err != nil {
		return S3Settings{}, err
	}
	bucket, err := section.String("bucket")
	if err != nil {
		return S3Settings{}, err
	}

	endpoint, secure, err := parseEndpoint(section.StringOr("endpoint_url", ""))
	if err != nil {
		return S3Settings{}, err
	}

	return S3Settings{
		Endpoint:    endpoint,
		Secure:      secure,
		Region:      section.StringOr("region", defaultS3Region),
		AccessKey:   accessKey,
		SecretKey:   secretKey,
		Bucket:      bucket,
		ObjectName:  section.StringOr("object_name", filepath.Base(filePath)),
		ContentType: section.StringOr("content_type", ""),
	}, nil
}

// parseEndpoint splits endpoint_url into the host minio expects and whether
// to use TLS. The scheme decides TLS; a bare host defaults to TLS.
func parseEndpoint(raw string) (string, bool, error) {
	if raw == "" {
		return defaultS3Endpoint, true, nil
	}
	if !strings.Contains(raw, "://") {
		return strings.TrimSuffix(raw, "/"), true, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("s3: invalid endpoint URL %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("s3: invalid endpoint URL %q: missing host", raw)
	}
	if u.Path != "" && u.Path != "/" {
		return "", false, fmt.Errorf("s3: invalid endpoint URL %q: path is not supported", raw)
	}

	switch u.Scheme {
	case "https":
		return u.Host, true, nil
	case "http":
		return u.Host, false, nil
	default:
		return "", false, fmt.Errorf("s3: invalid endpoint URL %q: unsupported scheme %s", raw, u.Scheme)
	}
}

// objectPutter is the subset of *minio.Client used for uploads
type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64,
		opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type objectClientFactory func(S3Settings) (objectPutter, error)

func newMinioClient(s S3Settings) (objectPutter, error) {
	client, err := minio.New(s.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(s.AccessKey, s.SecretKey, ""),
		Secure: s.Secure,
		Region: s.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: failed to create client: %w", err)
	}
	return client, nil
}

// MinioTransport uploads to S3-compatible object storage
type MinioTransport struct {
	logger    *slog.Logger
	newClient objectClientFactory
}

// NewMinioTransport creates a new MinioTransport
func NewMinioTransport(logger *slog.Logger) *MinioTransport {
	return &MinioTransport{logger: logger, newClient: newMinioClient}
}

// Kind returns the transport kind
func (m *MinioTransport) Kind() Kind {
	return KindS3
}

// Inspect validates the [s3] section. The object name is shown unresolved
// when it defaults to the local file name.
func (m *MinioTransport) Inspect(section config.Section) (map[string]string, error) {
	s, err := parseS3Settings(section, "<file name>")
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"endpoint":      s.Endpoint,
		"secure":        fmt.Sprint(s.Secure),
		"region":        s.Region,
		"bucket":        s.Bucket,
		"object_name":   s.ObjectName,
		"s3_access_key": s.AccessKey,
		"s3_secret_key": maskSecret(s.SecretKey),
	}, nil
}

// Upload stores the file as a single object
func (m *MinioTransport) Upload(ctx context.Context, filePath string, section config.Section) Outcome {
	settings, err := parseS3Settings(section, filePath)
	if err != nil {
		m.logger.Error("S3 upload failed", "error", err)
		return Failure(KindS3, err)
	}

	m.logger.Info(fmt.Sprintf("Uploading %s to S3 bucket %s", filePath, settings.Bucket), "endpoint", settings.Endpoint)

	info, err := m.put(ctx, filePath, settings)
	if err != nil {
		m.logger.Error("S3 upload failed", "error", err)
		return Failure(KindS3, err)
	}

	destination := settings.Bucket + "/" + settings.ObjectName
	m.logger.Info(fmt.Sprintf("S3 upload completed successfully to %s", destination),
		"etag", info.ETag, "size", humanize.Bytes(uint64(info.Size)))
	return Success(KindS3, destination, info.Size, "S3 upload completed successfully to "+destination)
}

func (m *MinioTransport) put(ctx context.Context, filePath string, s S3Settings) (minio.UploadInfo, error) {
	client, err := m.newClient(s)
	if err != nil {
		return minio.UploadInfo{}, err
	}

	f, err := os.Open(filePath)
	if err != nil {
		return minio.UploadInfo{}, fmt.Errorf("s3: failed to open %s: %w", filePath, err)
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return minio.UploadInfo{}, fmt.Errorf("s3: failed to stat %s: %w", filePath, err)
	}

	contentType := s.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(filePath))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := client.PutObject(ctx, s.Bucket, s.ObjectName, f, stat.Size(), minio.PutObjectOptions{
		ContentType:      contentType,
		DisableMultipart: true,
	})
	if err != nil {
		return minio.UploadInfo{}, fmt.Errorf("s3: failed to upload to %s/%s: %s", s.Bucket, s.ObjectName, describeS3Error(err))
	}
	if info.Size == 0 {
		info.Size = stat.Size()
	}
	return info, nil
}

// describeS3Error renders an S3 error response as "Code: message"
func describeS3Error(err error) string {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) && resp.Code != "" {
		code := string(resp.Code)
		if resp.Message != "" {
			return code + ": " + resp.Message
		}
		return code
	}
	return err.Error()
}

func init() {
	RegisterTransport(KindS3, func(logger *slog.Logger) Transport {
		return NewMinioTransport(logger)
	})
}
