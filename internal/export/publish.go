package export

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/jonathan/interview-coach/internal/config"
)

// PresignExpiry is how long an S3 download URL stays valid.
const PresignExpiry = time.Hour

// Published locates a stored export.
type Published struct {
	Path      string
	URL       string
	ExpiresAt time.Time
}

// Publisher stores a rendered PDF.
type Publisher interface {
	Publish(ctx context.Context, interviewID uuid.UUID, fileName string, pdf []byte) (*Published, error)
}

// FileName is the published name of an interview's report.
func FileName(interviewID uuid.UUID) string {
	return fmt.Sprintf("interview_report_%s.pdf", interviewID)
}

// LocalPublisher writes exports under Dir and hands out signed download links.
type LocalPublisher struct {
	Dir     string
	BaseURL string
	signer  *Signer
}

// NewLocalPublisher creates a publisher rooted at dir. Links are
// BaseURL + "/downloads/" + token; with a nil signer only the path is returned.
func NewLocalPublisher(dir, baseURL string, signer *Signer) *LocalPublisher {
	return &LocalPublisher{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/"), signer: signer}
}

// Publish implements Publisher.
func (p *LocalPublisher) Publish(_ context.Context, interviewID uuid.UUID, fileName string, pdf []byte) (*Published, error) {
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(p.Dir, filepath.Base(fileName))
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write export: %w", err)
	}

	if p.signer == nil {
		return &Published{Path: path}, nil
	}
	token, expiresAt, err := p.signer.Issue(interviewID, filepath.Base(fileName))
	if err != nil {
		return nil, err
	}
	return &Published{Path: path, URL: p.BaseURL + "/downloads/" + token, ExpiresAt: expiresAt}, nil
}

// Open resolves a download token to the file it grants.
func (p *LocalPublisher) Open(token string) (path string, claims *DownloadClaims, err error) {
	if p.signer == nil {
		return "", nil, fmt.Errorf("downloads are not signed")
	}
	claims, err = p.signer.Verify(token)
	if err != nil {
		return "", nil, err
	}
	name := filepath.Base(claims.FileName)
	if name != claims.FileName || name == "." || name == string(filepath.Separator) {
		return "", nil, fmt.Errorf("token names an invalid file")
	}
	path = filepath.Join(p.Dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", nil, fmt.Errorf("export not available: %w", err)
	}
	return path, claims, nil
}

// S3Publisher uploads exports to an S3-compatible bucket.
type S3Publisher struct {
	client   *minio.Client
	bucket   string
	region   string
	initOnce sync.Once
	initErr  error
}

// NewS3Publisher creates a publisher for cfg.
func NewS3Publisher(cfg config.S3Config) (*S3Publisher, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Publisher{client: client, bucket: bucket, region: region}, nil
}

func (p *S3Publisher) ensureBucket(ctx context.Context) error {
	p.initOnce.Do(func() {
		exists, err := p.client.BucketExists(ctx, p.bucket)
		if err != nil {
			p.initErr = err
			return
		}
		if !exists {
			p.initErr = p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{Region: p.region})
		}
	})
	return p.initErr
}

// ObjectKey is the bucket key of an interview's report.
func ObjectKey(interviewID uuid.UUID, fileName string) string {
	return "reports/" + interviewID.String() + "/" + filepath.Base(fileName)
}

// Publish implements Publisher.
func (p *S3Publisher) Publish(ctx context.Context, interviewID uuid.UUID, fileName string, pdf []byte) (*Published, error) {
	if err := p.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}

	key := ObjectKey(interviewID, fileName)
	_, err := p.client.PutObject(ctx, p.bucket, key, bytes.NewReader(pdf), int64(len(pdf)), minio.PutObjectOptions{
		ContentType:        "application/pdf",
		ContentDisposition: fmt.Sprintf(`attachment; filename="%s"`, filepath.Base(fileName)),
	})
	if err != nil {
		return nil, fmt.Errorf("upload export: %w", err)
	}

	u, err := p.client.PresignedGetObject(ctx, p.bucket, key, PresignExpiry, url.Values{})
	if err != nil {
		return nil, fmt.Errorf("presign export: %w", err)
	}
	return &Published{
		Path:      "s3://" + p.bucket + "/" + key,
		URL:       u.String(),
		ExpiresAt: time.Now().Add(PresignExpiry),
	}, nil
}
