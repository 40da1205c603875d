package audit

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// Archiver persists raw webhook payloads for security review and dispute
// handling. Archiving is best effort: it must never influence the webhook
// response, because the gateway's retry behavior keys off the status code.
type Archiver interface {
	ArchiveWebhook(ctx context.Context, merchantOrderID string, verified bool, payload []byte)
}

// SpacesConfig holds configuration for the S3-compatible archive bucket
type SpacesConfig struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Endpoint  string
}

// SpacesArchiver writes payloads to S3-compatible object storage, keyed
// by date and merchant order id.
type SpacesArchiver struct {
	s3Client *s3.S3
	bucket   string
}

// NewSpacesArchiver creates an archiver backed by object storage
func NewSpacesArchiver(config SpacesConfig) (*SpacesArchiver, error) {
	sess, err := session.NewSession(&aws.Config{
		Credentials: credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"",
		),
		Endpoint:         aws.String(config.Endpoint),
		Region:           aws.String(config.Region),
		S3ForcePathStyle: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create archive session: %w", err)
	}

	return &SpacesArchiver{
		s3Client: s3.New(sess),
		bucket:   config.Bucket,
	}, nil
}

// ArchiveWebhook uploads one webhook payload. Rejected-signature payloads
// are archived too, under a separate prefix, since those are the ones
// security review cares about most.
func (a *SpacesArchiver) ArchiveWebhook(ctx context.Context, merchantOrderID string, verified bool, payload []byte) {
	prefix := "webhooks/verified"
	if !verified {
		prefix = "webhooks/rejected"
	}
	if merchantOrderID == "" {
		merchantOrderID = "unknown"
	}

	key := fmt.Sprintf("%s/%s/%s-%d.json",
		prefix,
		time.Now().UTC().Format("2006-01-02"),
		merchantOrderID,
		time.Now().UnixNano(),
	)

	_, err := a.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        aws.ReadSeekCloser(bytes.NewReader(payload)),
		ACL:         aws.String("private"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		log.Printf("[AUDIT] failed to archive webhook payload %s: %v", key, err)
	}
}

// NopArchiver discards payloads. Used when no archive bucket is
// configured and in tests.
type NopArchiver struct{}

// ArchiveWebhook does nothing
func (NopArchiver) ArchiveWebhook(ctx context.Context, merchantOrderID string, verified bool, payload []byte) {
}
