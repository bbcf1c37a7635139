package writer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "goldflow/config"
	"goldflow/logger"
	"goldflow/models"
)

// ArchiveWriter stores an audit trail of each reprice run as a JSONL object
// in S3. The archive is advisory: a failed upload is logged and counted, and
// never fails the run that produced it.
type ArchiveWriter struct {
	s3Client *s3.Client
	bucket   string
	prefix   string
	log      *logger.Log
}

// NewArchiveWriter configures the AWS SDK and returns an archive writer, or
// nil when archiving is disabled.
func NewArchiveWriter(cfg *appconfig.Config) (*ArchiveWriter, error) {
	if !cfg.Storage.S3.Enabled {
		return nil, nil
	}

	log := logger.GetLogger()
	ctx := context.Background()

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Storage.S3.Region)}
	if cfg.Storage.S3.AccessKeyID != "" && cfg.Storage.S3.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.Storage.S3.AccessKeyID,
				cfg.Storage.S3.SecretAccessKey,
				"",
			),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	creds, err := awsConfig.Credentials.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		return nil, fmt.Errorf("aws credentials not found")
	}

	writer := &ArchiveWriter{
		s3Client: s3.NewFromConfig(awsConfig),
		bucket:   cfg.Storage.S3.Bucket,
		prefix:   strings.Trim(cfg.Storage.S3.Prefix, "/"),
		log:      log,
	}

	log.WithComponent("archive_writer").WithFields(logger.Fields{
		"bucket": writer.bucket,
		"prefix": writer.prefix,
	}).Info("archive writer initialized")

	return writer, nil
}

type ArchiveHeader struct {
	RunID      string `json:"run_id"`
	Workflow   string `json:"workflow"`
	StartedAt  string `json:"started_at"`
	GoldRate   string `json:"gold_rate,omitempty"`
	SilverRate string `json:"silver_rate,omitempty"`
	Changes    int    `json:"changes"`
	Failed     int    `json:"failed"`
}

// ArchiveRun uploads one run's change log. The first JSONL line is the run
// header, each following line one change record.
func (w *ArchiveWriter) ArchiveRun(ctx context.Context, header ArchiveHeader, details []models.ChangeRecord) {
	log := w.log.WithComponent("archive_writer").WithFields(logger.Fields{
		"run_id":   header.RunID,
		"workflow": header.Workflow,
	})

	var body bytes.Buffer
	encoder := json.NewEncoder(&body)
	if err := encoder.Encode(header); err != nil {
		log.WithError(err).Warn("failed to encode archive header")
		return
	}
	for _, record := range details {
		if err := encoder.Encode(record); err != nil {
			log.WithError(err).Warn("failed to encode change record")
			return
		}
	}

	key := fmt.Sprintf("%s/%s/%s.jsonl", w.prefix, time.Now().UTC().Format("2006-01-02"), header.RunID)
	if w.prefix == "" {
		key = strings.TrimPrefix(key, "/")
	}

	_, err := w.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		log.WithError(err).Warn("failed to upload run archive")
		return
	}
	log.WithFields(logger.Fields{"key": key, "bytes": body.Len()}).Info("run archived")
}
