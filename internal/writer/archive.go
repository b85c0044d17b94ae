// Package writer archives risk results to S3 as snappy-compressed parquet.
package writer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	appconfig "fxrisk/config"
	"fxrisk/internal/models"
	"fxrisk/logger"
)

const (
	TableRiskRows = "risk_rows"
	TableExposure = "exposure_summary"
)

type memFile struct {
	buffer *bytes.Buffer
}

func newMemFile() *memFile {
	return &memFile{buffer: &bytes.Buffer{}}
}

func (m *memFile) Create(string) (source.ParquetFile, error) { return m, nil }
func (m *memFile) Open(string) (source.ParquetFile, error)   { return m, nil }
func (m *memFile) Seek(int64, int) (int64, error)            { return int64(m.buffer.Len()), nil }
func (m *memFile) Read([]byte) (int, error)                  { return 0, io.EOF }
func (m *memFile) Write(b []byte) (int, error)               { return m.buffer.Write(b) }
func (m *memFile) Close() error                              { return nil }
func (m *memFile) Bytes() []byte                             { return m.buffer.Bytes() }

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archive uploads one parquet object per table per run.
type Archive struct {
	putter objectPutter
	bucket string
	prefix string
	log    *logger.Entry
}

// NewArchive builds the S3 client from cfg. Static credentials are used when
// both keys are set, otherwise the default AWS chain.
func NewArchive(ctx context.Context, cfg appconfig.S3Config) (*Archive, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("s3 storage is disabled")
	}
	bucket, err := normalizeBucketName(cfg.Bucket)
	if err != nil {
		return nil, err
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	a := newArchive(client, bucket, cfg.Prefix)
	a.log.WithFields(logger.Fields{
		"region":     cfg.Region,
		"endpoint":   cfg.Endpoint,
		"path_style": cfg.PathStyle,
	}).Info("archive writer initialized")
	return a, nil
}

func normalizeBucketName(raw string) (string, error) {
	bucket := strings.TrimSpace(raw)
	if bucket == "" {
		return "", fmt.Errorf("s3 bucket not configured")
	}
	return bucket, nil
}

func newArchive(putter objectPutter, bucket, prefix string) *Archive {
	return &Archive{
		putter: putter,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		log:    logger.GetLogger().WithComponent("archive").WithFields(logger.Fields{"bucket": bucket}),
	}
}

// ObjectKey returns prefix/date=YYYY-MM-DD/<table>_<yyyymmddhhmmss>_<run>.parquet
// using the UTC date of at.
func ObjectKey(prefix, table string, at time.Time, runID string) string {
	at = at.UTC()
	name := fmt.Sprintf("%s_%s_%s.parquet", table, at.Format("20060102150405"), runID)
	return path.Join(strings.Trim(prefix, "/"), "date="+at.Format("2006-01-02"), name)
}

// WriteRiskRows archives the priced rows and returns the object key.
func (a *Archive) WriteRiskRows(ctx context.Context, runID string, at time.Time, rows []models.RiskRow) (string, error) {
	records := make([]riskRecord, len(rows))
	for i, row := range rows {
		records[i] = newRiskRecord(runID, at, row)
	}
	data, err := encodeParquet(new(riskRecord), records)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", TableRiskRows, err)
	}
	return a.put(ctx, TableRiskRows, runID, at, data, len(records))
}

// WriteExposure archives the per-currency summary and returns the object key.
func (a *Archive) WriteExposure(ctx context.Context, runID string, at time.Time, summary models.ExposureSummary) (string, error) {
	records := make([]exposureRecord, len(summary))
	for i, row := range summary {
		records[i] = exposureRecord{
			RunID:        runID,
			EvaluatedAt:  at.UTC().UnixMilli(),
			Currency:     row.Currency,
			TotalBCDelta: row.TotalBCDelta,
		}
	}
	data, err := encodeParquet(new(exposureRecord), records)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", TableExposure, err)
	}
	return a.put(ctx, TableExposure, runID, at, data, len(records))
}

func (a *Archive) put(ctx context.Context, table, runID string, at time.Time, data []byte, records int) (string, error) {
	key := ObjectKey(a.prefix, table, at, runID)
	_, err := a.putter.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/vnd.apache.parquet"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	a.log.WithFields(logger.Fields{
		"s3_key":  key,
		"records": records,
		"bytes":   len(data),
	}).Info("archive object uploaded")
	return key, nil
}

func encodeParquet[T any](schema *T, records []T) ([]byte, error) {
	mf := newMemFile()
	pw, err := writer.NewParquetWriter(mf, schema, 1)
	if err != nil {
		return nil, err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, rec := range records {
		if err := pw.Write(rec); err != nil {
			return nil, err
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, err
	}
	return mf.Bytes(), nil
}
