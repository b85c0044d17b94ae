package writer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "fxrisk/config"
	"fxrisk/internal/models"
)

type fakePutter struct {
	keys   []string
	bodies [][]byte
	err    error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.keys = append(f.keys, aws.ToString(in.Key))
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func TestNormalizeBucketName(t *testing.T) {
	bucket, err := normalizeBucketName(" my-bucket ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bucket != "my-bucket" {
		t.Fatalf("expected trimmed bucket 'my-bucket', got %q", bucket)
	}
}

func TestNormalizeBucketNameRequiresValue(t *testing.T) {
	if _, err := normalizeBucketName("   \t  "); err == nil {
		t.Fatal("expected error for empty bucket")
	}
}

func TestNewArchiveDisabled(t *testing.T) {
	if _, err := NewArchive(context.Background(), appconfig.S3Config{}); err == nil {
		t.Fatal("expected error when s3 is disabled")
	}
}

func TestObjectKey(t *testing.T) {
	at := time.Date(2024, 11, 1, 23, 30, 5, 0, time.FixedZone("CT", -6*3600))
	cases := []struct {
		prefix string
		want   string
	}{
		{"", "date=2024-11-02/risk_rows_20241102053005_abc.parquet"},
		{"fxrisk/", "fxrisk/date=2024-11-02/risk_rows_20241102053005_abc.parquet"},
		{"/a/b", "a/b/date=2024-11-02/risk_rows_20241102053005_abc.parquet"},
	}
	for _, tc := range cases {
		if got := ObjectKey(tc.prefix, TableRiskRows, at, "abc"); got != tc.want {
			t.Errorf("ObjectKey(%q) = %q, want %q", tc.prefix, got, tc.want)
		}
	}
}

func TestWriteRiskRowsUploadsParquet(t *testing.T) {
	putter := &fakePutter{}
	a := newArchive(putter, "bucket", "fx")
	at := time.Date(2024, 11, 1, 10, 0, 0, 0, time.UTC)
	expiry := at.Add(30 * 24 * time.Hour)

	rows := []models.RiskRow{
		{
			InstrumentPosition: models.InstrumentPosition{Symbol: "./6EZ4 EUUZ4 241206C1.12", InstrumentType: models.KindFutureOption, ExpiresAt: &expiry},
			ImpliedVolatility:  models.Some(8),
			Currency:           "6E",
		},
		{InstrumentPosition: models.InstrumentPosition{Symbol: "/6JZ4", InstrumentType: models.KindFuture}, Currency: "6J"},
	}
	key, err := a.WriteRiskRows(context.Background(), "run-1", at, rows)
	if err != nil {
		t.Fatalf("WriteRiskRows: %v", err)
	}
	if key != "fx/date=2024-11-01/risk_rows_20241101100000_run-1.parquet" {
		t.Fatalf("key = %q", key)
	}
	assertParquet(t, putter.bodies[0])

	key, err = a.WriteExposure(context.Background(), "run-1", at, models.ExposureSummary{{Currency: "6E", TotalBCDelta: 1}})
	if err != nil {
		t.Fatalf("WriteExposure: %v", err)
	}
	if key != "fx/date=2024-11-01/exposure_summary_20241101100000_run-1.parquet" {
		t.Fatalf("key = %q", key)
	}
	assertParquet(t, putter.bodies[1])
}

func TestWriteUploadError(t *testing.T) {
	a := newArchive(&fakePutter{err: errors.New("denied")}, "bucket", "")
	if _, err := a.WriteExposure(context.Background(), "r", time.Now(), nil); err == nil {
		t.Fatal("expected upload error")
	}
}

func TestNewRiskRecordOptionalColumns(t *testing.T) {
	rec := newRiskRecord("r", time.Unix(0, 0), models.RiskRow{BCDelta: models.Some(2)})
	if rec.Delta != nil || rec.ExpiresAt != nil || rec.BCDelta == nil || *rec.BCDelta != 2 {
		t.Fatalf("record = %+v", rec)
	}
}

func assertParquet(t *testing.T, data []byte) {
	t.Helper()
	magic := []byte("PAR1")
	if len(data) < 8 || !bytes.HasPrefix(data, magic) || !bytes.HasSuffix(data, magic) {
		t.Fatalf("not a parquet file (%d bytes)", len(data))
	}
}
