package utils

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DocumentURLTTL is how long a presigned document link stays valid.
const DocumentURLTTL = 15 * time.Minute

// R2Storage keeps trainer documents in a private R2 bucket. Clients never
// see the bucket; they get short-lived presigned links from URL.
type R2Storage struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
}

// NewR2Storage connects to the bucket at endpoint, which has the form
// https://<account-id>.r2.cloudflarestorage.com.
func NewR2Storage(accessKeyID, secretAccessKey, endpoint, bucket string) *R2Storage {
	client := s3.NewFromConfig(aws.Config{
		Region:       "auto",
		Credentials:  credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		BaseEndpoint: aws.String(endpoint),
	}, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return &R2Storage{client: client, presigner: s3.NewPresignClient(client), bucket: bucket}
}

// SaveFile stores the upload under subDir. The original name travels as the
// download filename so a presigned link saves as what the trainer uploaded.
func (rs *R2Storage) SaveFile(ctx context.Context, subDir, originalFilename string, reader io.Reader) (string, error) {
	key := objectKey(subDir, originalFilename)
	in := &s3.PutObjectInput{
		Bucket:             aws.String(rs.bucket),
		Key:                aws.String(key),
		Body:               reader,
		ContentDisposition: aws.String(attachment(originalFilename)),
	}
	if ct := mime.TypeByExtension(filepath.Ext(originalFilename)); ct != "" {
		in.ContentType = aws.String(ct)
	}
	if _, err := rs.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("r2: put %s: %w", key, err)
	}
	return key, nil
}

func (rs *R2Storage) DeleteFile(ctx context.Context, key string) error {
	_, err := rs.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(rs.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("r2: delete %s: %w", key, err)
	}
	return nil
}

// URL presigns a GET for key, valid for DocumentURLTTL.
func (rs *R2Storage) URL(ctx context.Context, key string) (string, error) {
	req, err := rs.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(rs.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(DocumentURLTTL))
	if err != nil {
		return "", fmt.Errorf("r2: presign %s: %w", key, err)
	}
	return req.URL, nil
}

// objectKey names a new object under subDir, keeping only the extension of
// the uploaded name.
func objectKey(subDir, originalFilename string) string {
	return path.Join(subDir, GenerateID()+filepath.Ext(originalFilename))
}

func attachment(filename string) string {
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) {
		return "attachment"
	}
	return mime.FormatMediaType("attachment", map[string]string{"filename": name})
}
