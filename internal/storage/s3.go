package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"wareport/internal/apperr"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/m-mizutani/goerr/v2"
)

type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ObjectStore reads and writes whole objects.
type ObjectStore struct {
	s3 S3API
}

func NewObjectStore(c S3API) *ObjectStore {
	return &ObjectStore{s3: c}
}

// Get downloads an object. A missing key or bucket is apperr.ErrObjectNotFound.
func (o *ObjectStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := o.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.Wrap(apperr.ErrObjectNotFound, err, "s3 object missing",
				goerr.V("bucket", bucket), goerr.V("key", key))
		}
		return nil, fmt.Errorf("s3 getobject %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3 object %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

// Put uploads body under key, replacing any object already there.
func (o *ObjectStore) Put(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	_, err := o.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		ACL:         s3types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return fmt.Errorf("s3 putobject failed: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nsb *s3types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return true
		}
	}
	return false
}
