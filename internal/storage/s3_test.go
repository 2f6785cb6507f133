package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"wareport/internal/apperr"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	getErr  error
	putErr  error
	puts    []*s3.PutObjectInput
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	b, ok := f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, params)
	return &s3.PutObjectOutput{}, f.putErr
}

func TestGet(t *testing.T) {
	f := &fakeS3{objects: map[string][]byte{"csv/w-1.csv": []byte("data")}}
	got, err := NewObjectStore(f).Get(context.Background(), "csv", "w-1.csv")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), got)
}

func TestGetMissing(t *testing.T) {
	f := &fakeS3{objects: map[string][]byte{}}
	_, err := NewObjectStore(f).Get(context.Background(), "csv", "nope.csv")
	assert.ErrorIs(t, err, apperr.ErrObjectNotFound)

	f = &fakeS3{getErr: &smithy.GenericAPIError{Code: "NotFound"}}
	_, err = NewObjectStore(f).Get(context.Background(), "csv", "nope.csv")
	assert.ErrorIs(t, err, apperr.ErrObjectNotFound)
}

func TestGetOtherFailure(t *testing.T) {
	f := &fakeS3{getErr: &smithy.GenericAPIError{Code: "AccessDenied"}}
	_, err := NewObjectStore(f).Get(context.Background(), "csv", "w.csv")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperr.ErrObjectNotFound)
}

func TestPut(t *testing.T) {
	f := &fakeS3{}
	require.NoError(t, NewObjectStore(f).Put(context.Background(), "out", "r.docx", []byte("x"), "text/plain"))
	require.Len(t, f.puts, 1)
	assert.Equal(t, "out", aws.ToString(f.puts[0].Bucket))
	assert.Equal(t, "r.docx", aws.ToString(f.puts[0].Key))
	assert.Equal(t, "text/plain", aws.ToString(f.puts[0].ContentType))

	f = &fakeS3{putErr: errors.New("denied")}
	assert.Error(t, NewObjectStore(f).Put(context.Background(), "out", "r.docx", nil, "text/plain"))
}

type fakePresigner struct {
	expires time.Duration
	err     error
}

func (f *fakePresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	f.expires = opts.Expires
	return &v4.PresignedHTTPRequest{URL: "https://example/" + aws.ToString(params.Key) + "?sig"}, nil
}

func TestPresignGet(t *testing.T) {
	p := &fakePresigner{}
	url, err := PresignGet(context.Background(), p, "out", "r.docx", DownloadURLTTL)
	require.NoError(t, err)
	assert.Equal(t, "https://example/r.docx?sig", url)
	assert.Equal(t, time.Hour, p.expires)

	_, err = PresignGet(context.Background(), &fakePresigner{err: errors.New("no creds")}, "out", "r.docx", time.Hour)
	assert.ErrorContains(t, err, "no creds")
}
