package objects

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects      map[string][]byte
	bucketExists bool
	createErr    error
	putErr       error
	created      int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, bucketExists: true}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if !f.bucketExists {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.created++
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.bucketExists = true
	return &s3.CreateBucketOutput{}, nil
}

func TestAvatarKey(t *testing.T) {
	key, err := AvatarKey("u1", "image/PNG")
	require.NoError(t, err)
	assert.Equal(t, "avatars/u1.png", key)

	_, err = AvatarKey("u1", "application/pdf")
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestS3Store_PutAndDelete(t *testing.T) {
	fake := newFakeS3()
	store := newS3Store(fake, "avatars")
	ctx := context.Background()

	key, err := store.PutImage(ctx, "u1", strings.NewReader("jpegbytes"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "avatars/u1.jpg", key)
	assert.Equal(t, []byte("jpegbytes"), fake.objects[key])

	require.NoError(t, store.DeleteImage(ctx, key))
	assert.Empty(t, fake.objects)

	assert.NoError(t, store.DeleteImage(ctx, ""))
}

func TestS3Store_PutRejectsOversizedAndUnsupported(t *testing.T) {
	store := newS3Store(newFakeS3(), "avatars")
	ctx := context.Background()

	_, err := store.PutImage(ctx, "u1", strings.NewReader(strings.Repeat("x", MaxImageSize+1)), "image/png")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrImageTooLarge)

	_, err = store.PutImage(ctx, "u1", strings.NewReader("x"), "text/plain")
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestS3Store_PutFailure(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = errors.New("access denied")
	store := newS3Store(fake, "avatars")

	_, err := store.PutImage(context.Background(), "u1", strings.NewReader("x"), "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upload image")
}

func TestS3Store_EnsureBucket(t *testing.T) {
	t.Run("existing bucket is left alone", func(t *testing.T) {
		fake := newFakeS3()
		require.NoError(t, newS3Store(fake, "b").ensureBucket(context.Background()))
		assert.Equal(t, 0, fake.created)
	})

	t.Run("missing bucket is created", func(t *testing.T) {
		fake := newFakeS3()
		fake.bucketExists = false
		require.NoError(t, newS3Store(fake, "b").ensureBucket(context.Background()))
		assert.Equal(t, 1, fake.created)
	})

	t.Run("race with another creator is tolerated", func(t *testing.T) {
		fake := newFakeS3()
		fake.bucketExists = false
		fake.createErr = &types.BucketAlreadyOwnedByYou{}
		assert.NoError(t, newS3Store(fake, "b").ensureBucket(context.Background()))
	})

	t.Run("other create errors surface", func(t *testing.T) {
		fake := newFakeS3()
		fake.bucketExists = false
		fake.createErr = errors.New("forbidden")
		err := newS3Store(fake, "b").ensureBucket(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create bucket")
	})
}
