package s3

import (
	"context"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/suite"

	"github.com/softwell/mountfs"
)

/**********************************
 ************TESTS*****************
 **********************************/

// mockClient is an in-memory stand-in for *s3.Client covering the request
// shapes the adapter issues. Multipart uploads are not modeled; test
// payloads stay below the part size.
type mockClient struct {
	objects map[string][]byte
	etags   map[string]string
	meta    map[string]map[string]string
}

func newMockClient() *mockClient {
	return &mockClient{
		objects: make(map[string][]byte),
		etags:   make(map[string]string),
		meta:    make(map[string]map[string]string),
	}
}

func (c *mockClient) put(key string, data []byte) {
	c.objects[key] = data
	c.etags[key] = mountfs.FingerprintBytes(data)
}

func (c *mockClient) GetObject(_ context.Context, in *awss3.GetObjectInput, _ ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	data, ok := c.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &awss3.GetObjectOutput{
		Body:          io.NopCloser(strings.NewReader(string(data))),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func (c *mockClient) PutObject(_ context.Context, in *awss3.PutObjectInput, _ ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	c.put(aws.ToString(in.Key), data)
	return &awss3.PutObjectOutput{ETag: aws.String(`"` + c.etags[aws.ToString(in.Key)] + `"`)}, nil
}

func (c *mockClient) CreateMultipartUpload(context.Context, *awss3.CreateMultipartUploadInput, ...func(*awss3.Options)) (*awss3.CreateMultipartUploadOutput, error) {
	return nil, mountfs.Error("multipart upload not modeled")
}

func (c *mockClient) UploadPart(context.Context, *awss3.UploadPartInput, ...func(*awss3.Options)) (*awss3.UploadPartOutput, error) {
	return nil, mountfs.Error("multipart upload not modeled")
}

func (c *mockClient) CompleteMultipartUpload(context.Context, *awss3.CompleteMultipartUploadInput, ...func(*awss3.Options)) (*awss3.CompleteMultipartUploadOutput, error) {
	return nil, mountfs.Error("multipart upload not modeled")
}

func (c *mockClient) AbortMultipartUpload(context.Context, *awss3.AbortMultipartUploadInput, ...func(*awss3.Options)) (*awss3.AbortMultipartUploadOutput, error) {
	return nil, mountfs.Error("multipart upload not modeled")
}

func (c *mockClient) CopyObject(_ context.Context, in *awss3.CopyObjectInput, _ ...func(*awss3.Options)) (*awss3.CopyObjectOutput, error) {
	srcKey := strings.SplitN(aws.ToString(in.CopySource), "/", 2)[1]
	data, ok := c.objects[srcKey]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	c.put(aws.ToString(in.Key), data)
	if in.MetadataDirective == types.MetadataDirectiveReplace {
		c.meta[aws.ToString(in.Key)] = in.Metadata
	}
	return &awss3.CopyObjectOutput{}, nil
}

func (c *mockClient) DeleteObject(_ context.Context, in *awss3.DeleteObjectInput, _ ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error) {
	key := aws.ToString(in.Key)
	delete(c.objects, key)
	delete(c.etags, key)
	delete(c.meta, key)
	return &awss3.DeleteObjectOutput{}, nil
}

func (c *mockClient) HeadObject(_ context.Context, in *awss3.HeadObjectInput, _ ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error) {
	key := aws.ToString(in.Key)
	data, ok := c.objects[key]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &awss3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(data))),
		ETag:          aws.String(`"` + c.etags[key] + `"`),
		LastModified:  aws.Time(time.Unix(1700000000, 0)),
		Metadata:      c.meta[key],
	}, nil
}

func (c *mockClient) ListObjectsV2(_ context.Context, in *awss3.ListObjectsV2Input, _ ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error) {
	prefix := aws.ToString(in.Prefix)
	delim := aws.ToString(in.Delimiter)

	var keys []string
	for k := range c.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := &awss3.ListObjectsV2Output{
		KeyCount:    aws.Int32(int32(len(keys))),
		IsTruncated: aws.Bool(false),
	}
	seenPrefixes := map[string]bool{}
	for _, k := range keys {
		rest := k[len(prefix):]
		if delim != "" {
			if i := strings.Index(rest, delim); i >= 0 {
				cp := prefix + rest[:i+1]
				if !seenPrefixes[cp] {
					seenPrefixes[cp] = true
					out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(cp)})
				}
				continue
			}
		}
		out.Contents = append(out.Contents, types.Object{
			Key:  aws.String(k),
			Size: aws.Int64(int64(len(c.objects[k]))),
		})
	}
	return out, nil
}

func (c *mockClient) ListObjectVersions(_ context.Context, in *awss3.ListObjectVersionsInput, _ ...func(*awss3.Options)) (*awss3.ListObjectVersionsOutput, error) {
	key := aws.ToString(in.Prefix)
	data, ok := c.objects[key]
	if !ok {
		return &awss3.ListObjectVersionsOutput{IsTruncated: aws.Bool(false)}, nil
	}
	// a single-version history is enough for the adapter's mapping logic
	return &awss3.ListObjectVersionsOutput{
		IsTruncated: aws.Bool(false),
		Versions: []types.ObjectVersion{{
			Key:          aws.String(key),
			VersionId:    aws.String("v1"),
			IsLatest:     aws.Bool(true),
			Size:         aws.Int64(int64(len(data))),
			ETag:         aws.String(`"` + c.etags[key] + `"`),
			LastModified: aws.Time(time.Unix(1700000000, 0)),
		}},
	}, nil
}

type s3Suite struct {
	suite.Suite
	ctx    context.Context
	client *mockClient
	b      *Backend
}

func (s *s3Suite) SetupTest() {
	s.ctx = context.Background()
	s.client = newMockClient()
	s.b = New(s.client, nil, "bucket", "root")
}

func (s *s3Suite) TestPrefixNormalization() {
	s.Equal("root/", s.b.prefix)
	s.Equal("", New(s.client, nil, "bucket", "").prefix)
	s.Equal("a/b/", New(s.client, nil, "bucket", "/a/b").prefix)
}

func (s *s3Suite) TestWriteRead() {
	s.NoError(s.b.Write(s.ctx, "docs/a.txt", []byte("hello")))
	s.Contains(s.client.objects, "root/docs/a.txt", "keys carry the mount prefix")

	data, err := s.b.Read(s.ctx, "docs/a.txt")
	s.NoError(err)
	s.Equal("hello", string(data))

	size, err := s.b.Size(s.ctx, "docs/a.txt")
	s.NoError(err)
	s.EqualValues(5, size)
}

func (s *s3Suite) TestMissing() {
	_, err := s.b.Read(s.ctx, "nope.txt")
	s.ErrorIs(err, mountfs.ErrNotExist)
	_, err = s.b.Size(s.ctx, "nope.txt")
	s.ErrorIs(err, mountfs.ErrNotExist)

	exists, err := s.b.Exists(s.ctx, "nope.txt")
	s.NoError(err)
	s.False(exists)
}

func (s *s3Suite) TestDirSemantics() {
	s.NoError(s.b.Write(s.ctx, "tree/sub/a.txt", []byte("x")))

	isDir, err := s.b.IsDir(s.ctx, "tree")
	s.NoError(err)
	s.True(isDir, "a key prefix is a directory")

	isFile, err := s.b.IsFile(s.ctx, "tree")
	s.NoError(err)
	s.False(isFile)

	exists, err := s.b.Exists(s.ctx, "tree/sub")
	s.NoError(err)
	s.True(exists)
}

func (s *s3Suite) TestList() {
	s.NoError(s.b.Write(s.ctx, "d/a.txt", []byte("a")))
	s.NoError(s.b.Write(s.ctx, "d/b.txt", []byte("b")))
	s.NoError(s.b.Write(s.ctx, "d/sub/c.txt", []byte("c")))

	names, err := s.b.List(s.ctx, "d")
	s.NoError(err)
	s.Equal([]string{"a.txt", "b.txt", "sub"}, names)

	_, err = s.b.List(s.ctx, "missing")
	s.ErrorIs(err, mountfs.ErrNotExist)
}

func (s *s3Suite) TestDelete() {
	s.NoError(s.b.Write(s.ctx, "d/a.txt", []byte("a")))
	s.NoError(s.b.Write(s.ctx, "d/b.txt", []byte("b")))

	s.ErrorIs(s.b.Delete(s.ctx, "d", false), mountfs.ErrNotEmpty)
	s.NoError(s.b.Delete(s.ctx, "d", true))
	s.Empty(s.client.objects)

	// deleting a missing path is a no-op
	s.NoError(s.b.Delete(s.ctx, "d", true))
}

func (s *s3Suite) TestContentHash() {
	s.NoError(s.b.Write(s.ctx, "h.txt", []byte("hello")))

	hash, err := s.b.ContentHash(s.ctx, "h.txt")
	s.NoError(err)
	s.Equal(mountfs.FingerprintBytes([]byte("hello")), hash,
		"the unquoted single-part ETag equals the computed fingerprint")
}

func (s *s3Suite) TestMetadata() {
	s.NoError(s.b.Write(s.ctx, "m.txt", []byte("x")))
	s.NoError(s.b.SetMetadata(s.ctx, "m.txt", map[string]string{"owner": "ops"}))

	meta, err := s.b.Metadata(s.ctx, "m.txt")
	s.NoError(err)
	s.Equal("ops", meta["owner"])
}

func (s *s3Suite) TestServerSideCopy() {
	s.NoError(s.b.Write(s.ctx, "src.txt", []byte("payload")))

	other := New(s.client, nil, "bucket", "other")
	rewritten, err := s.b.Copy(s.ctx, "src.txt", other, "dst.txt")
	s.NoError(err)
	s.Empty(rewritten)
	s.Contains(s.client.objects, "other/dst.txt")
}

func (s *s3Suite) TestVersions() {
	s.NoError(s.b.Write(s.ctx, "v.txt", []byte("one")))

	records, err := s.b.Versions(s.ctx, "v.txt")
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal("v1", records[0].ID)
	s.True(records[0].IsLatest)
	s.Equal(mountfs.FingerprintBytes([]byte("one")), records[0].Fingerprint)

	_, err = s.b.Versions(s.ctx, "missing.txt")
	s.ErrorIs(err, mountfs.ErrNotExist)
}

func (s *s3Suite) TestURLWithoutPresigner() {
	_, err := s.b.URL(s.ctx, "x.txt", time.Minute)
	s.ErrorIs(err, mountfs.ErrNotSupported)
}

func (s *s3Suite) TestMkdirMarker() {
	s.NoError(s.b.Mkdir(s.ctx, "empty", true, false))
	s.Contains(s.client.objects, "root/empty/")

	isDir, err := s.b.IsDir(s.ctx, "empty")
	s.NoError(err)
	s.True(isDir)

	s.ErrorIs(s.b.Mkdir(s.ctx, "empty", true, false), mountfs.ErrExist)
	s.NoError(s.b.Mkdir(s.ctx, "empty", true, true))
}

func TestS3Suite(t *testing.T) {
	suite.Run(t, new(s3Suite))
}
