// Package s3 provides an AWS S3 (and S3-compatible) adapter. Directories are
// emulated with key prefixes and zero-byte "dir/" marker objects; content
// fingerprints come from ETags, so they match the md5 fingerprints computed
// by the other adapters for single-part uploads.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/softwell/mountfs"
	"github.com/softwell/mountfs/backend"
	"github.com/softwell/mountfs/utils"
)

// Protocol defines the backend type.
const Protocol = "s3"

const defaultURLExpiry = 15 * time.Minute

// Options holds the s3 backend configuration.
type Options struct {
	// Bucket is the target bucket name.
	Bucket string `mapstructure:"bucket" validate:"required"`

	// Prefix roots the mount below a key prefix inside the bucket.
	Prefix string `mapstructure:"prefix"`

	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`

	// ForcePathStyle is needed by most S3-compatible servers (MinIO et al).
	ForcePathStyle bool `mapstructure:"force_path_style"`
}

// Backend implements mountfs.Backend over an S3 bucket.
type Backend struct {
	client    Client
	presigner Presigner
	bucket    string
	prefix    string
}

// New returns an S3 backend talking to the given client. The prefix is
// normalized to either "" or a string with a trailing slash.
func New(client Client, presigner Presigner, bucket, prefix string) *Backend {
	prefix = utils.RemoveLeadingSlash(prefix)
	if prefix != "" {
		prefix = utils.EnsureTrailingSlash(prefix)
	}
	return &Backend{client: client, presigner: presigner, bucket: bucket, prefix: prefix}
}

// Name returns "s3"
func (b *Backend) Name() string { return Protocol }

// Capabilities reports the full S3 capability set.
func (b *Backend) Capabilities() mountfs.Capability {
	return mountfs.CapabilityRead | mountfs.CapabilityWrite | mountfs.CapabilityDelete |
		mountfs.CapabilityList | mountfs.CapabilityMkdir | mountfs.CapabilityHash |
		mountfs.CapabilityMetadata | mountfs.CapabilityVersioning | mountfs.CapabilityPresignedURL
}

func (b *Backend) key(path string) string {
	return b.prefix + path
}

// notFound reports whether err is the API's 404 flavor.
func notFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey"
	}
	return false
}

func (b *Backend) head(ctx context.Context, path string) (*awss3.HeadObjectOutput, error) {
	out, err := b.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(path)),
	})
	if err != nil {
		if notFound(err) {
			return nil, mountfs.ErrNotExist
		}
		return nil, err
	}
	return out, nil
}

// Exists returns whether path is an object or a key prefix.
func (b *Backend) Exists(ctx context.Context, path string) (bool, error) {
	if _, err := b.head(ctx, path); err == nil {
		return true, nil
	} else if !errors.Is(err, mountfs.ErrNotExist) {
		return false, err
	}
	return b.IsDir(ctx, path)
}

// IsFile returns whether path is an object.
func (b *Backend) IsFile(ctx context.Context, path string) (bool, error) {
	_, err := b.head(ctx, path)
	if errors.Is(err, mountfs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// IsDir returns whether path is the mount root or a key prefix with at least
// one object below it (marker objects included).
func (b *Backend) IsDir(ctx context.Context, path string) (bool, error) {
	if path == "" {
		return true, nil
	}
	out, err := b.client.ListObjectsV2(ctx, &awss3.ListObjectsV2Input{
		Bucket:  aws.String(b.bucket),
		Prefix:  aws.String(utils.EnsureTrailingSlash(b.key(path))),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, err
	}
	return aws.ToInt32(out.KeyCount) > 0, nil
}

// Size returns the object size in bytes.
func (b *Backend) Size(ctx context.Context, path string) (int64, error) {
	out, err := b.head(ctx, path)
	if err != nil {
		return 0, err
	}
	return aws.ToInt64(out.ContentLength), nil
}

// LastModified returns the object modification time.
func (b *Backend) LastModified(ctx context.Context, path string) (time.Time, error) {
	out, err := b.head(ctx, path)
	if err != nil {
		return time.Time{}, err
	}
	return aws.ToTime(out.LastModified), nil
}

// Read downloads the object content.
func (b *Backend) Read(ctx context.Context, path string) ([]byte, error) {
	buf := manager.NewWriteAtBuffer(nil)
	_, err := manager.NewDownloader(b.client).Download(ctx, buf, &awss3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(path)),
	})
	if err != nil {
		if notFound(err) {
			return nil, mountfs.ErrNotExist
		}
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write uploads data to path. On a version-enabled bucket this records a new
// object version.
func (b *Backend) Write(ctx context.Context, path string, data []byte) error {
	_, err := manager.NewUploader(b.client).Upload(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(path)),
		Body:   bytes.NewReader(data),
	})
	return err
}

// Delete removes an object or a key prefix. Missing paths are a no-op.
func (b *Backend) Delete(ctx context.Context, path string, recursive bool) error {
	if isFile, err := b.IsFile(ctx, path); err != nil {
		return err
	} else if isFile {
		_, err := b.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(b.key(path)),
		})
		return err
	}
	prefix := utils.EnsureTrailingSlash(b.key(path))
	var contToken *string
	for {
		out, err := b.client.ListObjectsV2(ctx, &awss3.ListObjectsV2Input{
			Bucket:            aws.String(b.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: contToken,
		})
		if err != nil {
			return err
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if !recursive && key != prefix {
				return mountfs.ErrNotEmpty
			}
			if _, err := b.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
				Bucket: aws.String(b.bucket),
				Key:    obj.Key,
			}); err != nil {
				return err
			}
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		contToken = out.NextContinuationToken
	}
	return nil
}

// List returns the base names of the objects and prefixes directly under
// path.
func (b *Backend) List(ctx context.Context, path string) ([]string, error) {
	prefix := b.key(path)
	if prefix != "" {
		prefix = utils.EnsureTrailingSlash(prefix)
	}
	var names []string
	var contToken *string
	for {
		out, err := b.client.ListObjectsV2(ctx, &awss3.ListObjectsV2Input{
			Bucket:            aws.String(b.bucket),
			Prefix:            aws.String(prefix),
			Delimiter:         aws.String("/"),
			ContinuationToken: contToken,
		})
		if err != nil {
			return nil, err
		}
		for _, cp := range out.CommonPrefixes {
			name := utils.BaseName(utils.RemoveTrailingSlash(aws.ToString(cp.Prefix)))
			names = append(names, name)
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if key == prefix || strings.HasSuffix(key, "/") {
				continue
			}
			names = append(names, utils.BaseName(key))
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		contToken = out.NextContinuationToken
	}
	if len(names) == 0 && path != "" {
		if isDir, err := b.IsDir(ctx, path); err != nil {
			return nil, err
		} else if !isDir {
			return nil, mountfs.ErrNotExist
		}
	}
	return names, nil
}

// Mkdir stores a zero-byte marker object so empty directories survive
// listing.
func (b *Backend) Mkdir(ctx context.Context, path string, parents, existOK bool) error {
	exists, err := b.IsDir(ctx, path)
	if err != nil {
		return err
	}
	if exists {
		if existOK {
			return nil
		}
		return mountfs.ErrExist
	}
	// Key prefixes need no intermediate directories, so parents is moot.
	_ = parents
	_, err = manager.NewUploader(b.client).Upload(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(utils.EnsureTrailingSlash(b.key(path))),
		Body:   bytes.NewReader(nil),
	})
	return err
}

// Copy copies src to dstPath on dst. When dst is another S3 backend the copy
// stays server-side; otherwise it falls back to the byte path.
func (b *Backend) Copy(ctx context.Context, src string, dst mountfs.Backend, dstPath string) (string, error) {
	if s3dst, ok := dst.(*Backend); ok {
		_, err := b.client.CopyObject(ctx, &awss3.CopyObjectInput{
			Bucket:     aws.String(s3dst.bucket),
			Key:        aws.String(s3dst.key(dstPath)),
			CopySource: aws.String(b.bucket + "/" + b.key(src)),
		})
		if err != nil && notFound(err) {
			return "", mountfs.ErrNotExist
		}
		return "", err
	}
	return mountfs.CopyBytes(ctx, b, src, dst, dstPath)
}

// ContentHash returns the object's ETag without quotes. For single-part
// uploads this is the md5 fingerprint of the content.
func (b *Backend) ContentHash(ctx context.Context, path string) (string, error) {
	out, err := b.head(ctx, path)
	if err != nil {
		return "", err
	}
	return strings.Trim(aws.ToString(out.ETag), `"`), nil
}

// Metadata returns the object's user metadata.
func (b *Backend) Metadata(ctx context.Context, path string) (map[string]string, error) {
	out, err := b.head(ctx, path)
	if err != nil {
		return nil, err
	}
	return out.Metadata, nil
}

// SetMetadata replaces the object's user metadata via a self copy.
func (b *Backend) SetMetadata(ctx context.Context, path string, metadata map[string]string) error {
	key := b.key(path)
	_, err := b.client.CopyObject(ctx, &awss3.CopyObjectInput{
		Bucket:            aws.String(b.bucket),
		Key:               aws.String(key),
		CopySource:        aws.String(b.bucket + "/" + key),
		Metadata:          metadata,
		MetadataDirective: types.MetadataDirectiveReplace,
	})
	if err != nil && notFound(err) {
		return mountfs.ErrNotExist
	}
	return err
}

// Versions lists the object's versions oldest to newest.
func (b *Backend) Versions(ctx context.Context, path string) ([]mountfs.VersionRecord, error) {
	key := b.key(path)
	var records []mountfs.VersionRecord
	var keyMarker, versionMarker *string
	for {
		out, err := b.client.ListObjectVersions(ctx, &awss3.ListObjectVersionsInput{
			Bucket:          aws.String(b.bucket),
			Prefix:          aws.String(key),
			KeyMarker:       keyMarker,
			VersionIdMarker: versionMarker,
		})
		if err != nil {
			return nil, err
		}
		for _, v := range out.Versions {
			if aws.ToString(v.Key) != key {
				continue
			}
			records = append(records, mountfs.VersionRecord{
				ID:           aws.ToString(v.VersionId),
				IsLatest:     aws.ToBool(v.IsLatest),
				LastModified: aws.ToTime(v.LastModified),
				Size:         aws.ToInt64(v.Size),
				Fingerprint:  strings.Trim(aws.ToString(v.ETag), `"`),
			})
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		keyMarker = out.NextKeyMarker
		versionMarker = out.NextVersionIdMarker
	}
	if len(records) == 0 {
		return nil, mountfs.ErrNotExist
	}
	// The API yields newest first; callers expect oldest first.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// ReadVersion downloads one specific object version.
func (b *Backend) ReadVersion(ctx context.Context, path, versionID string) ([]byte, error) {
	buf := manager.NewWriteAtBuffer(nil)
	_, err := manager.NewDownloader(b.client).Download(ctx, buf, &awss3.GetObjectInput{
		Bucket:    aws.String(b.bucket),
		Key:       aws.String(b.key(path)),
		VersionId: aws.String(versionID),
	})
	if err != nil {
		if notFound(err) {
			return nil, mountfs.ErrNotExist
		}
		return nil, err
	}
	return buf.Bytes(), nil
}

// DeleteVersion removes one specific object version.
func (b *Backend) DeleteVersion(ctx context.Context, path, versionID string) error {
	_, err := b.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket:    aws.String(b.bucket),
		Key:       aws.String(b.key(path)),
		VersionId: aws.String(versionID),
	})
	if err != nil && notFound(err) {
		return mountfs.ErrNotExist
	}
	return err
}

// URL presigns a GET for the object.
func (b *Backend) URL(ctx context.Context, path string, expiresIn time.Duration) (string, error) {
	if b.presigner == nil {
		return "", mountfs.ErrNotSupported
	}
	if expiresIn <= 0 {
		expiresIn = defaultURLExpiry
	}
	req, err := b.presigner.PresignGetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(path)),
	}, func(po *awss3.PresignOptions) {
		po.Expires = expiresIn
	})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", path, err)
	}
	return req.URL, nil
}

func init() {
	backend.Register(Protocol, backend.Descriptor{
		Capabilities: mountfs.CapabilityRead | mountfs.CapabilityWrite |
			mountfs.CapabilityDelete | mountfs.CapabilityList | mountfs.CapabilityMkdir |
			mountfs.CapabilityHash | mountfs.CapabilityMetadata |
			mountfs.CapabilityVersioning | mountfs.CapabilityPresignedURL,
		Validate: func(params map[string]any) error {
			var opts Options
			return backend.DecodeOptions(params, &opts)
		},
		New: func(params map[string]any) (mountfs.Backend, error) {
			var opts Options
			if err := backend.DecodeOptions(params, &opts); err != nil {
				return nil, err
			}
			client, presigner, err := newClient(context.Background(), opts)
			if err != nil {
				return nil, err
			}
			return New(client, presigner, opts.Bucket, opts.Prefix), nil
		},
	})
}
