package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/tencentyun/cos-go-sdk-v5"

	"github.com/dump-analysis/pkg/errors"
)

// COSConfig holds COS-specific configuration.
type COSConfig struct {
	Bucket    string
	Region    string
	SecretID  string
	SecretKey string
	Domain    string // e.g., "myqcloud.com"
	Scheme    string // e.g., "https" or "http"
	Endpoint  string // full bucket URL; overrides Bucket, Region and Domain
}

// COSStorage implements Storage for Tencent Cloud COS.
type COSStorage struct {
	client    *cos.Client
	bucketURL *url.URL
}

// listPageSize is the largest page Bucket.Get returns.
const listPageSize = 1000

// NewCOSStorage creates a new COSStorage instance.
func NewCOSStorage(cfg *COSConfig) (*COSStorage, error) {
	if cfg.Endpoint == "" && (cfg.Bucket == "" || cfg.Region == "") {
		return nil, errors.New(errors.CodeConfigError, "bucket and region are required for COS storage")
	}
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, errors.New(errors.CodeConfigError, "credentials are required for COS storage")
	}

	// Set defaults for domain and scheme
	domain := cfg.Domain
	if domain == "" {
		domain = "myqcloud.com"
	}
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "https"
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("%s://%s.cos.%s.%s", scheme, cfg.Bucket, cfg.Region, domain)
	}
	bucketURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.Wrap(errors.CodeConfigError, "failed to parse bucket URL", err)
	}

	client := cos.NewClient(&cos.BaseURL{
		BucketURL: bucketURL,
	}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
		},
	})

	return &COSStorage{
		client:    client,
		bucketURL: bucketURL,
	}, nil
}

// Put uploads data from reader to the specified key.
func (s *COSStorage) Put(ctx context.Context, key string, reader io.Reader) error {
	opt := &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{
			ContentType: "text/plain; charset=utf-8",
		},
	}
	if _, err := s.client.Object.Put(ctx, key, reader, opt); err != nil {
		return errors.Wrap(errors.CodeStorageError, "failed to upload to COS", err)
	}
	return nil
}

// Get downloads the object at the specified key.
func (s *COSStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.client.Object.Get(ctx, key, nil)
	if err != nil {
		if cos.IsNotFoundError(err) {
			return nil, errors.Wrap(errors.CodeNotFound, "snapshot not found: "+key, err)
		}
		return nil, errors.Wrap(errors.CodeStorageError, "failed to download from COS", err)
	}
	return resp.Body, nil
}

// Exists checks if an object exists at the specified key.
func (s *COSStorage) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.Object.IsExist(ctx, key)
	if err != nil {
		return false, errors.Wrap(errors.CodeStorageError, "failed to check existence in COS", err)
	}
	return ok, nil
}

// List pages through the bucket listing for prefix.
func (s *COSStorage) List(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	opt := &cos.BucketGetOptions{
		Prefix:  prefix,
		MaxKeys: listPageSize,
	}
	for {
		result, _, err := s.client.Bucket.Get(ctx, opt)
		if err != nil {
			return nil, errors.Wrap(errors.CodeStorageError, "failed to list COS objects", err)
		}
		for _, obj := range result.Contents {
			if strings.HasSuffix(obj.Key, "/") {
				continue
			}
			keys = append(keys, obj.Key)
		}
		if !result.IsTruncated || result.NextMarker == "" {
			break
		}
		opt.Marker = result.NextMarker
	}

	sort.Strings(keys)
	return keys, nil
}

// URL returns the object URL for the specified key.
func (s *COSStorage) URL(key string) string {
	return strings.TrimSuffix(s.bucketURL.String(), "/") + "/" + key
}
