package aliyun

import (
	"context"
	"fmt"
	"strings"

	"autocut/log"
	apperrors "autocut/pkg/errors"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss/credentials"
	"go.uber.org/zap"
)

// OssClient publishes finished clips to an OSS bucket.
type OssClient struct {
	*oss.Client
	Bucket   string
	Region   string
	Endpoint string
	// Prefix is prepended to every object key.
	Prefix string
}

func NewOssClient(accessKeyID, accessKeySecret, bucket, region, endpoint string) *OssClient {
	cfg := oss.LoadDefaultConfig().
		WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, accessKeySecret)).
		WithRegion(region)
	if endpoint != "" {
		cfg = cfg.WithEndpoint(endpoint)
	}
	return &OssClient{
		Client:   oss.NewClient(cfg),
		Bucket:   bucket,
		Region:   region,
		Endpoint: endpoint,
	}
}

// Upload puts localPath under objectKey and returns its public URL.
func (c *OssClient) Upload(ctx context.Context, localPath, objectKey string) (string, error) {
	key := ObjectKey(c.Prefix, objectKey)
	_, err := c.PutObjectFromFile(ctx, &oss.PutObjectRequest{
		Bucket: oss.Ptr(c.Bucket),
		Key:    oss.Ptr(key),
	}, localPath)
	if err != nil {
		log.GetLogger().Error("oss upload failed", zap.String("bucket", c.Bucket), zap.String("key", key), zap.Error(err))
		return "", apperrors.WrapWithDetail(apperrors.CodeUploadFailed, "upload failed", key, err)
	}
	return PublicURL(c.Bucket, c.Region, c.Endpoint, key), nil
}

func ObjectKey(prefix, key string) string {
	key = strings.TrimLeft(key, "/")
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

// PublicURL is the virtual-hosted style URL of key.
func PublicURL(bucket, region, endpoint, key string) string {
	host := strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
	if host == "" {
		host = fmt.Sprintf("oss-%s.aliyuncs.com", strings.TrimPrefix(region, "oss-"))
	}
	return fmt.Sprintf("https://%s.%s/%s", bucket, strings.TrimRight(host, "/"), key)
}
