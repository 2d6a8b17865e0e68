package services

import (
	"context"
	"fmt"
	"strings"

	"sitesmith-backend/config"

	"github.com/aliyun/alibaba-cloud-sdk-go/services/sts"
	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"go.uber.org/zap"
)

// SitePublisher mirrors published documents to a public location.
type SitePublisher interface {
	Publish(ctx context.Context, projectID, code string) (string, error)
	Unpublish(ctx context.Context, projectID string) error
}

// NopPublisher is used when no object storage is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string) (string, error) { return "", nil }
func (NopPublisher) Unpublish(context.Context, string) error                 { return nil }

type STSCredentials struct {
	AccessKeyId     string
	AccessKeySecret string
	SecurityToken   string
	Expiration      string
}

// OSSSitePublisher writes sites/<projectID>/index.html into an OSS bucket
// using short-lived STS credentials.
type OSSSitePublisher struct {
	endpoint  string
	region    string
	keyID     string
	keySecret string
	roleArn   string
	bucket    string
	log       *zap.Logger
}

func NewOSSSitePublisher(cfg *config.Config, log *zap.Logger) *OSSSitePublisher {
	return &OSSSitePublisher{
		endpoint:  cfg.OSSEndpoint,
		region:    cfg.OSSRegion,
		keyID:     cfg.OSSAccessKeyID,
		keySecret: cfg.OSSAccessKeySecret,
		roleArn:   cfg.OSSRoleArn,
		bucket:    cfg.OSSBucketName,
		log:       log,
	}
}

func siteObjectKey(projectID string) string {
	return fmt.Sprintf("sites/%s/index.html", projectID)
}

func (p *OSSSitePublisher) assumeRole() (*STSCredentials, error) {
	// STS wants the bare region id, e.g. "cn-beijing" rather than "oss-cn-beijing".
	stsRegion := strings.TrimPrefix(p.region, "oss-")

	client, err := sts.NewClientWithAccessKey(stsRegion, p.keyID, p.keySecret)
	if err != nil {
		return nil, err
	}

	request := sts.CreateAssumeRoleRequest()
	request.Scheme = "https"
	request.RoleArn = p.roleArn
	request.RoleSessionName = "sitesmith-publisher"
	request.DurationSeconds = "900"

	response, err := client.AssumeRole(request)
	if err != nil {
		return nil, err
	}
	return &STSCredentials{
		AccessKeyId:     response.Credentials.AccessKeyId,
		AccessKeySecret: response.Credentials.AccessKeySecret,
		SecurityToken:   response.Credentials.SecurityToken,
		Expiration:      response.Credentials.Expiration,
	}, nil
}

func (p *OSSSitePublisher) openBucket() (*oss.Bucket, error) {
	var opts []oss.ClientOption
	keyID, keySecret := p.keyID, p.keySecret
	if p.roleArn != "" {
		creds, err := p.assumeRole()
		if err != nil {
			return nil, fmt.Errorf("failed to get STS token: %w", err)
		}
		keyID, keySecret = creds.AccessKeyId, creds.AccessKeySecret
		opts = append(opts, oss.SecurityToken(creds.SecurityToken))
	}
	opts = append(opts, oss.Timeout(10, 60))

	client, err := oss.New(p.endpoint, keyID, keySecret, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}
	return client.Bucket(p.bucket)
}

// Publish uploads code and returns its public URL.
func (p *OSSSitePublisher) Publish(ctx context.Context, projectID, code string) (string, error) {
	bucket, err := p.openBucket()
	if err != nil {
		return "", err
	}
	key := siteObjectKey(projectID)
	if err := bucket.PutObject(key, strings.NewReader(code),
		oss.ContentType("text/html; charset=utf-8"),
		oss.ObjectACL(oss.ACLPublicRead),
	); err != nil {
		return "", fmt.Errorf("failed to upload site: %w", err)
	}
	url := p.publicURL(key)
	p.log.Info("site mirrored", zap.String("project_id", projectID), zap.String("url", url))
	return url, nil
}

func (p *OSSSitePublisher) Unpublish(ctx context.Context, projectID string) error {
	bucket, err := p.openBucket()
	if err != nil {
		return err
	}
	if err := bucket.DeleteObject(siteObjectKey(projectID)); err != nil {
		return fmt.Errorf("failed to remove site: %w", err)
	}
	return nil
}

func (p *OSSSitePublisher) publicURL(key string) string {
	scheme, host := "https", p.endpoint
	if before, after, ok := strings.Cut(p.endpoint, "://"); ok {
		scheme, host = before, after
	}
	return fmt.Sprintf("%s://%s.%s/%s", scheme, p.bucket, host, key)
}
