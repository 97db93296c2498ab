// pkg/remote/s3/s3.go
//
// Package s3 serves the S3 protocol: the remote directory is "bucket/prefix"
// on AWS or any S3-compatible endpoint (MinIO, Ceph).
package s3

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/jeepinbird/autoftp/pkg/remote"
)

// DefaultRegion is used when host.region is not configured.
const DefaultRegion = "us-east-1"

// api is the part of *s3.Client a session uses.
type api interface {
	s3.HeadBucketAPIClient
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Dialer opens S3 sessions.
type Dialer struct {
	Sink *remote.Sink
}

var _ remote.Dialer = (*Dialer)(nil)

// NewDialer creates a Dialer writing downloads through sink.
func NewDialer(sink *remote.Sink) *Dialer {
	return &Dialer{Sink: sink}
}

// Dial builds a client with static credentials: the host user is the access
// key and the password the secret key. A configured hostname replaces the AWS
// endpoint and switches to path-style addressing.
func (d *Dialer) Dial(ctx context.Context, host remote.HostConfig) (remote.Session, error) {
	endpoint := Endpoint(host)
	if host.Protocol != remote.S3 {
		return nil, remote.ConnectionError(endpoint, fmt.Errorf("s3 dialer cannot serve %s", host.Protocol))
	}

	region := host.Region
	if region == "" {
		region = DefaultRegion
	}
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(host.Username, host.Password, ""),
		),
	)
	if err != nil {
		return nil, remote.ConnectionError(endpoint, fmt.Errorf("load aws config: %w", err))
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
		if t := host.DialTimeout(); t > 0 {
			o.HTTPClient = awshttp.NewBuildableClient().WithDialerOptions(func(nd *net.Dialer) {
				nd.Timeout = t
			})
		}
	})
	return newSession(client, d.Sink), nil
}

// Endpoint returns the base URL for a custom S3 endpoint, or "" for AWS.
// The hostname may carry an explicit http:// or https:// scheme and a port,
// which then wins over host.port.
func Endpoint(host remote.HostConfig) string {
	if host.Hostname == "" {
		return ""
	}
	scheme, name := "https", host.Hostname
	if i := strings.Index(name, "://"); i >= 0 {
		scheme, name = name[:i], name[i+3:]
	}
	if _, _, err := net.SplitHostPort(name); err != nil && host.Port > 0 {
		name = net.JoinHostPort(name, strconv.Itoa(host.Port))
	}
	return scheme + "://" + name
}

// splitDir turns "bucket/some/prefix" into the bucket and a prefix ending in
// "/" (or empty for the bucket root).
func splitDir(dir string) (bucket, prefix string) {
	dir = strings.Trim(dir, "/")
	bucket, prefix, _ = strings.Cut(dir, "/")
	if prefix != "" {
		prefix = strings.TrimSuffix(prefix, "/") + "/"
	}
	return bucket, prefix
}

type session struct {
	client api
	sink   *remote.Sink
	dir    string
	bucket string
	prefix string
}

func newSession(client api, sink *remote.Sink) *session {
	return &session{client: client, sink: sink}
}

// ChangeDir checks the bucket is reachable. Prefixes are not objects in S3,
// so any prefix within an existing bucket is accepted.
func (s *session) ChangeDir(ctx context.Context, dir string) error {
	bucket, prefix := splitDir(dir)
	if bucket == "" {
		return remote.NoSuchDirectoryError(dir, errors.New("no bucket named"))
	}
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		var notFound *types.NotFound
		var noBucket *types.NoSuchBucket
		if errors.As(err, &notFound) || errors.As(err, &noBucket) {
			return remote.NoSuchDirectoryError(dir, nil)
		}
		return remote.NoSuchDirectoryError(dir, err)
	}
	s.dir = strings.Trim(dir, "/")
	s.bucket, s.prefix = bucket, prefix
	return nil
}

// List returns the objects directly under the prefix. Common prefixes are
// reported as directories.
func (s *session) List(ctx context.Context) ([]remote.File, error) {
	var files []remote.File
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(s.prefix),
		Delimiter: aws.String("/"),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, remote.ListingError(s.dir, err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			if name == "" {
				// The prefix's own placeholder object
				continue
			}
			files = append(files, remote.NewFile(s.dir, name, aws.ToInt64(obj.Size), aws.ToTime(obj.LastModified), false))
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), s.prefix), "/")
			if name == "" {
				continue
			}
			files = append(files, remote.NewFile(s.dir, name, 0, time.Time{}, true))
		}
	}
	return files, nil
}

func (s *session) Download(ctx context.Context, file remote.File, localDir string) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(file)),
	})
	if err != nil {
		return remote.DownloadError(file.Name, err)
	}
	defer out.Body.Close()

	if file.Size == 0 && out.ContentLength != nil {
		file.Size = *out.ContentLength
	}
	if err := s.sink.Store(localDir, file, out.Body); err != nil {
		return remote.DownloadError(file.Name, err)
	}
	return nil
}

func (s *session) key(file remote.File) string {
	return path.Join(s.prefix, file.Name)
}

// Close is a no-op; the SDK client holds no session state.
func (s *session) Close() error {
	return nil
}
