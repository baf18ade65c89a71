// Package cloud builds the AWS SDK configuration shared by the S3 and
// DynamoDB backends.
package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/DrSkyle/skybalance/pkg/version"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go/middleware"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// Options selects the credentials and endpoint for a session.
type Options struct {
	Region  string
	Profile string
	// Endpoint overrides every service endpoint (LocalStack, MinIO).
	Endpoint string
	// Logger, when set, receives one debug line per API call.
	Logger *slog.Logger
	// Verify makes Loader check the credentials with STS before returning.
	Verify bool
}

// Client encapsulates SDK configuration and identity checks.
type Client struct {
	Config aws.Config
	STS    *sts.Client
}

// NewClient loads the default credential chain and installs the
// application middleware.
func NewClient(ctx context.Context, o Options) (*Client, error) {
	var opts []func(*config.LoadOptions) error
	if o.Region != "" {
		opts = append(opts, config.WithRegion(o.Region))
	}
	if o.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(o.Profile))
	}
	if o.Endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(o.Endpoint))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	cfg.APIOptions = append(cfg.APIOptions, userAgent(version.AppName+"/"+version.Current))
	if o.Logger != nil {
		cfg.APIOptions = append(cfg.APIOptions, callLogger(o.Logger))
	}

	return &Client{
		Config: cfg,
		STS:    sts.NewFromConfig(cfg),
	}, nil
}

// Loader returns a function that builds the SDK config on first use, so
// runs that never touch AWS never resolve credentials.
func Loader(o Options) func(context.Context) (aws.Config, error) {
	var (
		once sync.Once
		cfg  aws.Config
		err  error
	)
	return func(ctx context.Context) (aws.Config, error) {
		once.Do(func() {
			var c *Client
			if c, err = NewClient(ctx, o); err != nil {
				return
			}
			if o.Verify {
				var account string
				if account, err = c.VerifyIdentity(ctx); err != nil {
					return
				}
				if o.Logger != nil {
					o.Logger.Info("AWS identity verified", "account", account)
				}
			}
			cfg = c.Config
		})
		return cfg, err
	}
}

func userAgent(product string) func(*middleware.Stack) error {
	return func(stack *middleware.Stack) error {
		return stack.Build.Add(middleware.BuildMiddlewareFunc("AppUserAgent", func(ctx context.Context, input middleware.BuildInput, next middleware.BuildHandler) (
			middleware.BuildOutput, middleware.Metadata, error,
		) {
			if req, ok := input.Request.(*smithyhttp.Request); ok {
				ua := req.Header.Get("User-Agent")
				if ua == "" {
					req.Header.Set("User-Agent", product)
				} else {
					req.Header.Set("User-Agent", ua+" "+product)
				}
			}
			return next.HandleBuild(ctx, input)
		}), middleware.After)
	}
}

func callLogger(l *slog.Logger) func(*middleware.Stack) error {
	return func(stack *middleware.Stack) error {
		return stack.Initialize.Add(middleware.InitializeMiddlewareFunc("CallLogger", func(ctx context.Context, input middleware.InitializeInput, next middleware.InitializeHandler) (
			middleware.InitializeOutput, middleware.Metadata, error,
		) {
			l.Debug("AWS API call",
				"service", middleware.GetServiceID(ctx),
				"operation", middleware.GetOperationName(ctx))
			return next.HandleInitialize(ctx, input)
		}), middleware.Before)
	}
}

// VerifyIdentity validates the session credentials and returns the account id.
func (c *Client) VerifyIdentity(ctx context.Context) (string, error) {
	result, err := c.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("failed to get caller identity: %w", err)
	}
	return aws.ToString(result.Account), nil
}
