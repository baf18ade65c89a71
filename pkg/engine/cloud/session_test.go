package cloud

import (
	"context"
	"testing"

	"github.com/aws/smithy-go/middleware"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserAgentMiddleware(t *testing.T) {
	stack := middleware.NewStack("test", smithyhttp.NewStackRequest)
	require.NoError(t, userAgent("SkyBalance/test")(stack))

	var got string
	req := smithyhttp.NewStackRequest().(*smithyhttp.Request)
	req.Header.Set("User-Agent", "aws-sdk-go-v2/1.0")

	mw, ok := stack.Build.Get("AppUserAgent")
	require.True(t, ok)
	_, _, err := mw.HandleBuild(context.Background(), middleware.BuildInput{Request: req},
		middleware.BuildHandlerFunc(func(ctx context.Context, in middleware.BuildInput) (middleware.BuildOutput, middleware.Metadata, error) {
			got = in.Request.(*smithyhttp.Request).Header.Get("User-Agent")
			return middleware.BuildOutput{}, middleware.Metadata{}, nil
		}))
	require.NoError(t, err)
	assert.Equal(t, "aws-sdk-go-v2/1.0 SkyBalance/test", got)
}
