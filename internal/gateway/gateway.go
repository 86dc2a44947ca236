package gateway

import "context"

// Aspect is the output aspect ratio for generated media.
type Aspect string

const (
	AspectPortrait  Aspect = "9:16"
	AspectLandscape Aspect = "16:9"
)

// GenOptions carries the aspect ratio and style flags passed through to
// the generative provider on every call.
type GenOptions struct {
	Aspect Aspect
	Style  string
}

// MediaGateway is the remote generative service consumed by the job
// runners. Failures returned by implementations are classified *Error
// values so callers can switch on the error kind.
type MediaGateway interface {
	// GenerateImage renders one image for the prompt and returns an
	// opaque reference (URL or data URI).
	GenerateImage(ctx context.Context, prompt string, opts GenOptions) (string, error)

	// GenerateVideo animates an image into a short clip and returns an
	// opaque video reference. The reference may expire upstream; callers
	// cache the binary if they need it to survive.
	GenerateVideo(ctx context.Context, imageRef, prompt string, opts GenOptions) (string, error)

	// FetchBinary downloads the payload behind a reference.
	FetchBinary(ctx context.Context, ref string) ([]byte, error)
}
