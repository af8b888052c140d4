package session

import (
	"context"

	"github.com/bialobrzeskid/Hold-To-Speak/internal/history"
	"github.com/bialobrzeskid/Hold-To-Speak/internal/record"
)

// Recorder captures one clip at a time.
type Recorder interface {
	Start(ctx context.Context) error
	Stop() (record.Result, error)
	Cancel() error
}

// Converter transcodes a clip into the upload format.
type Converter interface {
	Convert(ctx context.Context, inPath, outPath string) error
}

// Deliverer hands the transcript to the user. An error wrapping
// clipboard.ErrPaste means the text was copied but not pasted.
type Deliverer interface {
	Deliver(text string) error
}

// History persists usage statistics.
type History interface {
	Record(ctx context.Context, e history.Entry) error
}

// Cache decides what happens to a processed clip's files. uploadPath is
// empty when the WAV itself was uploaded; raw is the provider response on
// success.
type Cache interface {
	Store(wavPath, uploadPath string, raw []byte, ok bool)
}
