package runner

import "github.com/pako-23/layered/internal/output"

// bannerRecorder keeps the last banner error and drops everything else.
type bannerRecorder struct {
	output.Formatter
	banner string
}

func (b *bannerRecorder) ErrorWithBanner(message string) {
	b.banner = message
}
