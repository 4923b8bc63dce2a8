package telegraph

import (
	"context"
	"fmt"

	"github.com/zulandar/leadyard/internal/lead"
	"github.com/zulandar/leadyard/internal/notify"
)

// StatsSource provides the numbers for the digest.
type StatsSource interface {
	Stats(ctx context.Context) (lead.Stats, error)
}

// BuildDigest returns the statistics digest in lang. It returns nil when
// there are no leads at all, which suppresses the post.
func BuildDigest(ctx context.Context, src StatsSource, lang string) (*FormattedEvent, error) {
	st, err := src.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("telegraph: digest: %w", err)
	}
	if st.Total == 0 {
		return nil, nil
	}
	fe := FormatMessage(notify.DigestMessage(st, lang))
	return &fe, nil
}
