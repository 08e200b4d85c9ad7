package options

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseFrames parses a --frames value. Accepted forms:
//
//	""      -> unset (0, 0)
//	"N"     -> frames 1 through N
//	"A-B"   -> frames A through B, inclusive
//
// Ordering and positivity are checked later by Validate so that flag and
// config sources go through the same rules.
func ParseFrames(s string) (first, last int, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, nil
	}

	if a, b, found := strings.Cut(s, "-"); found {
		first, err = strconv.Atoi(strings.TrimSpace(a))
		if err != nil {
			return 0, 0, fmt.Errorf("malformed frame range %q: %w", s, err)
		}
		last, err = strconv.Atoi(strings.TrimSpace(b))
		if err != nil {
			return 0, 0, fmt.Errorf("malformed frame range %q: %w", s, err)
		}
		return first, last, nil
	}

	last, err = strconv.Atoi(s)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed frame range %q: %w", s, err)
	}
	return 1, last, nil
}

// FrameCount returns the number of frames the options will render.
func (o *Options) FrameCount() int {
	if o.LastFrame < o.FirstFrame {
		return 0
	}
	return o.LastFrame - o.FirstFrame + 1
}
