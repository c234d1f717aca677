package log

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/margo-stats/margo/pkg/errors"
)

// EnableZerologWarnings routes pkg/errors warnings to a zerolog logger
// writing to w. Warning types that implement zerolog.LogObjectMarshaler are
// emitted as structured objects; anything else falls back to the error
// string.
func EnableZerologWarnings(w io.Writer) {
	logger := zerolog.New(w).With().Timestamp().Logger()
	errors.SetZerologWarnFunc(func(warning error) {
		ev := logger.Warn()
		if obj, ok := warning.(zerolog.LogObjectMarshaler); ok {
			ev.EmbedObject(obj).Msg("estimation warning")
			return
		}
		ev.Err(warning).Msg("estimation warning")
	})
}
