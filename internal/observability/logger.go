package observability

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger installs a global logger tagged with app and returns it.
func InitLogger(app string, w io.Writer) zerolog.Logger {
	logger := zerolog.New(w).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}
