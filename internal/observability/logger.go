package observability

import (
	"github.com/danmuck/emberctl/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger applies profile and tags every line with app.
func InitLogger(app string, profile logging.Profile) zerolog.Logger {
	logging.Configure(profile)
	logger := log.Logger.With().Str("app", app).Logger()
	log.Logger = logger
	return logger
}
