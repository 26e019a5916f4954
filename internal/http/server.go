package http

import (
	"log/slog"
	"net/http"

	"github.com/rs/cors"
	sloghttp "github.com/samber/slog-http"
)

// WrapHandler adds access logging and CORS around the router.
func WrapHandler(h http.Handler, log *slog.Logger, allowedOrigins []string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
	})

	logged := sloghttp.NewWithConfig(log, sloghttp.Config{
		DefaultLevel:     slog.LevelInfo,
		ClientErrorLevel: slog.LevelWarn,
		ServerErrorLevel: slog.LevelError,
	})(c.Handler(h))

	return sloghttp.Recovery(logged)
}
