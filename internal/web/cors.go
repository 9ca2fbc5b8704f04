package web

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS allows browser clients on any origin to call the storefront API.
func CORS(next http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(next)
}
