package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4/middleware"
)

// AllowedMethods lists the methods the storefront accepts cross-origin
var AllowedMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

// CORSConfig returns the CORS configuration for the given frontend origins
func CORSConfig(origins []string) middleware.CORSConfig {
	return middleware.CORSConfig{
		AllowOrigins:     origins,
		AllowMethods:     AllowedMethods,
		AllowCredentials: true,
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
		},
	}
}
