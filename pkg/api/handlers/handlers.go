package handlers

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// Recorder receives API-level business counters
type Recorder interface {
	RecordCheckout(kind string)
	RecordLoginAttempt(success bool)
}

type noopRecorder struct{}

func (noopRecorder) RecordCheckout(string)    {}
func (noopRecorder) RecordLoginAttempt(bool) {}

// pathID parses a positive integer path parameter
func pathID(c echo.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryEmail returns the normalized email query parameter
func queryEmail(c echo.Context) string {
	return strings.TrimSpace(c.QueryParam("email"))
}
