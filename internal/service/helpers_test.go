package service

import (
	"io"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func ptrInt(v int) *int {
	return &v
}

func ptrString(v string) *string {
	return &v
}
