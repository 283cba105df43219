package server

import (
	"github.com/paylens/paylens/internal/logging"
)

type Config struct {
	// ListenAddr is the HTTP listen address for the API server.
	ListenAddr string

	// Logger defaults to a stdout logger when nil.
	Logger logging.Logger
}
