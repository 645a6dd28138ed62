package server

import (
	"github.com/raysh454/harstyle/internal/analyzer"
	"github.com/raysh454/harstyle/internal/logging"
)

type Config struct {
	// ListenAddr is the HTTP listen address for the API server.
	ListenAddr string
	Analyzer   *analyzer.Analyzer
	Logger     logging.Logger
}
