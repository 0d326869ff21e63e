// Package server exposes a docrag.Service over HTTP with JSON responses.
package server
