package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun_MissingMongoURI(t *testing.T) {
	t.Setenv("MONGO_URI", "")

	assert.Equal(t, 1, run(make(chan os.Signal)))
}

func TestRun_UnreachableMongo(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://127.0.0.1:1/?connect=direct")
	t.Setenv("MONGO_CONNECT_TIMEOUT", "300ms")
	t.Setenv("TRACING_ENABLED", "false")

	assert.Equal(t, 1, run(make(chan os.Signal)))
}

func TestRun_UnknownTracingExporter(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://127.0.0.1:1/?connect=direct")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("TRACING_EXPORTER", "zipkin")

	assert.Equal(t, 1, run(make(chan os.Signal)))
}
