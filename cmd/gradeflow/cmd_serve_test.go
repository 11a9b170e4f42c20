package main

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveHost(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name        string
		host        string
		allowRemote bool
		want        string
	}{
		{name: "empty defaults to loopback", host: "", want: "127.0.0.1"},
		{name: "wildcard without flag", host: "0.0.0.0", want: "127.0.0.1"},
		{name: "ipv6 wildcard without flag", host: "::", want: "127.0.0.1"},
		{name: "remote ip without flag", host: "10.0.0.5", want: "127.0.0.1"},
		{name: "loopback kept", host: "127.0.0.1", want: "127.0.0.1"},
		{name: "ipv6 loopback kept", host: "::1", want: "::1"},
		{name: "hostname kept", host: "localhost", want: "localhost"},
		{name: "wildcard with flag", host: "0.0.0.0", allowRemote: true, want: "0.0.0.0"},
		{name: "empty with flag", host: "", allowRemote: true, want: "0.0.0.0"},
		{name: "remote ip with flag", host: "10.0.0.5", allowRemote: true, want: "10.0.0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveHost(tt.host, tt.allowRemote, logger))
		})
	}
}
