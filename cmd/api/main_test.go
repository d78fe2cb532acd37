package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestOpenAPICommand(t *testing.T) {
	t.Setenv("URL_ROOT", "/api")

	for _, args := range [][]string{
		{"openapi", "--env-file", t.TempDir() + "/none.env"},
		{"openapi", "--yaml", "--env-file", t.TempDir() + "/none.env"},
	} {
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetArgs(args)
		if err := cmd.Execute(); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		if !strings.Contains(out.String(), "/indego/trip-points/") {
			t.Fatalf("%v: document missing paths:\n%s", args, out.String())
		}
		if !strings.Contains(out.String(), "/api") {
			t.Fatalf("%v: server url not set", args)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "spatial-api dev") {
		t.Fatalf("got %q", out.String())
	}
}

func TestServe_InvalidConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "chatty")
	cmd := newRootCmd()
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"serve", "--env-file", t.TempDir() + "/none.env"})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "LOG_LEVEL") {
		t.Fatalf("want LOG_LEVEL config error, got %v", err)
	}
}
