package models

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultLaunchSpecIsValid(t *testing.T) {
	if err := DefaultLaunchSpec().Validate(); err != nil {
		t.Fatalf("default spec invalid: %v", err)
	}
}

func TestLaunchSpecValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*LaunchSpec)
		wantErr string
	}{
		{
			name:    "zero workers",
			mutate:  func(s *LaunchSpec) { s.Command.Workers = 0 },
			wantErr: "worker count",
		},
		{
			name:    "loopback bind host",
			mutate:  func(s *LaunchSpec) { s.Command.BindHost = "127.0.0.1" },
			wantErr: "bind host",
		},
		{
			name:    "sync worker class",
			mutate:  func(s *LaunchSpec) { s.Command.WorkerClass = WorkerClassSync },
			wantErr: "not async-capable",
		},
		{
			name:    "zero timeout",
			mutate:  func(s *LaunchSpec) { s.Command.TimeoutSeconds = 0 },
			wantErr: "timeout",
		},
		{
			name: "expose and bind out of sync",
			mutate: func(s *LaunchSpec) {
				s.Expose.Port = 8080
			},
			wantErr: "stay in sync",
		},
		{
			name:    "target without attribute",
			mutate:  func(s *LaunchSpec) { s.Target = "src.server" },
			wantErr: "module_path:attribute_name",
		},
		{
			name:    "empty manifest path",
			mutate:  func(s *LaunchSpec) { s.Manifest.Path = "" },
			wantErr: "manifest path",
		},
		{
			name:    "empty native package name",
			mutate:  func(s *LaunchSpec) { s.Native = []string{"gcc", " "} },
			wantErr: "empty name",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spec := DefaultLaunchSpec()
			tc.mutate(&spec)

			err := spec.Validate()
			if err == nil {
				t.Fatal("want error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestLaunchCommandArgv(t *testing.T) {
	got := DefaultLaunchCommand().Argv("src.server:app")
	want := []string{
		"gunicorn", "src.server:app",
		"--bind", "0.0.0.0:8000",
		"--workers", "4",
		"--worker-class", "uvicorn.workers.UvicornWorker",
		"--timeout", "120",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Argv mismatch (-want +got):\n%s", diff)
	}
}

func TestBaseImageReference(t *testing.T) {
	cases := []struct {
		base BaseImage
		want string
	}{
		{BaseImage{Runtime: "python", Version: "3.11", Variant: "slim"}, "python:3.11-slim"},
		{BaseImage{Runtime: "python", Version: "3.12"}, "python:3.12"},
	}
	for _, tc := range cases {
		if got := tc.base.Reference(); got != tc.want {
			t.Errorf("Reference() = %q, want %q", got, tc.want)
		}
	}
}
