package docker

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ossira/launchkit/models"
)

func writeBuildContext(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("fastapi==0.110.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "src", "server.py"), []byte("app = ...\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Stray files outside the declared paths must not end up in the context.
	if err := os.WriteFile(filepath.Join(dir, "secrets.env"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestTarBuildContext(t *testing.T) {
	dir := writeBuildContext(t)
	spec := models.DefaultLaunchSpec()

	rd, err := tarBuildContext(dir, &spec, []byte("FROM python:3.11-slim\n"))
	if err != nil {
		t.Fatalf("tarBuildContext: %v", err)
	}

	entries := map[string]string{}
	tr := tar.NewReader(rd)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read tar: %v", err)
		}
		b, _ := io.ReadAll(tr)
		entries[hdr.Name] = string(b)
	}

	if !strings.HasPrefix(entries["Dockerfile"], "FROM python:3.11-slim") {
		t.Errorf("Dockerfile entry = %q", entries["Dockerfile"])
	}
	if entries["requirements.txt"] == "" {
		t.Error("manifest missing from build context")
	}
	if entries["src/server.py"] == "" {
		t.Error("source tree missing from build context")
	}
	if _, ok := entries["secrets.env"]; ok {
		t.Error("undeclared file leaked into build context")
	}
}

func TestCheckSpecRejectsMissingManifest(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "src"), 0o755); err != nil {
		t.Fatal(err)
	}

	spec := models.DefaultLaunchSpec()
	p := &DockerPlatform{}

	if err := p.CheckSpec(dir, &spec); err == nil {
		t.Fatal("missing manifest: want error, got nil")
	}
}

func TestCheckSpecRejectsConflictingManifest(t *testing.T) {
	dir := writeBuildContext(t)
	if err := os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("foo==1.0\nfoo==2.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	spec := models.DefaultLaunchSpec()
	p := &DockerPlatform{}

	if err := p.CheckSpec(dir, &spec); err == nil {
		t.Fatal("conflicting manifest: want error, got nil")
	}
}

func TestCheckSpecAcceptsValidContext(t *testing.T) {
	dir := writeBuildContext(t)

	spec := models.DefaultLaunchSpec()
	p := &DockerPlatform{}

	if err := p.CheckSpec(dir, &spec); err != nil {
		t.Fatalf("CheckSpec: %v", err)
	}
}

func TestStreamBuildOutput(t *testing.T) {
	var out strings.Builder
	src := strings.NewReader(`{"stream":"Step 1/7 : FROM python:3.11-slim\n"}` + "\n" + `{"stream":"ok\n"}`)

	if err := streamBuildOutput(&out, src); err != nil {
		t.Fatalf("streamBuildOutput: %v", err)
	}
	if !strings.Contains(out.String(), "Step 1/7") {
		t.Errorf("output = %q", out.String())
	}
}

func TestStreamBuildOutputSurfacesError(t *testing.T) {
	var out strings.Builder
	src := strings.NewReader(`{"stream":"Step 4/7 : RUN pip install\n"}` + "\n" + `{"error":"executor failed running"}`)

	err := streamBuildOutput(&out, src)
	if err == nil {
		t.Fatal("build error in stream: want error, got nil")
	}
	if !strings.Contains(err.Error(), "executor failed") {
		t.Errorf("error %q does not carry the daemon message", err)
	}
}
