package docker

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/ossira/launchkit/models"
	"github.com/ossira/launchkit/services"
	"github.com/ossira/launchkit/services/buildfile"

	"github.com/moby/moby/client"
)

const dockerfileName = "Dockerfile"

// Build renders the build plan and builds the service image from the given
// context directory. Any build step failure aborts the whole build; no
// partially built image is tagged.
func (p *DockerPlatform) Build(
	ctx context.Context,
	job uuid.UUID,
	run uuid.UUID,
	contextDir string,
	spec *models.LaunchSpec) error {

	dockerfile, err := buildfile.Render(*spec)
	if err != nil {
		return err
	}

	if contextDir == "" {
		contextDir = "."
	}

	buildCtx, err := tarBuildContext(contextDir, spec, []byte(dockerfile))
	if err != nil {
		return fmt.Errorf("pack build context %q: %w", contextDir, err)
	}

	tag := services.ImageName(job.String())

	res, err := p.client.ImageBuild(ctx, buildCtx, client.ImageBuildOptions{
		Tags:       []string{tag},
		Dockerfile: dockerfileName,
		Remove:     true,
		Labels: map[string]string{
			services.LabelJob: job.String(),
			services.LabelRun: run.String(),
		},
	})
	if err != nil {
		return fmt.Errorf("build image %q: %w", tag, err)
	}
	defer res.Body.Close()

	if err := streamBuildOutput(os.Stdout, res.Body); err != nil {
		return fmt.Errorf("build image %q: %w", tag, err)
	}

	return nil
}

// streamBuildOutput copies the daemon's JSON build progress to dst and
// surfaces the first build error it reports.
func streamBuildOutput(dst io.Writer, src io.Reader) error {
	dec := json.NewDecoder(src)
	for {
		var msg struct {
			Stream string `json:"stream"`
			Error  string `json:"error"`
		}
		if err := dec.Decode(&msg); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("decode build output: %w", err)
		}
		if msg.Error != "" {
			return fmt.Errorf("build step failed: %s", msg.Error)
		}
		if msg.Stream != "" {
			fmt.Fprint(dst, msg.Stream)
		}
	}
}

// tarBuildContext packs the rendered Dockerfile, the dependency manifest and
// the source tree into a tar stream for the daemon. Only the paths the spec
// names are included.
func tarBuildContext(contextDir string, spec *models.LaunchSpec, dockerfile []byte) (io.Reader, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	if err := tw.WriteHeader(&tar.Header{
		Name: dockerfileName,
		Mode: 0o644,
		Size: int64(len(dockerfile)),
	}); err != nil {
		return nil, err
	}
	if _, err := tw.Write(dockerfile); err != nil {
		return nil, err
	}

	if err := addFile(tw, contextDir, spec.Manifest.Path); err != nil {
		return nil, err
	}
	if err := addTree(tw, contextDir, spec.Source.Path); err != nil {
		return nil, err
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	return &buf, nil
}

func addFile(tw *tar.Writer, contextDir, rel string) error {
	full := filepath.Join(contextDir, rel)

	b, err := os.ReadFile(full)
	if err != nil {
		return fmt.Errorf("read %q: %w", full, err)
	}

	if err := tw.WriteHeader(&tar.Header{
		Name: filepath.ToSlash(rel),
		Mode: 0o644,
		Size: int64(len(b)),
	}); err != nil {
		return err
	}
	_, err = tw.Write(b)
	return err
}

func addTree(tw *tar.Writer, contextDir, rel string) error {
	root := filepath.Join(contextDir, rel)

	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(contextDir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(relPath)

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && name != rel {
				return filepath.SkipDir
			}
			return tw.WriteHeader(&tar.Header{
				Name:     name + "/",
				Mode:     0o755,
				Typeflag: tar.TypeDir,
			})
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return addFile(tw, contextDir, relPath)
	})
}
