package services

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// Label keys stamped on every image and container this tool creates, so
// teardown can find them by filter.
const (
	LabelJob     = "launchkit.job"
	LabelRun     = "launchkit.run"
	LabelService = "launchkit.service"
)

// DemuxLogs splits a multiplexed Docker log stream (8-byte header frames)
// into stdout and stderr writers. Returns nil on clean EOF.
func DemuxLogs(dstOut, dstErr io.Writer, src io.Reader) error {
	r := bufio.NewReader(src)

	header := make([]byte, 8)
	for {
		if _, err := io.ReadFull(r, header); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil
			}
			return err
		}

		streamType := header[0] // 1=stdout, 2=stderr
		size := binary.BigEndian.Uint32(header[4:8])
		if size == 0 {
			continue
		}

		payload := make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			return err
		}

		w := dstOut
		if streamType == 2 {
			w = dstErr
		}
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("write log payload: %w", err)
		}
	}
}

// ImageName builds the deterministic image tag for a job,
// e.g. "launchkit/3f2a...:latest".
func ImageName(jobID string) string {
	return fmt.Sprintf("launchkit/%s:latest", sanitizeName(jobID))
}

// ContainerName builds the job-scoped container name.
func ContainerName(jobID string) string {
	return fmt.Sprintf("lk-%s-web", sanitizeName(jobID))
}

func sanitizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "-")
	return s
}
