package export

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// ZipArtifacts packages several artifacts into a single zip archive.
func ZipArtifacts(filename string, artifacts []Artifact) (Artifact, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, art := range artifacts {
		w, err := zw.Create(art.Filename)
		if err != nil {
			return Artifact{}, fmt.Errorf("adding %s to archive: %w", art.Filename, err)
		}
		if _, err := w.Write(art.Content); err != nil {
			return Artifact{}, fmt.Errorf("writing %s to archive: %w", art.Filename, err)
		}
	}
	if err := zw.Close(); err != nil {
		return Artifact{}, fmt.Errorf("closing archive: %w", err)
	}
	return Artifact{
		Filename:    filename,
		ContentType: FormatZIP.ContentType(),
		Content:     buf.Bytes(),
	}, nil
}
