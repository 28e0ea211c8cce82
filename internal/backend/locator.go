package backend

import (
	"fmt"
	"os"
	"strings"
)

// Locator reports whether the model artifact a backend needs is ready.
type Locator interface {
	Locate() (string, error)
}

// ArtifactError describes why no usable model artifact was found.
type ArtifactError struct {
	Path    string
	Exists  bool
	CanRead bool
	Bytes   int64
	Reason  string
}

func (e *ArtifactError) Error() string {
	if e.Path == "" {
		return "model artifact: " + e.Reason
	}
	return fmt.Sprintf("model artifact %s: %s", e.Path, e.Reason)
}

func (e *ArtifactError) Unwrap() error { return ErrUnavailable }

// FileLocator resolves a local model file, preferring Preferred over
// Fallback. A path qualifies when it is a readable, non-empty regular file.
type FileLocator struct {
	Preferred string
	Fallback  string
}

// Locate returns the first qualifying path. On failure the error is an
// *ArtifactError for the first configured path.
func (l FileLocator) Locate() (string, error) {
	var first *ArtifactError
	for _, p := range []string{l.Preferred, l.Fallback} {
		if strings.TrimSpace(p) == "" {
			continue
		}
		ae := inspect(p)
		if ae == nil {
			return p, nil
		}
		if first == nil {
			first = ae
		}
	}
	if first == nil {
		return "", &ArtifactError{Bytes: -1, Reason: "model path blank"}
	}
	return "", first
}

func inspect(path string) *ArtifactError {
	fi, err := os.Stat(path)
	if err != nil {
		return &ArtifactError{Path: path, Bytes: -1, Reason: "not found"}
	}
	ae := &ArtifactError{Path: path, Exists: true, Bytes: fi.Size()}
	if !fi.Mode().IsRegular() {
		ae.Reason = "not a regular file"
		return ae
	}
	f, err := os.Open(path)
	if err != nil {
		ae.Reason = "not readable"
		return ae
	}
	_ = f.Close()
	ae.CanRead = true
	if fi.Size() <= 0 {
		ae.Reason = "empty file"
		return ae
	}
	return nil
}

// RemoteLocator is ready when a remote model id is configured.
type RemoteLocator struct {
	Model string
}

func (l RemoteLocator) Locate() (string, error) {
	if strings.TrimSpace(l.Model) == "" {
		return "", &ArtifactError{Bytes: -1, Reason: "no remote model configured"}
	}
	return l.Model, nil
}
