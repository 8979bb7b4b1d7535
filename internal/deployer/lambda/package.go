package lambda

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/eagraf/habitat-workspaces/core/state/workspace"
)

var ErrUnsafePath = errors.New("deployment file escapes the project volume")

// PreparePackage builds the function zip: every entry of the shared framework
// archive plus each configured deployment file under its bare name.
func (d *Deployer) PreparePackage(ctx context.Context, dep *workspace.Deployment) ([]byte, error) {
	volume := dep.VolumePath(d.opts.VolumeRoot)
	paths := make([]string, 0, len(dep.Files))
	for _, f := range dep.Files {
		p, err := resolveFile(volume, f)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}

	framework, err := d.downloadFramework(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	if framework != nil {
		for _, f := range framework.File {
			err = w.Copy(f)
			if err != nil {
				return nil, fmt.Errorf("copying framework entry %s: %w", f.Name, err)
			}
		}
	}
	for _, p := range paths {
		err = addFile(w, p)
		if err != nil {
			return nil, err
		}
	}
	err = w.Close()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d *Deployer) downloadFramework(ctx context.Context) (*zip.Reader, error) {
	if d.opts.FrameworkURL == "" {
		return nil, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.opts.FrameworkURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading framework: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading framework: %s", resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
}

// resolveFile joins a configured file against the volume and rejects anything
// that would land outside of it.
func resolveFile(volume, file string) (string, error) {
	if filepath.IsAbs(file) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, file)
	}
	p := filepath.Join(volume, file)
	rel, err := filepath.Rel(volume, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, file)
	}
	return p, nil
}

func addFile(w *zip.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	entry, err := w.Create(filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(entry, f)
	return err
}
