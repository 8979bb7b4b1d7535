package docker

import (
	"context"
	"fmt"

	"github.com/eagraf/habitat-workspaces/core/state/workspace"
)

// links starts every connected workspace that is not running yet and returns
// the container links to them. visiting holds the workspaces already being
// started further up the chain.
func (s *Spawner) links(ctx context.Context, ws *workspace.Workspace, visiting map[string]bool) ([]string, error) {
	if len(ws.Connected) == 0 {
		return nil, nil
	}
	if s.loader == nil {
		return nil, fmt.Errorf("workspace %s has connected workspaces but no loader is configured", ws.ID)
	}

	links := make([]string, 0, len(ws.Connected))
	for _, id := range ws.Connected {
		other, err := s.loader.GetWorkspace(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("loading connected workspace %s: %w", id, err)
		}
		if s.Status(ctx, other) != workspace.StatusRunning || visiting[other.ID] {
			err = s.start(ctx, other, visiting)
			if err != nil {
				return nil, err
			}
		}
		links = append(links, fmt.Sprintf("%s:%s", other.Slug(), workspace.Slugify(other.Name)))
	}
	return links, nil
}
