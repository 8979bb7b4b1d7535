package docker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/eagraf/habitat-workspaces/core/state/workspace"
)

// Types that never get GPU devices, whatever the host offers.
var gpuIncompatible = map[workspace.ServerType]bool{
	workspace.TypeProxy: true,
	workspace.TypeCron:  true,
}

func gpuCompatible(ws *workspace.Workspace) bool {
	return !gpuIncompatible[ws.Config.Type]
}

// gpuProbe queries the nvidia-docker plugin sidecar for the driver volume and
// device nodes of the host.
type gpuProbe struct {
	url    string
	client *http.Client
}

type gpuInfo struct {
	Volumes []string `json:"Volumes"`
	Devices []string `json:"Devices"`
}

func newGPUProbe(url string, client *http.Client) *gpuProbe {
	return &gpuProbe{
		url:    strings.TrimSuffix(url, "/"),
		client: client,
	}
}

func (p *gpuProbe) probe(ctx context.Context) (*gpuInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url+"/v1.0/docker/cli/json", nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nvidia-docker probe returned %s", resp.Status)
	}
	var info gpuInfo
	err = json.NewDecoder(resp.Body).Decode(&info)
	if err != nil {
		return nil, err
	}
	if len(info.Devices) == 0 {
		return nil, fmt.Errorf("nvidia-docker reported no devices")
	}
	return &info, nil
}

func (i *gpuInfo) apply(hostCfg *container.HostConfig) {
	hostCfg.Binds = append(hostCfg.Binds, i.Volumes...)
	if i.VolumeDriver() != "" {
		hostCfg.VolumeDriver = i.VolumeDriver()
	}
	for _, dev := range i.Devices {
		hostCfg.Devices = append(hostCfg.Devices, container.DeviceMapping{
			PathOnHost:        dev,
			PathInContainer:   dev,
			CgroupPermissions: "rwm",
		})
	}
}

// VolumeDriver is set when the driver library comes from a named nvidia-docker volume.
func (i *gpuInfo) VolumeDriver() string {
	for _, v := range i.Volumes {
		if strings.HasPrefix(v, "nvidia_driver") {
			return "nvidia-docker"
		}
	}
	return ""
}
