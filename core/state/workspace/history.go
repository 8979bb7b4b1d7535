package workspace

import (
	"encoding/json"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/wI2L/jsondiff"
)

// DiffState returns the RFC 6902 patch turning from into to, or nil when they are equal.
func DiffState(from, to StateBlob) ([]byte, error) {
	if from == nil {
		from = StateBlob{}
	}
	if to == nil {
		to = StateBlob{}
	}
	patch, err := jsondiff.Compare(map[string]any(from), map[string]any(to))
	if err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		return nil, nil
	}
	return json.Marshal(patch)
}

// ReplayState applies patches in order on top of base and returns the resulting blob.
func ReplayState(base StateBlob, patches [][]byte) (StateBlob, error) {
	if base == nil {
		base = StateBlob{}
	}
	cur, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}
	for _, p := range patches {
		patch, err := jsonpatch.DecodePatch(p)
		if err != nil {
			return nil, err
		}
		cur, err = patch.Apply(cur)
		if err != nil {
			return nil, err
		}
	}
	var out StateBlob
	err = json.Unmarshal(cur, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}
