package snac

import (
	"fmt"
	"strconv"
	"strings"
)

// ModelTraits describes an exported decoder recovered from its ONNX
// metadata, enough to feed it codes without the original config.json.
type ModelTraits struct {
	SamplingRate int
	HopLength    int
	Levels       int
	VQStrides    []int
	CodebookSize int
}

// TraitsFromMetadata parses the metadata_props written at export time.
func TraitsFromMetadata(meta map[string]string) (*ModelTraits, error) {
	if meta["model_type"] != "snac" {
		return nil, fmt.Errorf("not a snac model (model_type=%q)", meta["model_type"])
	}

	intProp := func(key string) (int, error) {
		v, ok := meta[key]
		if !ok {
			return 0, fmt.Errorf("metadata missing %s", key)
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("metadata %s=%q is not an integer", key, v)
		}
		return n, nil
	}

	traits := &ModelTraits{}
	var err error
	if traits.SamplingRate, err = intProp("sampling_rate"); err != nil {
		return nil, err
	}
	if traits.HopLength, err = intProp("hop_length"); err != nil {
		return nil, err
	}
	if traits.Levels, err = intProp("levels"); err != nil {
		return nil, err
	}
	if traits.CodebookSize, err = intProp("codebook_size"); err != nil {
		return nil, err
	}

	raw, ok := meta["vq_strides"]
	if !ok {
		return nil, fmt.Errorf("metadata missing vq_strides")
	}
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("metadata vq_strides=%q is not a stride list", raw)
		}
		traits.VQStrides = append(traits.VQStrides, n)
	}
	if len(traits.VQStrides) != traits.Levels {
		return nil, fmt.Errorf("metadata has %d strides for %d levels", len(traits.VQStrides), traits.Levels)
	}

	return traits, nil
}
