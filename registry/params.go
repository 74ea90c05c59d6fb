package registry

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// DecodeParams decodes a params mapping into a builder's config struct.
// Field names follow mapstructure tags, matching how config files are
// unmarshalled elsewhere in the toolkit.
func DecodeParams[T any](params map[string]any) (T, error) {
	var cfg T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return cfg, fmt.Errorf("registry: creating params decoder: %w", err)
	}
	if err := decoder.Decode(params); err != nil {
		return cfg, fmt.Errorf("registry: decoding params: %w", err)
	}
	return cfg, nil
}
