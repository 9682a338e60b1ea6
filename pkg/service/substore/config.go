package substore

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

type partitionsFile struct {
	Partitions []Partition `yaml:"partitions"`
}

// LoadPartitions reads a partition layout from a YAML file. An empty
// path yields the default layout.
func LoadPartitions(path string) ([]Partition, error) {
	if path == "" {
		return DefaultPartitions(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read partitions file", goerr.V("path", path))
	}

	var file partitionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(err, "failed to parse partitions file", goerr.V("path", path))
	}

	for _, p := range file.Partitions {
		if p.Name == "" {
			return nil, goerr.New("partition name is required", goerr.V("path", path))
		}
		if !p.Type.Storable() {
			return nil, goerr.New("partition memory_type must be a storable label",
				goerr.V("path", path), goerr.V("type", p.Type))
		}
	}

	return file.Partitions, nil
}
