package output

import (
	"encoding/json"

	yml "sigs.k8s.io/yaml"
)

var Json = &jsonOutput{}

var Yaml = &yamlOutput{}

type Output interface {
	// GetName returns the name of the output format, will be used by the CLI to identify the output format.
	GetName() string
	// Print serializes the given value (typically a WAPI object list) as a string.
	Print(v any) (string, error)
}

var Outputs = []Output{
	Json,
	Yaml,
}

var Names []string

func FromString(name string) Output {
	for _, output := range Outputs {
		if output.GetName() == name {
			return output
		}
	}
	return nil
}

type jsonOutput struct{}

func (p *jsonOutput) GetName() string {
	return "json"
}

func (p *jsonOutput) Print(v any) (string, error) {
	ret, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(ret), nil
}

type yamlOutput struct{}

func (p *yamlOutput) GetName() string {
	return "yaml"
}

func (p *yamlOutput) Print(v any) (string, error) {
	return MarshalYaml(v)
}

func MarshalYaml(v any) (string, error) {
	ret, err := yml.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(ret), nil
}

func init() {
	Names = make([]string, 0)
	for _, output := range Outputs {
		Names = append(Names, output.GetName())
	}
}
