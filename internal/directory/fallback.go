package directory

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed fallback_departments.yaml
var defaultFallback []byte

// Choice is a department offered on the submission form.
type Choice struct {
	Code string `yaml:"code" json:"code"`
	Name string `yaml:"name" json:"name"`
}

type fallbackFile struct {
	Departments []Choice `yaml:"departments"`
}

// LoadFallback reads the static department list from path, or the built-in list when path is empty.
func LoadFallback(path string) ([]Choice, error) {
	data := defaultFallback
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read fallback departments: %w", err)
		}
		data = raw
	}
	var file fallbackFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse fallback departments: %w", err)
	}
	if len(file.Departments) == 0 {
		return nil, fmt.Errorf("fallback departments: empty list")
	}
	return file.Departments, nil
}
