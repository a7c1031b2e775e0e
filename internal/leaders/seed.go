package leaders

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML document loaded by the seed command:
//
//	leaders:
//	  - given_name: Ana
//	    family_name: Ruiz
//	    candidate: Gomez
//	    active: true
type SeedFile struct {
	Leaders []Leader `yaml:"leaders"`
}

// ParseSeed decodes a seed file and checks every entry has a name and a
// candidate. Unknown keys are rejected so typos do not silently drop data.
func ParseSeed(r io.Reader) ([]Leader, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f SeedFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("seed file is empty")
		}
		return nil, fmt.Errorf("decode seed file: %w", err)
	}

	var problems []string
	for i, l := range f.Leaders {
		if strings.TrimSpace(l.GivenName) == "" || strings.TrimSpace(l.FamilyName) == "" {
			problems = append(problems, fmt.Sprintf("leader %d: given_name and family_name are required", i+1))
		}
		if strings.TrimSpace(l.Candidate) == "" {
			problems = append(problems, fmt.Sprintf("leader %d: candidate is required", i+1))
		}
	}
	if len(problems) > 0 {
		return nil, errors.New(strings.Join(problems, "; "))
	}
	return f.Leaders, nil
}
