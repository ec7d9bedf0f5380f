package main

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/scholarship-api/internal/dto"
)

type catalogue struct {
	CreatedBy string                    `yaml:"createdBy"`
	Schemes   []dto.CreateSchemeRequest `yaml:"schemes"`
}

func parseCatalogue(r io.Reader) (*catalogue, error) {
	var cat catalogue
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cat); err != nil {
		return nil, fmt.Errorf("decode catalogue: %w", err)
	}
	seen := make(map[string]struct{}, len(cat.Schemes))
	for i, scheme := range cat.Schemes {
		key := strings.ToLower(strings.TrimSpace(scheme.Name))
		if key == "" {
			return nil, fmt.Errorf("scheme #%d has no name", i+1)
		}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("scheme %q listed twice", scheme.Name)
		}
		seen[key] = struct{}{}
	}
	return &cat, nil
}
