// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Load reads and decodes an HCL configuration file into Config, starting
// from Default() so any field the file omits keeps its default value.
// Command-line flag parsing and banner printing are out of scope (spec.md
// §1); this is the single narrow boundary the core exposes to whatever
// collaborator owns process startup.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := hclsimple.DecodeFile(path, nil, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDecode, err)
	}
	if errs := cfg.Validate(); errs.HasErrors() {
		return nil, fmt.Errorf("%w: %s", ErrDecode, errs.Error())
	}
	return cfg, nil
}

// ErrDecode wraps any failure to read or validate a configuration file.
var ErrDecode = fmt.Errorf("config: invalid configuration")
