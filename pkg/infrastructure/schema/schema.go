// Package schema loads the column role mapping from a YAML file.
//
//	sources:
//	  dispensed_past_2_months:
//	    roles:
//	      name: generic_name
//	      description: qty_x_form
//	      package_qty: package_qty
//	      form: form
//	    quantity_column: containers
//	    ignore_prefix: "1 x "
//
// Sources not listed keep their defaults. Within a listed source, omitted
// roles keep their defaults too; column names are normalized the same way
// the source headers are.
package schema

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/vsinha/medorder/pkg/domain/entities"
	domainservices "github.com/vsinha/medorder/pkg/domain/services"
	"gopkg.in/yaml.v3"
)

type sourceFile struct {
	Roles          entities.ColumnRoles `yaml:"roles"`
	QuantityColumn string               `yaml:"quantity_column"`
	IgnorePrefix   *string              `yaml:"ignore_prefix"`
}

type schemaFile struct {
	Sources map[string]sourceFile `yaml:"sources"`
}

// Load reads a schema file, layered on entities.DefaultSchema
func Load(path string) (entities.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file %s: %w", path, err)
	}
	s, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("schema file %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a schema document from r
func Parse(r io.Reader) (entities.Schema, error) {
	var file schemaFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	result := entities.DefaultSchema()
	for name, src := range file.Sources {
		kind, err := entities.ParseSourceKind(name)
		if err != nil {
			return nil, err
		}

		spec := result[kind]
		spec.Roles = mergeRoles(spec.Roles, src.Roles)
		if src.QuantityColumn != "" {
			spec.QuantityColumn = domainservices.NormalizeHeader(src.QuantityColumn)
		}
		if src.IgnorePrefix != nil {
			spec.IgnorePrefix = *src.IgnorePrefix
		}
		result[kind] = spec
	}

	if err := result.Validate(); err != nil {
		return nil, err
	}
	return result, nil
}

func mergeRoles(base, override entities.ColumnRoles) entities.ColumnRoles {
	pick := func(current, replacement string) string {
		if replacement == "" {
			return current
		}
		return domainservices.NormalizeHeader(replacement)
	}
	return entities.ColumnRoles{
		Name:        pick(base.Name, override.Name),
		Description: pick(base.Description, override.Description),
		PackageQty:  pick(base.PackageQty, override.PackageQty),
		Form:        pick(base.Form, override.Form),
	}
}
