package services

import (
	"fmt"
	"strings"

	"github.com/vsinha/medorder/pkg/domain/entities"
)

// StripPrefix removes a single leading occurrence of prefix from description
func StripPrefix(description, prefix string) string {
	if prefix == "" {
		return description
	}
	return strings.TrimPrefix(description, prefix)
}

// BuildProductKey composes "{name} {description} {package_qty} ({form})" from
// the columns the role mapping points at. Missing columns render empty; the
// form is trimmed and lowercased. Key equality is purely syntactic.
func BuildProductKey(row entities.RawRow, roles entities.ColumnRoles, ignorePrefix string) entities.ProductKey {
	description := row.Get(roles.Description)
	if description != "" {
		description = StripPrefix(description, ignorePrefix)
	}

	form := strings.ToLower(strings.TrimSpace(row.Get(roles.Form)))

	return entities.ProductKey(fmt.Sprintf("%s %s %s (%s)",
		row.Get(roles.Name),
		description,
		row.Get(roles.PackageQty),
		form,
	))
}
