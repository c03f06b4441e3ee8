package repositories

import "github.com/vsinha/medorder/pkg/domain/entities"

// TableRepository provides the four raw source tables for a run
type TableRepository interface {
	LoadTable(source entities.SourceKind) (*entities.Table, error)
}
