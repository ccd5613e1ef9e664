package repository

import (
	"errors"
	"fmt"

	"github.com/internalign/skillmatch/internal/domain/model"
)

// Sentinel kinds for repository errors. Not-found errors wrap model.ErrNotFound.
var (
	ErrProjectNotFound = fmt.Errorf("project %w", model.ErrNotFound)
	ErrResultNotFound  = fmt.Errorf("result %w", model.ErrNotFound)
	ErrDuplicateID     = errors.New("duplicate id")
	ErrUnknownStore    = errors.New("unknown store")
)
