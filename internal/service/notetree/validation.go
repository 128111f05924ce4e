package notetree

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"notetree/internal/config"
	"notetree/internal/domain"
	"notetree/internal/domain/models"
)

var illegalTitle = regexp.MustCompile(`^[^` + regexp.QuoteMeta(config.IllegalTitleChars) + `]*$`)

// normalizeTitle trims surrounding whitespace and validates what is left
func normalizeTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	err := validation.Validate(title,
		validation.Required.Error("title is required"),
		validation.RuneLength(1, config.MaxTitleLength).
			Error(fmt.Sprintf("title must be at most %d characters", config.MaxTitleLength)),
		validation.Match(illegalTitle).
			Error(fmt.Sprintf("title cannot contain any of %s", config.IllegalTitleChars)),
	)
	if err != nil {
		return "", &domain.ValidationError{Message: err.Error(), Field: "title"}
	}
	return title, nil
}

func validateSortOrder(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return domain.NewValidation("sort_order", "sort_order must be a finite number")
	}
	return nil
}

// checkFolderName rejects a folder title already used by a live sibling folder
func checkFolderName(nodes *NodeStore, parentID, title, excludeID string) error {
	for _, sibling := range nodes.Children(parentID) {
		if sibling.IsFolder && sibling.ID != excludeID && sibling.Title == title {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a folder named %q already exists in this location", title),
				ResourceType: "folder",
				ResourceID:   sibling.ID,
			}
		}
	}
	return nil
}

// requireFolderParent checks that parentID is the root or a live folder
func requireFolderParent(nodes *NodeStore, parentID string) error {
	if parentID == models.RootID {
		return nil
	}
	parent, err := nodes.GetLive(parentID)
	if err != nil {
		return err
	}
	if !parent.IsFolder {
		return domain.NewValidation("parent_id", "parent %s is not a folder", parentID)
	}
	return nil
}

// classifyStoreError keeps typed store errors and wraps everything else as a
// TransportError for op.
func classifyStoreError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrCycle),
		errors.Is(err, domain.ErrTransport):
		return err
	default:
		return &domain.TransportError{Op: op, Err: err}
	}
}
