package wiki

import (
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/wikimeta/internal/apperr"
	"github.com/starford/wikimeta/internal/models"
)

// Page names are slash-separated segments of letters, digits, space, '-' and '_'.
var pageNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 _-]*(/[A-Za-z0-9][A-Za-z0-9 _-]*)*$`)

var pageNameRules = []validation.Rule{
	validation.Required,
	validation.Length(1, 200),
	validation.Match(pageNameRe).Error("must be slash-separated words of letters, digits, space, '-' or '_'"),
}

func stateRule() validation.Rule {
	allowed := make([]any, len(models.States))
	for i, s := range models.States {
		allowed[i] = s
	}
	return validation.In(allowed...).Error("must be one of planned, nice to have, current, obsolete")
}

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
}

// SetMetaInput is an edit-form submission of owner and state.
type SetMetaInput struct {
	Name   string
	Owner  string
	State  models.State
	Author string
}

// Validate checks the submission.
func (in SetMetaInput) Validate() error {
	return invalid(validation.ValidateStruct(&in,
		validation.Field(&in.Name, pageNameRules...),
		validation.Field(&in.Owner, validation.Required),
		validation.Field(&in.State, validation.Required, stateRule()),
	))
}

// CreatePageInput describes a new page. Empty Name picks an unused title;
// empty or wildcard Owner and State fall back to Author and planned.
type CreatePageInput struct {
	Name    string
	Content string
	Owner   string
	State   string
	Tags    []string
	Author  string
}

// Validate checks the fields that are set.
func (in CreatePageInput) Validate() error {
	return invalid(validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.When(in.Name != "", pageNameRules...)),
		validation.Field(&in.Author, validation.Required),
		validation.Field(&in.Tags, validation.Each(validation.Required)),
	))
}

func validatePageName(name string) error {
	return invalid(validation.Validate(name, pageNameRules...))
}
