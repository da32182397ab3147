package versions

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/HariSeldon343/NexioSolution-sub003/internal/domain"
)

const (
	maxTitleLength       = 255
	maxCodeLength        = 64
	maxDescriptionLength = 1000
	maxBodyLength        = 5 << 20
)

var statuses = []any{"draft", "published", "archived"}

type NewDocumentInput struct {
	ModuleID         *int64 `json:"moduleId"`
	ClassificationID *int64 `json:"classificationId"`
	DocumentType     string `json:"documentType"`
	Code             string `json:"code"`
	Title            string `json:"title"`
	Body             string `json:"body"`
	Status           string `json:"status"`
}

func (in NewDocumentInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.RuneLength(1, maxTitleLength)),
		validation.Field(&in.Code, validation.RuneLength(0, maxCodeLength)),
		validation.Field(&in.DocumentType, validation.RuneLength(0, 64)),
		validation.Field(&in.Status, validation.In(statuses...)),
		validation.Field(&in.Body, validation.Length(0, maxBodyLength)),
		validation.Field(&in.ModuleID, validation.NilOrNotEmpty, validation.Min(int64(1))),
		validation.Field(&in.ClassificationID, validation.NilOrNotEmpty, validation.Min(int64(1))),
	)
}

// CreateVersionInput is an edit of an existing lineage. RootID may name any
// version of the lineage. An empty Title keeps the current title.
type CreateVersionInput struct {
	RootID            int64  `json:"rootId"`
	Title             string `json:"title"`
	Body              string `json:"body"`
	ChangeDescription string `json:"changeDescription"`
}

func (in CreateVersionInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.RootID, validation.Required, validation.Min(int64(1))),
		validation.Field(&in.Title, validation.RuneLength(0, maxTitleLength)),
		validation.Field(&in.Body, validation.Length(0, maxBodyLength)),
		validation.Field(&in.ChangeDescription, validation.RuneLength(0, maxDescriptionLength)),
	)
}

// invalid converts ozzo errors into the domain taxonomy.
func invalid(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return &domain.ValidationError{Message: err.Error()}
	}
	details := make(map[string]string, len(fieldErrs))
	for field, fieldErr := range fieldErrs {
		details[field] = fieldErr.Error()
	}
	return &domain.ValidationError{Message: "invalid input", Details: details}
}
