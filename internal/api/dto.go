package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/ecowise/idftab/internal/convert"
)

// UpdateJSONRequest is the JSON body form of POST /update, carrying explicit
// edits by ref instead of an edited sheet.
type UpdateJSONRequest struct {
	Name    string        `json:"name"`
	IDF     string        `json:"idf"`
	Version string        `json:"version,omitempty"`
	Verify  bool          `json:"verify,omitempty"`
	Edits   []EditRequest `json:"edits"`
}

// Validate validates the update request.
func (r *UpdateJSONRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.IDF, validation.Required),
		validation.Field(&r.Edits, validation.Required, validation.Length(1, 0)),
	)
}

// EditRequest is one explicit value replacement.
type EditRequest struct {
	Instance int    `json:"instance"`
	Position int    `json:"position"`
	Value    string `json:"value"`
}

// Validate validates one edit.
func (r EditRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Instance, validation.Min(0)),
		validation.Field(&r.Position, validation.Min(0)),
	)
}

// ConvertResponse is returned by POST /convert.
type ConvertResponse struct {
	JobID    string        `json:"job_id"`
	Version  string        `json:"version"`
	Warning  string        `json:"warning,omitempty"`
	Stats    convert.Stats `json:"stats"`
	Artifact string        `json:"artifact,omitempty"`
}

// UpdateResponse is returned by POST /update.
type UpdateResponse struct {
	JobID    string         `json:"job_id"`
	Version  string         `json:"version"`
	Report   convert.Report `json:"report"`
	Artifact string         `json:"artifact,omitempty"`
}

// VersionsResponse wraps the catalog's available version tags.
type VersionsResponse struct {
	Versions []string `json:"versions"`
}
