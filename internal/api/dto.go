package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/dagaz/internal/models"
)

// BlockDTO is one content block in a save request or note response.
type BlockDTO struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// Validate checks that the block type is one of the known kinds. Data may
// be empty: an empty body block is valid content.
func (b BlockDTO) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Type, validation.Required,
			validation.In(string(models.BlockBody), string(models.BlockImage), string(models.BlockAudio))),
	)
}

// SaveNoteRequest is the request body for saving a note.
type SaveNoteRequest struct {
	Category string     `json:"category"`
	Title    string     `json:"title"`
	Blocks   []BlockDTO `json:"blocks"`
}

// Validate validates the save request. Title and category may be empty.
func (r SaveNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Blocks),
	)
}

// Note converts the request body into the domain note.
func (r SaveNoteRequest) Note() models.Note {
	n := models.Note{Title: r.Title}
	for _, b := range r.Blocks {
		n.Blocks = append(n.Blocks, models.Block{Type: models.BlockType(b.Type), Data: b.Data})
	}
	return n
}

// NoteResponse is the response payload for a loaded note.
type NoteResponse struct {
	Username string     `json:"username"`
	FileName string     `json:"file_name"`
	Title    string     `json:"title"`
	Blocks   []BlockDTO `json:"blocks"`
}

// NewNoteResponse builds a NoteResponse from a domain note.
func NewNoteResponse(username, fileName string, n models.Note) NoteResponse {
	resp := NoteResponse{
		Username: username,
		FileName: fileName,
		Title:    n.Title,
		Blocks:   []BlockDTO{},
	}
	for _, b := range n.Blocks {
		resp.Blocks = append(resp.Blocks, BlockDTO{Type: string(b.Type), Data: b.Data})
	}
	return resp
}

// SaveCategoryRequest is the request body for creating or touching a category.
type SaveCategoryRequest struct {
	Username string `json:"username"`
	Category string `json:"category"`
}

// Validate validates the category request.
func (r SaveCategoryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Category, validation.Required),
	)
}

// SaveProfileRequest is the request body for replacing a profile.
type SaveProfileRequest struct {
	Nickname string `json:"nickname"`
	Motto    string `json:"motto"`
	Avatar   string `json:"avatar"`
}

// NoteListResponse wraps note record listings.
type NoteListResponse struct {
	Notes []models.NoteRecord `json:"notes"`
	Total int                 `json:"total"`
}

// CategoryListResponse wraps category listings.
type CategoryListResponse struct {
	Categories []models.CategoryRecord `json:"categories"`
	Total      int                     `json:"total"`
}
