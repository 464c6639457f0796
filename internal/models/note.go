// Package models defines the domain types for Dagaz.
package models

// BlockType discriminates how a block's Data field is interpreted.
type BlockType string

const (
	BlockBody  BlockType = "body"  // Data is literal text content
	BlockImage BlockType = "image" // Data is an image resource file name
	BlockAudio BlockType = "audio" // Data is an audio resource file name
)

// Valid reports whether t is one of the known block types.
func (t BlockType) Valid() bool {
	switch t {
	case BlockBody, BlockImage, BlockAudio:
		return true
	}
	return false
}

// Block is one unit of note content. For image and audio blocks Data is a
// bare file name resolved against the owning user's resource directory,
// never a full path.
type Block struct {
	Type BlockType `json:"type" yaml:"type"`
	Data string    `json:"data" yaml:"data"`
}

// Note is a title plus an ordered sequence of blocks. A note carries no
// embedded identifier; it is addressed by (username, fileName) supplied by
// the caller, and block order matches display order.
type Note struct {
	Title  string  `json:"title" yaml:"title"`
	Blocks []Block `json:"blocks" yaml:"blocks"`
}

// Keyword returns the data of the first body block, or "" if there is none.
func (n Note) Keyword() string {
	for _, b := range n.Blocks {
		if b.Type == BlockBody {
			return b.Data
		}
	}
	return ""
}

// CoverImage returns the data of the first image block, or "" if there is none.
func (n Note) CoverImage() string {
	for _, b := range n.Blocks {
		if b.Type == BlockImage {
			return b.Data
		}
	}
	return ""
}

// Resources returns the file names referenced by image and audio blocks,
// paired with their block type, in block order.
func (n Note) Resources() []Block {
	var out []Block
	for _, b := range n.Blocks {
		if b.Type == BlockImage || b.Type == BlockAudio {
			out = append(out, b)
		}
	}
	return out
}

// NoteRecord is the denormalized summary of a note kept in the metadata
// index for listing and search without decoding every file. It is derived
// from the note file on save; the file is always canonical.
type NoteRecord struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	FileName     string `json:"file_name"`
	Category     string `json:"category"`
	Title        string `json:"title"`
	Keyword      string `json:"keyword"`
	CoverImage   string `json:"cover_image,omitempty"`
	LastModified string `json:"last_modified"`
}

// CategoryRecord is a purely organizational grouping. A category with zero
// notes is a valid persisted state.
type CategoryRecord struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Category string `json:"category"`
	LastUsed string `json:"last_used"`
}

// ProfileRecord holds per-user profile fields. Avatar follows the same
// resource-reference convention as image blocks, rooted at the profile
// base path.
type ProfileRecord struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Motto    string `json:"motto"`
	Avatar   string `json:"avatar,omitempty"`
}
