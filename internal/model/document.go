package model

import "github.com/google/uuid"

// Document is an uploaded credential document. Storage mechanics live
// outside this service; only the metadata and content digest are kept.
type Document struct {
	Base
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	Filename     string    `db:"filename" json:"filename"`
	Filepath     string    `db:"filepath" json:"filepath"`
	DocumentType string    `db:"document_type" json:"document_type"`
	FileSize     int64     `db:"file_size" json:"file_size"`
}

type RegisterDocumentRequest struct {
	Filename     string `json:"filename" binding:"required"`
	Filepath     string `json:"filepath" binding:"required"`
	DocumentType string `json:"document_type" binding:"required"`
	FileSize     int64  `json:"file_size"`
}
