package models

// UploadTarget is what the remote backend receives for one converted file.
type UploadTarget struct {
	Account  string   `json:"-"`
	Category Category `json:"category"`
	FileName string   `json:"fileName"`
	FileData string   `json:"fileData"` // Base64 without a data-URL prefix
}

// UploadedFile is a document already stored by the remote backend.
type UploadedFile struct {
	FileName   string `json:"filename"`
	FileID     string `json:"imagekitFileId,omitempty"`
	URL        string `json:"imagekitUrl,omitempty"`
	UploadedAt string `json:"uploadedAt,omitempty"` // As reported by the backend
}

// UploadListing groups the remote documents by category.
type UploadListing struct {
	Notice  []UploadedFile `json:"notice"`
	FAQ     []UploadedFile `json:"faq"`
	ImpData []UploadedFile `json:"impData"`
}

// ByCategory returns the documents filed under c.
func (l *UploadListing) ByCategory(c Category) []UploadedFile {
	switch c {
	case CategoryNotice:
		return l.Notice
	case CategoryFAQ:
		return l.FAQ
	case CategoryImpData:
		return l.ImpData
	}
	return nil
}
