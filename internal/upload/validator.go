package upload

import "strings"

// RejectReason explains why a file was not queued.
type RejectReason string

const (
	ReasonDeniedExtension      RejectReason = "denied-extension"
	ReasonUnsupportedExtension RejectReason = "unsupported-extension"
	ReasonDuplicate            RejectReason = "duplicate"
)

// Verdict is the outcome of validating a file name.
type Verdict struct {
	Accepted bool         `json:"accepted" msgpack:"accepted"`
	Reason   RejectReason `json:"reason,omitempty" msgpack:"reason,omitempty"`
}

// DefaultAllowedExtensions are the suffixes accepted when none are configured.
var DefaultAllowedExtensions = []string{
	".pdf", ".txt", ".docx", ".ppt", ".pptx", ".json", ".png", ".jpg", ".jpeg",
}

// DeniedExtensions are source code and media suffixes. They are rejected even
// if the allow list names them.
var DeniedExtensions = []string{
	".js", ".ts", ".py", ".c", ".cpp", ".java", ".html", ".css",
	".mp3", ".wav", ".mp4", ".mov", ".avi",
}

// Validator decides whether a file name may enter the queue.
type Validator struct {
	allowed []string
	denied  []string
}

// NewValidator creates a validator for the given allow list. An empty list
// means DefaultAllowedExtensions.
func NewValidator(allowed []string) *Validator {
	if len(allowed) == 0 {
		allowed = DefaultAllowedExtensions
	}
	return &Validator{
		allowed: normalizeExtensions(allowed),
		denied:  normalizeExtensions(DeniedExtensions),
	}
}

// Validate checks name against the deny list first, then the allow list.
func (v *Validator) Validate(name string) Verdict {
	lower := strings.ToLower(name)

	for _, ext := range v.denied {
		if strings.HasSuffix(lower, ext) {
			return Verdict{Reason: ReasonDeniedExtension}
		}
	}
	for _, ext := range v.allowed {
		if strings.HasSuffix(lower, ext) {
			return Verdict{Accepted: true}
		}
	}
	return Verdict{Reason: ReasonUnsupportedExtension}
}

// AllowedExtensions returns a copy of the allow list.
func (v *Validator) AllowedExtensions() []string {
	return append([]string(nil), v.allowed...)
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}
