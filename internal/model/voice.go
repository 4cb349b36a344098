package model

// Voice is a read-only catalog entry from the platform's voice library.
type Voice struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Provider   string `json:"provider,omitempty"`
	Accent     string `json:"accent,omitempty"`
	Gender     string `json:"gender,omitempty"`
	Age        string `json:"age,omitempty"`
	PreviewURL string `json:"previewUrl,omitempty"`
}
