package llm

import "testing"

func TestSelectModel(t *testing.T) {
	tests := []struct {
		name         string
		declaredType string
		hasImages    bool
		want         ModelKind
	}{
		{"png image", "image/png", true, ModelVision},
		{"jpeg image without flag", "image/jpeg", false, ModelVision},
		{"text-only pdf", "application/pdf", false, ModelText},
		{"pdf with images", "application/pdf", true, ModelVision},
		{"plain text", "text/plain", false, ModelText},
		{"unknown type", "application/octet-stream", false, ModelText},
		{"unknown type with flag", "application/octet-stream", true, ModelText},
		{"empty type", "", false, ModelText},
		{"mixed case image", "Image/PNG", false, ModelVision},
		{"padded pdf", "  application/pdf  ", true, ModelVision},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectModel(tt.declaredType, tt.hasImages)
			if got != tt.want {
				t.Errorf("SelectModel(%q, %v) = %s, want %s", tt.declaredType, tt.hasImages, got, tt.want)
			}
		})
	}
}
