package port

import "redacted/internal/domain"

type Detector interface {
	Detect(text string) []domain.RedactionSpan
}
