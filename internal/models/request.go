package models

import (
	"errors"
	"strings"
)

// TranslateRequest is accepted by the local API and forwarded to the
// translation backend unchanged after validation.
type TranslateRequest struct {
	Text     string `json:"text"`
	FromLang string `json:"from_lang"`
	ToLang   string `json:"to_lang"`
}

// Validate rejects requests the backend would refuse anyway.
func (r *TranslateRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return errors.New("text is required")
	}
	if r.FromLang == "" || r.ToLang == "" {
		return errors.New("from_lang and to_lang are required")
	}
	return nil
}

// Normalize trims language codes; the text itself is never altered.
func (r *TranslateRequest) Normalize() {
	r.FromLang = strings.TrimSpace(r.FromLang)
	r.ToLang = strings.TrimSpace(r.ToLang)
}
