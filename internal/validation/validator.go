// Package validation checks report submissions before anything touches the
// object store or the database.
package validation

import (
	"bytes"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"unicode/utf8"

	_ "golang.org/x/image/webp"
)

const (
	// MaxDescriptionLength is measured in characters, not bytes.
	MaxDescriptionLength = 1000

	// MaxImageSize is the largest accepted upload in bytes.
	MaxImageSize = 5 * 1024 * 1024
)

var (
	ErrMissingField         = errors.New("image and description are required")
	ErrDescriptionTooLong   = errors.New("description must be at most 1000 characters")
	ErrUnsupportedImageType = errors.New("invalid file type: please upload JPEG, PNG, or WebP")
	ErrImageTooLarge        = errors.New("image must be at most 5MB")
)

// AllowedMIME lists the accepted image content types and the decoder format
// name each one must sniff as.
var AllowedMIME = map[string]string{
	"image/jpeg": "jpeg",
	"image/png":  "png",
	"image/webp": "webp",
}

// Image is an uploaded file as received from the client.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Size returns the payload length in bytes.
func (i *Image) Size() int64 {
	return int64(len(i.Data))
}

// Submission holds the raw create-report fields.
type Submission struct {
	Image                *Image
	Description          string
	Location             string
	AnonymousDisplayName string
}

// ValidatedSubmission can only be produced by Validator.Validate.
type ValidatedSubmission struct {
	Image                Image
	Description          string
	Location             *string
	AnonymousDisplayName *string
}

// Validator checks submissions. The zero value trusts the declared content
// type; VerifyContent additionally requires the bytes to decode as one of
// the allowed formats.
type Validator struct {
	VerifyContent bool
}

func New(verifyContent bool) *Validator {
	return &Validator{VerifyContent: verifyContent}
}

// Validate runs the checks in a fixed order: required fields, description
// length, content type, size, then the optional content sniff.
func (v *Validator) Validate(s Submission) (ValidatedSubmission, error) {
	if s.Image == nil || len(s.Image.Data) == 0 || s.Description == "" {
		return ValidatedSubmission{}, ErrMissingField
	}

	if utf8.RuneCountInString(s.Description) > MaxDescriptionLength {
		return ValidatedSubmission{}, ErrDescriptionTooLong
	}

	contentType := normalizeContentType(s.Image.ContentType)
	format, ok := AllowedMIME[contentType]
	if !ok {
		return ValidatedSubmission{}, ErrUnsupportedImageType
	}

	if s.Image.Size() > MaxImageSize {
		return ValidatedSubmission{}, ErrImageTooLarge
	}

	if v.VerifyContent {
		_, detected, err := image.DecodeConfig(bytes.NewReader(s.Image.Data))
		if err != nil || detected != format {
			return ValidatedSubmission{}, ErrUnsupportedImageType
		}
	}

	return ValidatedSubmission{
		Image: Image{
			Filename:    s.Image.Filename,
			ContentType: contentType,
			Data:        s.Image.Data,
		},
		Description:          s.Description,
		Location:             optional(s.Location),
		AnonymousDisplayName: optional(s.AnonymousDisplayName),
	}, nil
}

// IsValidationError reports whether err is one of the submission errors,
// i.e. a client mistake rather than a server failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrDescriptionTooLong) ||
		errors.Is(err, ErrUnsupportedImageType) ||
		errors.Is(err, ErrImageTooLarge)
}

// normalizeContentType drops parameters such as "; charset=binary".
func normalizeContentType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
