package intake

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaxFileSize is the fixed ceiling for an uploaded invoice.
const MaxFileSize = 10 << 20 // 10 MiB

const allowedType = "application/pdf"

// ErrorCode mirrors what the upload transport reported before validation
// ever runs. UploadOK means the transfer itself succeeded.
type ErrorCode int

const (
	UploadOK ErrorCode = iota
	UploadErrServerSize
	UploadErrFormSize
	UploadErrPartial
	UploadErrNoFile
	UploadErrNoTempDir
	UploadErrCantWrite
	UploadErrExtension
)

// Upload is the raw metadata handed to the validator: nothing here has
// been trusted yet.
type Upload struct {
	FileName     string
	TempPath     string
	Size         int64
	DeclaredType string
	ErrorCode    ErrorCode
}

// Validation is the structured verdict. Callers branch on Valid; the
// validator never panics or returns an error.
type Validation struct {
	Valid   bool
	Message string
}

func accepted() Validation {
	return Validation{Valid: true}
}

func rejected(format string, args ...interface{}) Validation {
	return Validation{Valid: false, Message: fmt.Sprintf(format, args...)}
}

// Validator gates every byte before it reaches storage addressing.
type Validator struct {
	tempDir  string
	sniffers []Sniffer
}

// NewValidator builds a validator that only trusts temp files living under
// tempDir, with the default sniffer chain.
func NewValidator(tempDir string) *Validator {
	return NewValidatorWithSniffers(tempDir, defaultSniffers())
}

// NewValidatorWithSniffers overrides the sniffer chain, for tests.
func NewValidatorWithSniffers(tempDir string, sniffers []Sniffer) *Validator {
	abs, err := filepath.Abs(tempDir)
	if err != nil {
		abs = filepath.Clean(tempDir)
	}
	return &Validator{
		tempDir:  abs,
		sniffers: sniffers,
	}
}

// Validate runs the checks in order; the first failure short-circuits.
// Read-only: the temp upload is never touched.
func (v *Validator) Validate(u Upload) Validation {
	// 1. Transport must have reported a clean transfer
	if u.ErrorCode != UploadOK {
		return rejected("upload failed: %s", transportErrorMessage(u.ErrorCode))
	}

	// 2. The temp handle must be a real file under our intake directory,
	// not an injected path
	if !v.isGenuineUpload(u.TempPath) {
		return rejected("file was not uploaded correctly")
	}

	// 3. Size gate
	if u.Size <= 0 {
		return rejected("file is empty")
	}
	if u.Size > MaxFileSize {
		return rejected("file is too large, maximum size is 10MB")
	}

	// 4. Effective content type, first conclusive sniffer wins
	ctype, conclusive := v.sniff(u)
	if conclusive {
		if ctype != allowedType {
			return rejected("only PDF files are allowed, got: %s", ctype)
		}
	} else if !hasPDFExtension(u.FileName) {
		// no sniffing mechanism could decide, fall back to the extension
		return rejected("file must have a .pdf extension")
	}

	// 5. Extension must literally be .pdf regardless of the sniff result
	if !hasPDFExtension(u.FileName) {
		return rejected("file must have a .pdf extension")
	}

	return accepted()
}

func (v *Validator) sniff(u Upload) (string, bool) {
	for _, s := range v.sniffers {
		if ctype, ok := s.Sniff(u.TempPath, u.DeclaredType); ok {
			return ctype, true
		}
	}
	return "", false
}

func (v *Validator) isGenuineUpload(tempPath string) bool {
	if tempPath == "" {
		return false
	}
	abs, err := filepath.Abs(tempPath)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(v.tempDir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && info.Mode().IsRegular()
}

func hasPDFExtension(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

func transportErrorMessage(code ErrorCode) string {
	switch code {
	case UploadErrServerSize:
		return "the file exceeds the server upload size limit"
	case UploadErrFormSize:
		return "the file exceeds the size limit declared by the form"
	case UploadErrPartial:
		return "the file was only partially transferred"
	case UploadErrNoFile:
		return "no file was uploaded"
	case UploadErrNoTempDir:
		return "the temporary upload directory is missing"
	case UploadErrCantWrite:
		return "the file could not be written to disk"
	case UploadErrExtension:
		return "the upload was blocked by a server extension"
	default:
		return fmt.Sprintf("unknown upload error (code: %d)", code)
	}
}
