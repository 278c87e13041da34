package intake_test

import (
	"os"
	"path/filepath"
	"testing"

	"invoice-manager-backend/internal/services/intake"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

func writeTemp(t *testing.T, dir string, content []byte) string {
	t.Helper()
	f, err := os.CreateTemp(dir, "upload-*")
	require.NoError(t, err)
	_, err = f.Write(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}

func pdfUpload(t *testing.T, dir string) intake.Upload {
	t.Helper()
	path := writeTemp(t, dir, pdfBytes)
	return intake.Upload{
		FileName:     "invoice.pdf",
		TempPath:     path,
		Size:         int64(len(pdfBytes)),
		DeclaredType: "application/pdf",
	}
}

func TestValidateAcceptsPDF(t *testing.T) {
	dir := t.TempDir()
	v := intake.NewValidator(dir)

	result := v.Validate(pdfUpload(t, dir))
	assert.True(t, result.Valid, result.Message)
}

func TestValidateTransportErrorCodes(t *testing.T) {
	v := intake.NewValidator(t.TempDir())

	cases := []struct {
		code    intake.ErrorCode
		wantMsg string
	}{
		{intake.UploadErrServerSize, "server upload size limit"},
		{intake.UploadErrFormSize, "declared by the form"},
		{intake.UploadErrPartial, "partially transferred"},
		{intake.UploadErrNoFile, "no file was uploaded"},
		{intake.UploadErrNoTempDir, "temporary upload directory"},
		{intake.UploadErrCantWrite, "could not be written"},
		{intake.UploadErrExtension, "blocked by a server extension"},
	}
	for _, tc := range cases {
		result := v.Validate(intake.Upload{ErrorCode: tc.code})
		assert.False(t, result.Valid)
		assert.Contains(t, result.Message, tc.wantMsg)
	}
}

func TestValidateRejectsForgedTempPath(t *testing.T) {
	dir := t.TempDir()
	v := intake.NewValidator(dir)

	outside := writeTemp(t, t.TempDir(), pdfBytes)

	u := intake.Upload{FileName: "invoice.pdf", TempPath: outside, Size: int64(len(pdfBytes))}
	result := v.Validate(u)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Message, "not uploaded correctly")

	// a traversal out of the temp dir is just as forged
	u.TempPath = filepath.Join(dir, "..", filepath.Base(outside))
	result = v.Validate(u)
	assert.False(t, result.Valid)
}

func TestValidateSizeLimits(t *testing.T) {
	dir := t.TempDir()
	v := intake.NewValidator(dir)

	u := pdfUpload(t, dir)
	u.Size = 0
	result := v.Validate(u)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Message, "empty")

	u = pdfUpload(t, dir)
	u.Size = intake.MaxFileSize + 1
	result = v.Validate(u)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Message, "too large")

	// exactly at the ceiling is still fine
	u = pdfUpload(t, dir)
	u.Size = intake.MaxFileSize
	assert.True(t, v.Validate(u).Valid)
}

func TestValidateRejectsWrongSniffedType(t *testing.T) {
	dir := t.TempDir()
	v := intake.NewValidator(dir)

	// PNG bytes behind a .pdf name: the sniffed type wins
	path := writeTemp(t, dir, pngBytes)
	result := v.Validate(intake.Upload{
		FileName:     "fake.pdf",
		TempPath:     path,
		Size:         int64(len(pngBytes)),
		DeclaredType: "application/pdf",
	})
	assert.False(t, result.Valid)
	assert.Contains(t, result.Message, "image/png")
}

func TestValidateRejectsWrongExtension(t *testing.T) {
	dir := t.TempDir()
	v := intake.NewValidator(dir)

	// genuine PDF content but a non-pdf name fails the extension check
	u := pdfUpload(t, dir)
	u.FileName = "invoice.txt"
	result := v.Validate(u)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Message, ".pdf extension")

	// extension check is case-insensitive
	u = pdfUpload(t, dir)
	u.FileName = "INVOICE.PDF"
	assert.True(t, v.Validate(u).Valid)
}

type stubSniffer struct {
	ctype      string
	conclusive bool
}

func (s stubSniffer) Name() string { return "stub" }

func (s stubSniffer) Sniff(_, _ string) (string, bool) { return s.ctype, s.conclusive }

func TestValidateSnifferChainFirstConclusiveWins(t *testing.T) {
	dir := t.TempDir()

	v := intake.NewValidatorWithSniffers(dir, []intake.Sniffer{
		stubSniffer{conclusive: false},
		stubSniffer{ctype: "text/plain", conclusive: true},
		stubSniffer{ctype: "application/pdf", conclusive: true},
	})

	u := pdfUpload(t, dir)
	result := v.Validate(u)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Message, "text/plain")
}

func TestValidateFallsBackToExtensionWithoutSniffers(t *testing.T) {
	dir := t.TempDir()
	v := intake.NewValidatorWithSniffers(dir, nil)

	u := pdfUpload(t, dir)
	u.DeclaredType = ""
	assert.True(t, v.Validate(u).Valid)

	u.FileName = "invoice.doc"
	result := v.Validate(u)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Message, ".pdf extension")
}
