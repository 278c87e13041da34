package intake

import (
	"net/http"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Sniffer determines the effective content type of a stored upload. A
// sniffer that cannot decide reports conclusive=false and the next one in
// the chain is consulted.
type Sniffer interface {
	Name() string
	Sniff(path, declaredType string) (contentType string, conclusive bool)
}

// defaultSniffers is the priority order: magic-byte detection via the
// mimetype library, then the stdlib detector, then whatever the client
// declared.
func defaultSniffers() []Sniffer {
	return []Sniffer{
		libSniffer{},
		stdSniffer{},
		declaredSniffer{},
	}
}

type libSniffer struct{}

func (libSniffer) Name() string { return "mimetype" }

func (libSniffer) Sniff(path, _ string) (string, bool) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", false
	}
	return stripParams(mtype.String()), true
}

type stdSniffer struct{}

func (stdSniffer) Name() string { return "http.DetectContentType" }

func (stdSniffer) Sniff(path, _ string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if n == 0 && err != nil {
		return "", false
	}

	ctype := stripParams(http.DetectContentType(buf[:n]))
	if ctype == "application/octet-stream" {
		// the stdlib fallback value, not a real detection
		return "", false
	}
	return ctype, true
}

type declaredSniffer struct{}

func (declaredSniffer) Name() string { return "declared" }

func (declaredSniffer) Sniff(_, declaredType string) (string, bool) {
	if declaredType == "" {
		return "", false
	}
	return stripParams(declaredType), true
}

func stripParams(ctype string) string {
	if i := strings.Index(ctype, ";"); i >= 0 {
		ctype = ctype[:i]
	}
	return strings.TrimSpace(ctype)
}
