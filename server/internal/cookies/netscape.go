package cookies

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const netscapeHeader = "# Netscape HTTP Cookie File"

// Domain the music site session cookies are scoped to.
const YandexDomain = ".yandex.ru"

// ToNetscape converts a Cookie header value ("a=1; b=2") into the cookie-jar
// text format read by yt-dlp. Segments without '=' are skipped.
func ToNetscape(raw, domain string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	lines := []string{netscapeHeader}

	for _, segment := range strings.Split(raw, ";") {
		name, value, ok := strings.Cut(segment, "=")
		if !ok {
			continue
		}

		lines = append(lines, fmt.Sprintf(
			"%s\tTRUE\t/\tFALSE\t0\t%s\t%s",
			domain,
			strings.TrimSpace(name),
			strings.TrimSpace(value),
		))
	}

	return strings.Join(lines, "\n")
}

// Jar is a cookie file owned by a single request.
type Jar struct {
	path string
}

// WriteJar stores raw cookies in a uniquely named file under dir.
// The caller must Release the jar once the external tool is done with it.
// Blank input yields a nil jar and no file.
func WriteJar(dir, raw, domain string) (*Jar, error) {
	text := ToNetscape(raw, domain)
	if text == "" {
		return nil, nil
	}

	path := filepath.Join(dir, fmt.Sprintf("cookies-%s.txt", uuid.NewString()))

	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write cookie jar: %w", err)
	}

	return &Jar{path: path}, nil
}

func (j *Jar) Path() string { return j.path }

// Release removes the jar file. Releasing twice is fine.
func (j *Jar) Release() error {
	if j == nil {
		return nil
	}
	if err := os.Remove(j.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
