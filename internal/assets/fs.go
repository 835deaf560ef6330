package assets

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen — сколько байт смотрим, если тип не определить по расширению
const sniffLen = 3072

// FS отдаёт файлы из fs.FS по правилам статического хостинга:
// "/" и каталоги → index.html, "/about" → about.html или about/index.html,
// отсутствующий файл → 404 с телом 404.html (если он есть).
type FS struct {
	fsys     fs.FS
	notFound string
}

// NewFS — хранилище поверх fsys (embed.FS, os.DirFS, fstest.MapFS)
func NewFS(fsys fs.FS) *FS {
	return &FS{fsys: fsys, notFound: "404.html"}
}

// Fetch разрешает путь запроса в файл. Ошибки чтения (кроме «нет файла»)
// возвращаются вызывающему как есть.
func (s *FS) Fetch(r *http.Request) (*Response, error) {
	if err := r.Context().Err(); err != nil {
		return nil, err
	}

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		resp := textResponse(http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
		resp.Header.Set("Allow", "GET, HEAD")
		return resp, nil
	}

	name, err := s.resolve(r.URL.Path)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return s.notFoundResponse(r)
	}
	return s.open(r, name, http.StatusOK)
}

// resolve возвращает имя файла в fsys или "" если подходящего файла нет
func (s *FS) resolve(urlPath string) (string, error) {
	if strings.Contains(urlPath, "\x00") {
		return "", nil
	}
	clean := strings.TrimPrefix(path.Clean("/"+urlPath), "/")

	var candidates []string
	switch {
	case clean == "":
		candidates = []string{"index.html"}
	case strings.HasSuffix(urlPath, "/"):
		candidates = []string{clean + "/index.html"}
	default:
		candidates = []string{clean, clean + ".html", clean + "/index.html"}
	}

	for _, name := range candidates {
		if !fs.ValidPath(name) {
			continue
		}
		info, err := fs.Stat(s.fsys, name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return "", fmt.Errorf("stat %s: %w", name, err)
		}
		if info.Mode().IsRegular() {
			return name, nil
		}
	}
	return "", nil
}

func (s *FS) notFoundResponse(r *http.Request) (*Response, error) {
	if _, err := fs.Stat(s.fsys, s.notFound); err == nil {
		return s.open(r, s.notFound, http.StatusNotFound)
	}
	return textResponse(http.StatusNotFound, "404 page not found"), nil
}

func (s *FS) open(r *http.Request, name string, status int) (*Response, error) {
	f, err := s.fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", name, err)
	}

	h := make(http.Header)
	h.Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	if mod := info.ModTime(); !mod.IsZero() {
		h.Set("Last-Modified", mod.UTC().Format(http.TimeFormat))
	}

	var body io.ReadCloser = f
	ctype := mime.TypeByExtension(path.Ext(name))
	if ctype == "" {
		// Смотрим первые байты и склеиваем их обратно с остатком файла — без буферизации всего файла
		head := make([]byte, sniffLen)
		n, err := io.ReadFull(f, head)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			_ = f.Close()
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		head = head[:n]
		ctype = mimetype.Detect(head).String()
		body = &multiReadCloser{Reader: io.MultiReader(bytes.NewReader(head), f), closer: f}
	}
	h.Set("Content-Type", ctype)

	if r.Method == http.MethodHead {
		_ = body.Close()
		body = http.NoBody
	}

	return &Response{Status: status, Header: h, Body: body}, nil
}

type multiReadCloser struct {
	io.Reader
	closer io.Closer
}

func (m *multiReadCloser) Close() error {
	return m.closer.Close()
}
