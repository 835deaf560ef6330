package edge

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"sync"

	xhtml "golang.org/x/net/html"
)

// rewriteScripts копирует src в dst за один проход, проставляя nonce во все
// открывающие теги <script>. Всё остальное пишется байт в байт (Raw токенизатора),
// документ целиком в памяти не держится. Возвращает число помеченных тегов.
func rewriteScripts(ctx context.Context, dst io.Writer, src io.Reader, nonce string) (int, error) {
	z := xhtml.NewTokenizer(src)
	bw := bufio.NewWriter(dst)
	attr := []byte(` nonce="` + html.EscapeString(nonce) + `"`)
	stamped := 0

	for {
		if err := ctx.Err(); err != nil {
			return stamped, err
		}

		tt := z.Next()
		switch tt {
		case xhtml.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return stamped, fmt.Errorf("разбор html: %w", err)
			}
			// Недописанный тег в конце документа токенизатор не отдаёт — сохраняем байты как есть
			if _, err := bw.Write(z.Raw()); err != nil {
				return stamped, err
			}
			return stamped, bw.Flush()

		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			// TagName/TagAttr приводят имена к нижнему регистру прямо в буфере — копируем Raw заранее
			raw := append([]byte(nil), z.Raw()...)
			name, hasAttr := z.TagName()
			if string(name) != "script" {
				if _, err := bw.Write(raw); err != nil {
					return stamped, err
				}
				continue
			}
			if _, err := bw.Write(stampScript(z, raw, hasAttr, tt == xhtml.SelfClosingTagToken, nonce, attr)); err != nil {
				return stamped, err
			}
			stamped++

		default:
			if _, err := bw.Write(z.Raw()); err != nil {
				return stamped, err
			}
		}
	}
}

// stampScript возвращает тег <script> с nonce. Если nonce ещё нет, атрибут
// вставляется перед '>' и исходная разметка сохраняется; иначе тег собирается заново.
func stampScript(z *xhtml.Tokenizer, raw []byte, hasAttr, selfClosing bool, nonce string, attr []byte) []byte {
	type kv struct{ key, val string }
	var attrs []kv
	existing := false
	for hasAttr {
		var k, v []byte
		k, v, hasAttr = z.TagAttr()
		if string(k) == "nonce" {
			existing = true
			continue
		}
		attrs = append(attrs, kv{string(k), string(v)})
	}

	if !existing && !selfClosing && bytes.HasSuffix(raw, []byte(">")) {
		out := make([]byte, 0, len(raw)+len(attr))
		out = append(out, raw[:len(raw)-1]...)
		out = append(out, attr...)
		return append(out, '>')
	}

	var b bytes.Buffer
	b.WriteString("<script")
	for _, a := range attrs {
		b.WriteByte(' ')
		b.WriteString(a.key)
		if a.val != "" {
			b.WriteString(`="`)
			b.WriteString(html.EscapeString(a.val))
			b.WriteByte('"')
		}
	}
	b.Write(attr)
	if selfClosing {
		b.WriteString("/>")
	} else {
		b.WriteByte('>')
	}
	return b.Bytes()
}

// RewriteDone получает итог потоковой перезаписи: число тегов и ошибку (nil — успех)
type RewriteDone func(stamped int, err error)

// NewScriptNonceReader отдаёт поток src с nonce во всех <script>.
// Перезапись идёт в горутине через io.Pipe; Close читателя или отмена ctx
// останавливают её и закрывают src. Ошибка разбора приходит из Read.
func NewScriptNonceReader(ctx context.Context, src io.ReadCloser, nonce string, done RewriteDone) io.ReadCloser {
	pr, pw := io.Pipe()
	r := &nonceReader{pr: pr, src: src}

	go func() {
		defer r.closeSrc()
		n, err := rewriteScripts(ctx, pw, src, nonce)
		if done != nil {
			done(n, err)
		}
		_ = pw.CloseWithError(err)
	}()

	return r
}

type nonceReader struct {
	pr   *io.PipeReader
	src  io.Closer
	once sync.Once
}

func (r *nonceReader) Read(p []byte) (int, error) {
	return r.pr.Read(p)
}

// Close рвёт pipe (пишущая горутина получит io.ErrClosedPipe) и закрывает src,
// чтобы разблокировать чтение из origin
func (r *nonceReader) Close() error {
	_ = r.pr.Close()
	r.closeSrc()
	return nil
}

func (r *nonceReader) closeSrc() {
	r.once.Do(func() { _ = r.src.Close() })
}
