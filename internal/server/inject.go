package server

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
)

const scriptTag = `<script src="/livereload.js"></script>`

// injectScript buffers full HTML responses and inserts the LiveReload
// script tag before </body>. Range requests and any status other than
// 200 pass through untouched.
func injectScript(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if r.Header.Get("Range") != "" ||
			!(path == "" || strings.HasSuffix(path, "/") || strings.HasSuffix(path, ".html")) {
			next.ServeHTTP(w, r)
			return
		}

		iw := &injectWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(iw, r)
		iw.finalize()
	})
}

type injectWriter struct {
	http.ResponseWriter
	status      int
	buf         bytes.Buffer
	passthrough bool
	wroteHeader bool
}

func (w *injectWriter) WriteHeader(code int) {
	w.status = code
	if code != http.StatusOK {
		w.passthrough = true
	}
	if w.passthrough && !w.wroteHeader {
		w.ResponseWriter.WriteHeader(code)
		w.wroteHeader = true
	}
}

func (w *injectWriter) Write(data []byte) (int, error) {
	if !w.passthrough && w.buf.Len() == 0 {
		ct := w.Header().Get("Content-Type")
		if ct != "" && !strings.Contains(ct, "text/html") {
			w.passthrough = true
		}
	}
	if w.passthrough {
		if !w.wroteHeader {
			w.ResponseWriter.WriteHeader(w.status)
			w.wroteHeader = true
		}
		return w.ResponseWriter.Write(data)
	}
	return w.buf.Write(data)
}

func (w *injectWriter) finalize() {
	if w.passthrough {
		return
	}
	body := w.buf.Bytes()
	if i := bytes.LastIndex(body, []byte("</body>")); i >= 0 {
		out := make([]byte, 0, len(body)+len(scriptTag))
		out = append(out, body[:i]...)
		out = append(out, scriptTag...)
		out = append(out, body[i:]...)
		body = out
	}
	if len(body) > 0 {
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	}
	w.ResponseWriter.WriteHeader(w.status)
	if len(body) > 0 {
		_, _ = w.ResponseWriter.Write(body)
	}
}
