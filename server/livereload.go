package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// LastModifiedPath is polled by the live reload script.
const LastModifiedPath = "/api/last-modified"

var (
	bodyTagRe = regexp.MustCompile(`(?i)</body>`)
	htmlTagRe = regexp.MustCompile(`(?i)</html>`)
)

// liveReloadScript is injected into HTML responses
const liveReloadScript = `<script>
(() => {
  let seen = null;
  const poll = () => fetch('` + LastModifiedPath + `', {cache: 'no-store'})
    .then(r => r.json())
    .then(state => {
      if (seen !== null && state.seq !== seen) {
        location.reload();
        return;
      }
      seen = state.seq;
    })
    .catch(() => {})
    .finally(() => setTimeout(poll, 1000));
  // start after images load so a reload does not abort them
  if (document.readyState === 'complete') poll();
  else addEventListener('load', poll);
})();
</script>`

// LastModifier reports how often the output directory changed, and when.
type LastModifier interface {
	LastModified() (uint64, time.Time)
}

type lastModified struct {
	Seq      uint64 `json:"seq"`
	Modified string `json:"modified"`
}

// lastModifiedHandler serves the live reload polling endpoint
func lastModifiedHandler(src LastModifier) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seq, modified := src.LastModified()
		body := lastModified{Seq: seq}
		if !modified.IsZero() {
			body.Modified = modified.UTC().Format(time.RFC3339)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		json.NewEncoder(w).Encode(body)
	})
}

// injectLiveReload wraps a handler to inject the live reload script into HTML responses
func injectLiveReload(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lrw := &liveReloadResponseWriter{ResponseWriter: w}
		next.ServeHTTP(lrw, r)
		lrw.flush()
	})
}

// liveReloadResponseWriter buffers HTML responses to inject the script
type liveReloadResponseWriter struct {
	http.ResponseWriter
	buffer      bytes.Buffer
	statusCode  int
	wroteHeader bool
	isHTML      bool
	checked     bool
}

func (w *liveReloadResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	// wait for the first write to see the content type
}

func (w *liveReloadResponseWriter) Write(b []byte) (int, error) {
	if !w.checked {
		w.checked = true
		w.isHTML = strings.Contains(w.Header().Get("Content-Type"), "text/html")
	}
	if w.isHTML {
		return w.buffer.Write(b)
	}
	w.writeHeader()
	return w.ResponseWriter.Write(b)
}

func (w *liveReloadResponseWriter) writeHeader() {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	if w.statusCode != 0 {
		w.ResponseWriter.WriteHeader(w.statusCode)
	}
}

func (w *liveReloadResponseWriter) flush() {
	if !w.isHTML {
		// no body at all: pass the status through
		w.writeHeader()
		return
	}
	content := InjectScript(w.buffer.Bytes())
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.writeHeader()
	w.ResponseWriter.Write(content)
}

// InjectScript inserts the live reload script before </body>, else before
// </html>, else at the end.
func InjectScript(content []byte) []byte {
	idx := len(content)
	if loc := bodyTagRe.FindIndex(content); loc != nil {
		idx = loc[0]
	} else if loc := htmlTagRe.FindIndex(content); loc != nil {
		idx = loc[0]
	}
	out := make([]byte, 0, len(content)+len(liveReloadScript))
	out = append(out, content[:idx]...)
	out = append(out, liveReloadScript...)
	return append(out, content[idx:]...)
}
