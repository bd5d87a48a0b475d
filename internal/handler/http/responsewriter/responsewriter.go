// Package responsewriter lets middleware read back the status and body size
// a handler produced. The logging, metrics and tracing middleware share one
// Recorder per request.
package responsewriter

import "net/http"

// Recorder is an http.ResponseWriter that remembers what went out.
type Recorder struct {
	http.ResponseWriter
	status  int
	size    int
	flushed bool
}

// Wrap returns a Recorder for w, reusing w when it already is one.
func Wrap(w http.ResponseWriter) *Recorder {
	if rec, ok := w.(*Recorder); ok {
		return rec
	}
	return &Recorder{ResponseWriter: w, status: http.StatusOK}
}

// WriteHeader forwards the first status only; later calls are dropped as
// net/http itself would.
func (r *Recorder) WriteHeader(status int) {
	if r.flushed {
		return
	}
	r.status, r.flushed = status, true
	r.ResponseWriter.WriteHeader(status)
}

func (r *Recorder) Write(b []byte) (int, error) {
	if !r.flushed {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

// StatusCode is the status sent, 200 when the handler never wrote.
func (r *Recorder) StatusCode() int { return r.status }

// BytesWritten is the body size sent so far.
func (r *Recorder) BytesWritten() int { return r.size }

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *Recorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }
