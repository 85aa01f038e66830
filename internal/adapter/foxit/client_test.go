package foxit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Strob0t/PropExtract/internal/config"
	"github.com/Strob0t/PropExtract/internal/port/docapi"
	"github.com/Strob0t/PropExtract/internal/resilience"
)

func testClient(url string) *Client {
	return NewClient(config.DocAPI{
		URL:          url,
		APIKey:       "test-key",
		Timeout:      5 * time.Second,
		PollInterval: time.Millisecond,
		PollAttempts: 3,
		Watermark:    "ReportWeave Premium",
	})
}

func TestNotConfigured(t *testing.T) {
	c := NewClient(config.DocAPI{URL: "http://unused"})
	_, err := c.HTMLToPDF(context.Background(), "<p>x</p>", docapi.DefaultPageOptions)
	if !errors.Is(err, docapi.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := c.Merge(context.Background(), []string{"a"}, "m.pdf"); !errors.Is(err, docapi.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured from Merge, got %v", err)
	}
}

func TestHTMLToPDFDirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/conversion/html-to-pdf" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req htmlToPDFRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Options.Format != "A4" || !strings.Contains(req.HTML, "Oak Street") {
			t.Errorf("unexpected request %+v", req)
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-direct"))
	}))
	defer srv.Close()

	pdf, err := testClient(srv.URL).HTMLToPDF(context.Background(), "<h1>123 Oak Street</h1>", docapi.DefaultPageOptions)
	if err != nil {
		t.Fatal(err)
	}
	if string(pdf) != "%PDF-direct" {
		t.Fatalf("unexpected pdf %q", pdf)
	}
}

func TestHTMLToPDFPollsJob(t *testing.T) {
	var polls atomic.Int32
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/conversion/html-to-pdf", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"job_id":"job-7"}`))
	})
	mux.HandleFunc("/jobs/job-7/status", func(w http.ResponseWriter, _ *http.Request) {
		if polls.Add(1) < 2 {
			_, _ = w.Write([]byte(`{"status":"processing"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"completed","download_url":"` + srv.URL + `/files/job-7.pdf"}`))
	})
	mux.HandleFunc("/files/job-7.pdf", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("download must not carry credentials")
		}
		_, _ = w.Write([]byte("%PDF-polled"))
	})

	pdf, err := testClient(srv.URL).HTMLToPDF(context.Background(), "<p/>", docapi.DefaultPageOptions)
	if err != nil {
		t.Fatal(err)
	}
	if string(pdf) != "%PDF-polled" {
		t.Fatalf("unexpected pdf %q", pdf)
	}
	if polls.Load() != 2 {
		t.Fatalf("expected 2 polls, got %d", polls.Load())
	}
}

func TestPollJobFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"failed","error":"bad html"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).pollJob(context.Background(), "j")
	if !errors.Is(err, ErrJobFailed) {
		t.Fatalf("expected ErrJobFailed, got %v", err)
	}
}

func TestPollJobTimeout(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		polls.Add(1)
		_, _ = w.Write([]byte(`{"status":"queued"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).pollJob(context.Background(), "j")
	if !errors.Is(err, ErrJobTimeout) {
		t.Fatalf("expected ErrJobTimeout, got %v", err)
	}
	if polls.Load() != 3 {
		t.Fatalf("expected 3 polls, got %d", polls.Load())
	}
}

func TestPostProcessingUsesMultipart(t *testing.T) {
	for _, op := range []string{"watermark", "compress", "secure"} {
		t.Run(op, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/pdf-services/"+op {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if err := r.ParseMultipartForm(1 << 20); err != nil {
					t.Errorf("parse multipart: %v", err)
					return
				}
				f, _, err := r.FormFile("file")
				if err != nil {
					t.Errorf("form file: %v", err)
					return
				}
				data, _ := io.ReadAll(f)
				if string(data) != "%PDF-in" {
					t.Errorf("unexpected upload %q", data)
				}
				_, _ = w.Write([]byte("%PDF-" + op))
			}))
			defer srv.Close()

			c := testClient(srv.URL)
			var out []byte
			var err error
			switch op {
			case "watermark":
				out, err = c.Watermark(context.Background(), []byte("%PDF-in"), "")
			case "compress":
				out, err = c.Compress(context.Background(), []byte("%PDF-in"))
			case "secure":
				out, err = c.Secure(context.Background(), []byte("%PDF-in"))
			}
			if err != nil {
				t.Fatal(err)
			}
			if string(out) != "%PDF-"+op {
				t.Fatalf("unexpected output %q", out)
			}
		})
	}
}

func TestWatermarkDefaultsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(1 << 20)
		var opts map[string]any
		_ = json.Unmarshal([]byte(r.FormValue("watermark_options")), &opts)
		if opts["text"] != "ReportWeave Premium" {
			t.Errorf("expected configured watermark, got %v", opts["text"])
		}
		_, _ = w.Write([]byte("%PDF"))
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).Watermark(context.Background(), []byte("x"), ""); err != nil {
		t.Fatal(err)
	}
}

func TestMergeAndSplit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/merge", func(w http.ResponseWriter, r *http.Request) {
		var req mergeRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Files) != 2 || req.OutputFilename != "merged-pdfs-t1.pdf" {
			t.Errorf("unexpected merge request %+v", req)
		}
		_, _ = w.Write([]byte(`{"download_url":"https://cdn/merged.pdf"}`))
	})
	mux.HandleFunc("/split", func(w http.ResponseWriter, r *http.Request) {
		var req splitRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.SplitType != "pages" || req.PagesPerFile != 2 || req.OutputPrefix != "split-t1" {
			t.Errorf("unexpected split request %+v", req)
		}
		_, _ = w.Write([]byte(`{"split_files":["https://cdn/p1.pdf","https://cdn/p2.pdf"]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	c := testClient(srv.URL)

	url, err := c.Merge(context.Background(), []string{"a.pdf", "b.pdf"}, "merged-pdfs-t1.pdf")
	if err != nil || url != "https://cdn/merged.pdf" {
		t.Fatalf("Merge: url=%q err=%v", url, err)
	}

	parts, err := c.Split(context.Background(), "a.pdf", docapi.SplitOptions{Type: "pages", PagesPerFile: 2}, "split-t1")
	if err != nil || len(parts) != 2 {
		t.Fatalf("Split: parts=%v err=%v", parts, err)
	}
}

func TestSplitEmptyIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"split_files":[]}`))
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).Split(context.Background(), "a.pdf", docapi.SplitOptions{}, "p"); err == nil {
		t.Fatal("expected error for an empty split result")
	}
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.SetBreaker(resilience.NewBreaker("foxit", 2, time.Minute))

	for i := 0; i < 2; i++ {
		if _, err := c.Compress(context.Background(), []byte("x")); err == nil {
			t.Fatal("expected 502 error")
		}
	}
	_, err := c.Compress(context.Background(), []byte("x"))
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("open circuit must not reach the server, got %d calls", calls.Load())
	}
}

func TestClientErrorsDoNotOpenBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad file", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	b := resilience.NewBreaker("foxit", 1, time.Minute)
	c.SetBreaker(b)

	for i := 0; i < 3; i++ {
		_, err := c.Compress(context.Background(), []byte("x"))
		if err == nil || !strings.Contains(err.Error(), "422") {
			t.Fatalf("expected 422 error, got %v", err)
		}
	}
	if b.State() != resilience.StateClosed {
		t.Fatalf("expected closed breaker, got %s", b.State())
	}
}

func TestKeySourceOverridesConfiguredKey(t *testing.T) {
	var auth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	c := NewClient(config.DocAPI{URL: srv.URL, Timeout: time.Second})
	rotated := "rotated-key"
	c.SetKeySource(func() string { return rotated })

	if _, err := c.HTMLToPDF(context.Background(), "<p>x</p>", docapi.DefaultPageOptions); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := auth.Load(); got != "Bearer rotated-key" {
		t.Errorf("unexpected authorization %v", got)
	}

	rotated = ""
	if _, err := c.HTMLToPDF(context.Background(), "<p>x</p>", docapi.DefaultPageOptions); !errors.Is(err, docapi.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured with no key anywhere, got %v", err)
	}
}
