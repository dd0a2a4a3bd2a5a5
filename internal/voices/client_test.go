package voices

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const listingBody = `{"voices":[{"name":"a","type":"audio","category":"other","path":"/v/a"}]}`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

// TestClientFetchVoices tests a successful listing.
func TestClientFetchVoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET, got %s", r.Method)
		}
		if r.URL.Path != Endpoint {
			t.Errorf("Expected path %s, got %s", Endpoint, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(listingBody))
	})

	got, err := c.FetchVoices(context.Background())
	if err != nil {
		t.Fatalf("FetchVoices failed: %v", err)
	}
	if !reflect.DeepEqual(got, []Voice{voiceA}) {
		t.Errorf("Unexpected voices: %#v", got)
	}
}

// TestClientMissingVoices tests bodies without a usable voices field.
func TestClientMissingVoices(t *testing.T) {
	for _, body := range []string{`{}`, `{"voices":null}`, `{"other":1}`} {
		t.Run(body, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			})

			got, err := c.FetchVoices(context.Background())
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if got == nil || len(got) != 0 {
				t.Errorf("Expected empty voices, got %#v", got)
			}
		})
	}
}

// TestClientUnvalidatedFields tests that unknown types and categories pass through.
func TestClientUnvalidatedFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"voices":[{"name":"x","type":"hologram","category":"robot","path":"p"}]}`))
	})

	got, err := c.FetchVoices(context.Background())
	if err != nil {
		t.Fatalf("FetchVoices failed: %v", err)
	}
	if len(got) != 1 || got[0].Type != "hologram" || got[0].Category != "robot" {
		t.Errorf("Expected values to pass through, got %#v", got)
	}
}

// TestClientStatusFailure tests that non-success statuses become FetchErrors.
func TestClientStatusFailure(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{http.StatusInternalServerError, "Failed to fetch voices: Internal Server Error"},
		{http.StatusNotFound, "Failed to fetch voices: Not Found"},
		{http.StatusBadGateway, "Failed to fetch voices: Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tt.code)
			})

			_, err := c.FetchVoices(context.Background())
			var ferr *FetchError
			if !errors.As(err, &ferr) {
				t.Fatalf("Expected FetchError, got %v", err)
			}
			if ferr.StatusCode != tt.code {
				t.Errorf("Expected status %d, got %d", tt.code, ferr.StatusCode)
			}
			if err.Error() != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, err.Error())
			}
		})
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// TestClientTransportFailure tests that transport errors keep their own message.
func TestClientTransportFailure(t *testing.T) {
	hc := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("network down")
	})}
	c, err := NewClient("http://voices.invalid", WithHTTPClient(hc))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = c.FetchVoices(context.Background())
	if err == nil {
		t.Fatal("Expected an error")
	}
	if err.Error() != "network down" {
		t.Errorf("Expected %q, got %q", "network down", err.Error())
	}
}

// TestClientMalformedBody tests that decoding errors are reported.
func TestClientMalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"voices": [`))
	})

	if _, err := c.FetchVoices(context.Background()); err == nil {
		t.Error("Expected a decoding error")
	}
}

// TestClientInvalidListingBodies tests that bodies which are not exactly one
// listing object fail.
func TestClientInvalidListingBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"trailing junk", `{"voices":[{"name":"a"}]} <html>oops`, nil},
		{"second object", `{"voices":[]}{"voices":[{"name":"x"}]}`, ErrTrailingData},
		{"null", `null`, ErrNullBody},
		{"array", `[]`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			vs, err := c.FetchVoices(context.Background())
			if err == nil {
				t.Fatalf("Expected an error, got voices %#v", vs)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			if vs != nil {
				t.Errorf("Expected no voices, got %#v", vs)
			}
		})
	}
}

// TestClientTrailingWhitespace tests that whitespace after the listing is accepted.
func TestClientTrailingWhitespace(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{\"voices\":[{\"name\":\"a\"}]}\n\n"))
	})

	vs, err := c.FetchVoices(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(vs) != 1 || vs[0].Name != "a" {
		t.Errorf("Unexpected voices: %#v", vs)
	}
}

// TestClientCompressedBody tests gzip and zstd encoded responses.
func TestClientCompressedBody(t *testing.T) {
	encoders := map[string]func(*testing.T) []byte{
		"gzip": func(t *testing.T) []byte {
			var buf bytes.Buffer
			zw := gzip.NewWriter(&buf)
			_, _ = zw.Write([]byte(listingBody))
			if err := zw.Close(); err != nil {
				t.Fatal(err)
			}
			return buf.Bytes()
		},
		"zstd": func(t *testing.T) []byte {
			enc, err := zstd.NewWriter(nil)
			if err != nil {
				t.Fatal(err)
			}
			defer enc.Close() //nolint:errcheck
			return enc.EncodeAll([]byte(listingBody), nil)
		},
	}

	for encoding, encode := range encoders {
		t.Run(encoding, func(t *testing.T) {
			payload := encode(t)
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if !strings.Contains(r.Header.Get("Accept-Encoding"), encoding) {
					t.Errorf("Expected Accept-Encoding to offer %s, got %q", encoding, r.Header.Get("Accept-Encoding"))
				}
				w.Header().Set("Content-Encoding", encoding)
				_, _ = w.Write(payload)
			})

			got, err := c.FetchVoices(context.Background())
			if err != nil {
				t.Fatalf("FetchVoices failed: %v", err)
			}
			if !reflect.DeepEqual(got, []Voice{voiceA}) {
				t.Errorf("Unexpected voices: %#v", got)
			}
		})
	}
}

// TestClientUnsupportedEncoding tests that unknown encodings fail.
func TestClientUnsupportedEncoding(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Encoding", "br")
		_, _ = w.Write([]byte("garbage"))
	})

	if _, err := c.FetchVoices(context.Background()); err == nil {
		t.Error("Expected an error for an unsupported encoding")
	}
}

// TestClientHeaders tests the request headers.
func TestClientHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithUserAgent("voices-test"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.FetchVoices(WithRequestID(context.Background(), "req-1")); err != nil {
		t.Fatal(err)
	}

	if got.Get("User-Agent") != "voices-test" {
		t.Errorf("Unexpected User-Agent %q", got.Get("User-Agent"))
	}
	if got.Get("X-Request-Id") != "req-1" {
		t.Errorf("Unexpected X-Request-Id %q", got.Get("X-Request-Id"))
	}
	if got.Get("Accept") != "application/json" {
		t.Errorf("Unexpected Accept %q", got.Get("Accept"))
	}
}

// TestNewClient tests base URL handling.
func TestNewClient(t *testing.T) {
	tests := []struct {
		base    string
		want    string
		wantErr bool
	}{
		{"http://localhost:8998", "http://localhost:8998/api/voices", false},
		{"http://localhost:8998/", "http://localhost:8998/api/voices", false},
		{"https://example.com/moshi/?q=1#x", "https://example.com/moshi/api/voices", false},
		{"ftp://example.com", "", true},
		{"localhost:8998", "", true},
		{"http://", "", true},
		{"::", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			c, err := NewClient(tt.base)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidBaseURL) {
					t.Errorf("Expected ErrInvalidBaseURL, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if c.Endpoint() != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, c.Endpoint())
			}
		})
	}
}

// TestClientWithLoader tests the client behind a loader end to end.
func TestClientWithLoader(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(listingBody))
	})

	l := NewLoader(c, WithLogger(quietLogger()))
	l.Activate()
	l.Wait()

	s := l.State()
	if !reflect.DeepEqual(s.Voices, []Voice{voiceA}) || s.Error != "" || s.Loading {
		t.Errorf("Unexpected state: %+v", s)
	}
}
