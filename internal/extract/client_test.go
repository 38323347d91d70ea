package extract

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractReturnsText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile(FileField)
		require.NoError(t, err)
		defer file.Close()
		content, _ := io.ReadAll(file)
		assert.Equal(t, "notes.txt", header.Filename)
		assert.Equal(t, "csrf", r.Header.Get("X-CSRFToken"))
		_, _ = w.Write([]byte(`{"text":"extracted: ` + string(content) + `"}`))
	}))
	defer server.Close()

	text, err := NewClient(server.Client(), server.URL, "csrf").Extract(context.Background(), "notes.txt", strings.NewReader("photosynthesis"))
	require.NoError(t, err)
	assert.Equal(t, "extracted: photosynthesis", text)
}

func TestExtractErrorShapes(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"error field", http.StatusOK, `{"error":"Unsupported file type"}`, func(t *testing.T, err error) {
			var extErr *ExtractionError
			require.True(t, errors.As(err, &extErr))
			assert.Equal(t, "Unsupported file type", extErr.Message)
		}},
		{"non 2xx", http.StatusBadGateway, `{"text":"ignored"}`, func(t *testing.T, err error) {
			var extErr *ExtractionError
			require.True(t, errors.As(err, &extErr))
			assert.Equal(t, http.StatusBadGateway, extErr.StatusCode)
		}},
		{"neither field", http.StatusOK, `{}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrNoText)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			_, err := NewClient(server.Client(), server.URL, "").Extract(context.Background(), "a.pdf", strings.NewReader("x"))
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestExtractRejectsOversizedFiles(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	big := bytes.NewReader(make([]byte, MaxFileSize+1))
	_, err := NewClient(server.Client(), server.URL, "").Extract(context.Background(), "big.pdf", big)
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.False(t, called, "oversized upload must not reach the server")
}
