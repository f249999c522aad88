package stubs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const booksYAML = `
name: get book
request:
  method: GET
  url: /books/1
response:
  status: 200
  body:
    title: Dune
---
name: get book
request:
  method: GET
  url: /books/2
response:
  status: 404
`

const eventsYAML = `
name: book added
input:
  messageFrom: books
  messageBody:
    id: 1
outputMessage:
  sentTo: books.added
  body:
    id: 1
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestConverter_Convert(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "books", "get.yml"), booksYAML)
	writeFile(t, filepath.Join(src, "events.yaml"), eventsYAML)
	writeFile(t, filepath.Join(src, "broken.yml"), "request: [")
	writeFile(t, filepath.Join(src, "README.md"), "not a contract")

	cv := &Converter{Generator: WireMock{}}
	report, err := cv.Convert(context.Background(), src, dst)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Files)
	assert.Len(t, report.Errors, 1)
	assert.Equal(t, []string{"book added"}, report.Skipped)
	assert.Equal(t, []string{
		filepath.Join(dst, "books", "get_book.json"),
		filepath.Join(dst, "books", "get_book_1.json"),
	}, report.Written)

	data, err := os.ReadFile(filepath.Join(dst, "books", "get_book_1.json"))
	require.NoError(t, err)
	var m WireMockMapping
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, 404, m.Response.Status)
	assert.Equal(t, "/books/2", m.Request.URL)
}

func TestConverter_Cancelled(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "books.yml"), booksYAML)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cv := &Converter{Generator: WireMock{}}
	report, err := cv.Convert(ctx, src, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Written)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "get_book", fileName("get book"))
	assert.Equal(t, "a_b_c.v1", fileName("a/b:c.v1"))
	assert.Equal(t, "contract", fileName(""))
}
