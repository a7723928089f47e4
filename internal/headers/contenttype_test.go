package headers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContentType(t *testing.T) {
	ct := ParseContentType("text/html; charset=ISO-8859-1")
	assert.Equal(t, "text/html", ct.MimeType())
	assert.Equal(t, "ISO-8859-1", ct.Encoding())
	assert.Empty(t, ct.Boundary())
	assert.False(t, ct.IsMultipart())

	ct = ParseContentType("multipart/form-data; boundary=X")
	assert.Equal(t, "multipart/form-data", ct.MimeType())
	assert.Equal(t, "X", ct.Boundary())
	assert.True(t, ct.IsMultipart())
	assert.Equal(t, "US-ASCII", ct.Encoding())

	ct = ParseContentType(`multipart/form-data; charset="utf-8"; boundary="----abc"`)
	assert.Equal(t, "utf-8", ct.Encoding())
	assert.Equal(t, "----abc", ct.Boundary())

	// Boundary is ignored outside multipart/form-data.
	ct = ParseContentType("text/plain; boundary=X")
	assert.Empty(t, ct.Boundary())

	ct = ParseContentType("")
	assert.Empty(t, ct.MimeType())
	assert.Equal(t, "UTF-8", ct.Encoding())
}

func TestContentTypeTryUTF8(t *testing.T) {
	ct := ParseContentType("text/plain").TryUTF8()
	assert.Equal(t, "text/plain; charset=UTF-8", ct.Header())
	assert.Equal(t, "UTF-8", ct.Encoding())

	ct = ParseContentType("text/plain; charset=ISO-8859-1").TryUTF8()
	assert.Equal(t, "text/plain; charset=ISO-8859-1", ct.Header())
}

func TestContentTypeEncode(t *testing.T) {
	b, err := ParseContentType("text/plain").Encode("plain ascii")
	require.NoError(t, err)
	assert.Equal(t, "plain ascii", string(b))

	_, err = ParseContentType("text/plain").Encode("naïve")
	assert.Error(t, err)

	b, err = ParseContentType("text/plain; charset=ISO-8859-1").Encode("naïve")
	require.NoError(t, err)
	assert.Equal(t, []byte{'n', 'a', 0xEF, 'v', 'e'}, b)

	s, err := ParseContentType("text/plain; charset=ISO-8859-1").Decode(b)
	require.NoError(t, err)
	assert.Equal(t, "naïve", s)

	_, err = ParseContentType("text/plain; charset=no-such-thing").Encode("x")
	assert.ErrorIs(t, err, ErrUnsupportedCharset)
}
