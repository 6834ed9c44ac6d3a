package crawler

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	require.NoError(t, err)
	return u
}

func TestExtractHTML_TextAndTitle(t *testing.T) {
	body := []byte(`<html><head><title> My  Page </title><script>var x = 1;</script></head>
	<body><nav><a href="/a">A</a></nav><h2>Intro</h2><p>First sentence.</p><p>Second one!</p>
	<script>alert("no")</script><noscript>enable js</noscript><ul><li>One</li><li>Two</li></ul></body></html>`)

	out, err := extractHTML(body, mustURL(t, "https://example.com/page"))
	require.NoError(t, err)

	assert.Equal(t, "My Page", out.title)
	assert.Equal(t, "A Intro First sentence. Second one! One Two", out.text)
	assert.NotContains(t, out.text, "alert")
	assert.NotContains(t, out.text, "enable js")
}

func TestExtractHTML_TitleFallbacks(t *testing.T) {
	out, err := extractHTML([]byte(`<body><h1>Heading</h1><p>x.</p></body>`), mustURL(t, "https://example.com/"))
	require.NoError(t, err)
	assert.Equal(t, "Heading", out.title)

	out, err = extractHTML([]byte(`<body><p>x.</p></body>`), mustURL(t, "https://example.com/y"))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/y", out.title)
}

func TestExtractLinks(t *testing.T) {
	body := []byte(`<body>
		<a href="/a">rel</a>
		<a href="b">relative</a>
		<a href="/a#x">dup with fragment</a>
		<a href="https://Other.COM/c">other host</a>
		<a href="javascript:void(0)">js</a>
		<a href="/img.PNG">image</a>
		<a href="/d" rel="nofollow">nofollow</a>
		<a href="#top">anchor</a>
		<a>no href</a>
	</body>`)

	out, err := extractHTML(body, mustURL(t, "https://example.com/dir/page"))
	require.NoError(t, err)

	var got []string
	for _, l := range out.links {
		got = append(got, l.String())
	}
	assert.Equal(t, []string{
		"https://example.com/a",
		"https://example.com/dir/b",
		"https://other.com/c",
	}, got)
}
