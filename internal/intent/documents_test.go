package intent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDocuments_ConfluenceLinks(t *testing.T) {
	frags := ExtractDocuments("see https://acme.atlassian.net/wiki/spaces/ENG/pages/123/Design and https://confluence.acme.com/display/OPS/Runbook")
	require.Len(t, frags, 2)
	assert.Equal(t, DocConfluenceLink, frags[0].Kind)
	assert.Equal(t, DocConfluenceLink, frags[1].Kind)
	assert.Contains(t, frags[0].Source, "wiki")
}

func TestExtractDocuments_LinksWinOverText(t *testing.T) {
	long := "https://wiki.acme.com/page " + strings.Repeat("requirement text ", 30)
	frags := ExtractDocuments(long)
	require.Len(t, frags, 1)
	assert.Equal(t, DocConfluenceLink, frags[0].Kind)
}

func TestExtractDocuments_ClassifiesPastedText(t *testing.T) {
	pad := strings.Repeat("lorem ipsum dolor sit amet ", 10)

	frags := ExtractDocuments("Product requirement overview. " + pad)
	require.Len(t, frags, 1)
	assert.Equal(t, DocPRD, frags[0].Kind)

	frags = ExtractDocuments("Notes from the weekly discussion. " + pad)
	require.Len(t, frags, 1)
	assert.Equal(t, DocMeetingNotes, frags[0].Kind)

	frags = ExtractDocuments("Some other long body of content. " + pad)
	require.Len(t, frags, 1)
	assert.Equal(t, DocAttachment, frags[0].Kind)
}

func TestExtractDocuments_ShortTextIgnored(t *testing.T) {
	assert.Nil(t, ExtractDocuments("just a short message"))
	assert.Nil(t, ExtractDocuments("https://example.com/unrelated-link"))
}

func TestCombineDocuments(t *testing.T) {
	blob := CombineDocuments([]DocumentFragment{
		{Kind: DocPRD, Source: "pasted text", Content: "the prd body"},
		{Kind: DocConfluenceLink, Source: "https://wiki/x", Content: "https://wiki/x"},
	}, "greenfield project")

	assert.True(t, strings.HasPrefix(blob, "User Context: greenfield project\n\n"))
	assert.Contains(t, blob, "[PRD - pasted text]\nthe prd body")
	assert.Contains(t, blob, "\n\n---\n\n[CONFLUENCE_LINK - https://wiki/x]")
}

func TestGreetingAndTermination(t *testing.T) {
	assert.True(t, IsGreeting("hi"))
	assert.True(t, IsGreeting("Hello"))
	assert.True(t, IsGreeting("ok then")) // two tokens, trivially short
	assert.False(t, IsGreeting("please create an epic for me"))
	assert.False(t, IsGreeting(""))

	assert.True(t, IsGreetingPhrase("hey"))
	assert.False(t, IsGreetingPhrase("1"))

	assert.True(t, IsTermination("thanks, bye"))
	assert.True(t, IsTermination("I am done"))
	assert.False(t, IsTermination("create epic"))
}

func TestParseFeatureList(t *testing.T) {
	text := "1. User registration with email verification\n" +
		"2. short\n" +
		"- Social login via Google and GitHub\n" +
		"• Password reset over email\n" +
		"\n" +
		"Session management and refresh tokens"

	features := ParseFeatureList(text)
	assert.Equal(t, []string{
		"User registration with email verification",
		"Social login via Google and GitHub",
		"Password reset over email",
		"Session management and refresh tokens",
	}, features)
}

func TestParseFeatureList_Cap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 12; i++ {
		b.WriteString("a feature long enough to keep\n")
	}
	assert.Len(t, ParseFeatureList(b.String()), MaxGeneratedFeatures)
}
