package content

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spam_filter/core/service/lexicon"
)

var (
	lexOnce sync.Once
	testLex *lexicon.Lexicon
	lexErr  error
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	lexOnce.Do(func() {
		testLex, lexErr = lexicon.Load(lexicon.Options{})
	})
	require.NoError(t, lexErr)
	return NewParser(testLex)
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "links become markers",
			body: `<!DOCTYPE html><html lang="en"><p>test 123</p><a href="http://example.com">test link</a></html>`,
			want: "test 123 html_external_spec test link",
		},
		{
			name: "hidden elements are skipped",
			body: `<html><head><title>Title</title><style>p {color: red;}</style></head>` +
				`<body><script>alert(1)</script><p>visible</p><img src="x.png"></body></html>`,
			want: "visible html_external_spec",
		},
		{
			name: "stray css is dropped",
			body: `<div>color: red; font-size: 12px;</div><div>hello</div>`,
			want: "hello",
		},
		{
			name: "any css property is dropped",
			body: `<div>foo-bar: baz; -webkit-box-shadow: none;</div><div>grid-template-areas: "a b";</div><p>hi</p>`,
			want: "hi",
		},
		{
			name: "prose with a colon is kept",
			body: `<p>Note: the meeting moved to Friday</p>`,
			want: "Note: the meeting moved to Friday",
		},
		{
			name: "plain text passes through",
			body: "Первое предложение",
			want: "Первое предложение",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripHTML(tt.body))
		})
	}
}

func TestReplaceSpecialContent(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "entities and whitespace",
			body: "телефон: 89001112233. email: test@example.com. супер предложение: 88 штук за 123 ₽ или 2$.\n" +
				"        экономия составит 50%.      немного отступа после предложения.  {% [jinja_2_content] %}\n        ",
			want: "phone_spec email_spec супер предложение number_spec штук за number_spec " +
				"ruble_spec или dollar_spec экономия составит number_spec percent_spec немного отступа после предложения",
		},
		{
			name: "short form",
			body: "телефон: 89001112233. email: test@example.com. 88 штук за 123 ₽ или 2$. 50%.",
			want: "phone_spec email_spec number_spec штук за number_spec ruble_spec или dollar_spec " +
				"number_spec percent_spec",
		},
		{
			name: "label word without entity stays",
			body: "our email is down, call the phone desk",
			want: "our email is down call the phone desk",
		},
		{
			name: "url",
			body: "visit https://www.example.com/path?a=1 now",
			want: "visit url_spec now",
		},
		{
			name: "html entities and quotes",
			body: `say&nbsp;"hi", «bye»`,
			want: "say hi bye",
		},
		{
			name: "overlong tokens are removed",
			body: "short " + strings.Repeat("x", 300) + " tail",
			want: "short  tail",
		},
		{
			name: "blank",
			body: " \n\t ",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReplaceSpecialContent(tt.body))
		})
	}
}

func TestEmojis(t *testing.T) {
	body := "Первое предложение! 🤐 Второе предложение! 😞 Третье предложение. Какой хороший день 😀"
	assert.Equal(t, []string{"🤐", "😞", "😀"}, Emojis(body))
	assert.Nil(t, Emojis("no emoji here"))
}

func TestSeparateEmoji(t *testing.T) {
	assert.Equal(t, "привет день 😀 🤐", SeparateEmoji("привет😀 день 🤐"))
}

func TestUppercaseWords(t *testing.T) {
	body := "авыфавфыа СЛОВА В ВЕРХНЕМ РЕГИСТРЕ. АКЦИя ПРЕДЛОЖЕНИЯ скидки"
	assert.Equal(t, []string{"СЛОВА", "ВЕРХНЕМ", "РЕГИСТРЕ", "АКЦИ", "ПРЕДЛОЖЕНИЯ"}, UppercaseWords(body))
}

func TestCountHTMLColors(t *testing.T) {
	raw := `<p style="color: #ff0000;">a</p><span style="background-color:blue">b</span><i style="color:;">c</i>`
	assert.Equal(t, 3, CountHTMLColors(raw))
	assert.Zero(t, CountHTMLColors("no styles"))
}

func TestAnalyzeWords(t *testing.T) {
	p := newTestParser(t)

	body := "телефон алфванесуществующееслово фоывафываф существует слово cat dog exist word flkdasjflasdf " +
		"html_external_spec number_spec ruble_spec dollar_spec ipohiksefdasf phone_spec url_spec"
	analysis := p.analyzer.AnalyzeWords(body)

	assert.Equal(t, []string{"алфванесуществующееслово", "фоывафываф", "flkdasjflasdf", "ipohiksefdasf"}, analysis.Unknown)
	assert.Equal(t, "телефон алфванесуществующееслов фоывафываф существова слов cat dog exist word "+
		"flkdasjflasdf html_external_spec number_spec ruble_spec dollar_spec ipohiksefdasf phone_spec url_spec",
		analysis.Content())
}

func TestAnalyzeWordsMonths(t *testing.T) {
	p := newTestParser(t)
	analysis := p.analyzer.AnalyzeWords("встреча января december")
	assert.Equal(t, []string{"встреч", "date_month", "date_month"}, analysis.Tokens)
}

func TestParse(t *testing.T) {
	p := newTestParser(t)

	got := p.Parse(`<p>Купите 😀 сейчас</p><a href="http://spam.example">click</a>`)
	assert.Equal(t, "куп сейчас html_external_spec click 😀", got)
	assert.Empty(t, p.Parse("<p>   </p>"))
}

func TestPrepareFeatureInput(t *testing.T) {
	p := newTestParser(t)

	raw := `<p style="color: red;">СКИДКА 50% только сегодня 😀</p><p>звоните 100 раз</p>`
	input, ok := p.PrepareFeatureInput(raw)
	require.True(t, ok)

	words := float64(len(p.analyzer.AnalyzeWords(SeparateEmoji(strings.ToLower(Normalize(raw)))).Tokens))
	require.Positive(t, words)
	assert.InDelta(t, 1/words, input.Info.UppercaseWords, 1e-9)
	assert.InDelta(t, 2/words, input.Info.NumberMarkers, 1e-9)
	assert.Equal(t, 1.0, input.Info.HTMLColors)
	assert.Equal(t, 1.0, input.Info.Emojis)
	assert.InDelta(t, float64(len([]rune(raw)))*2/1024, input.Info.ContentSizeKB, 1e-9)
	assert.Greater(t, input.Info.UnknownRatio, 0.0)
	assert.Less(t, input.Info.UnknownRatio, 1.0)
	assert.NotEmpty(t, input.Body)
}

func TestPrepareFeatureInputRatiosDoNotGrowWithLength(t *testing.T) {
	p := newTestParser(t)

	input, ok := p.PrepareFeatureInput("СКИДКА АКЦИЯ ПРИЗ 100 200 300 400")
	require.True(t, ok)
	assert.InDelta(t, 3.0/7, input.Info.UppercaseWords, 1e-9)
	assert.InDelta(t, 4.0/7, input.Info.NumberMarkers, 1e-9)

	long, ok := p.PrepareFeatureInput(strings.Repeat("СКИДКА АКЦИЯ ПРИЗ 100 200 300 400 ", 20))
	require.True(t, ok)
	assert.InDelta(t, input.Info.UppercaseWords, long.Info.UppercaseWords, 1e-9)
	assert.InDelta(t, input.Info.NumberMarkers, long.Info.NumberMarkers, 1e-9)
	assert.LessOrEqual(t, long.Info.UnknownRatio, 1.0)
}

func TestPrepareFeatureInputEverydayTextIsKnown(t *testing.T) {
	p := newTestParser(t)

	tests := []string{
		"Коллеги, обсудим погоду и бюджет на встрече",
		"Colleagues, the budget meetings start on time",
	}
	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			input, ok := p.PrepareFeatureInput(raw)
			require.True(t, ok)
			assert.Zero(t, input.Info.UnknownRatio)
		})
	}
}

func TestPrepareFeatureInputNoContent(t *testing.T) {
	p := newTestParser(t)

	for _, raw := range []string{"", "<style>p {color: red;}</style>", "  \n "} {
		_, ok := p.PrepareFeatureInput(raw)
		assert.False(t, ok, raw)
	}
}
