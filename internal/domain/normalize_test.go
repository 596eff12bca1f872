package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "lowercases and strips punctuation",
			input: "Machine Learning: A Survey!",
			want:  "machine learning a survey",
		},
		{
			name:  "collapses whitespace runs",
			input: "machine learning   a survey",
			want:  "machine learning a survey",
		},
		{
			name:  "trims leading and trailing space",
			input: "  Attention Is All You Need  ",
			want:  "attention is all you need",
		},
		{
			name:  "preserves digits",
			input: "GPT-4 Technical Report",
			want:  "gpt 4 technical report",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "punctuation only",
			input: "?!...",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTitle(tt.input))
		})
	}
}

func TestNormalizeTitle_Idempotent(t *testing.T) {
	inputs := []string{
		"Machine Learning: A Survey!",
		"machine learning   a survey",
		"Deep Residual Learning for Image Recognition",
	}
	for _, input := range inputs {
		once := NormalizeTitle(input)
		assert.Equal(t, once, NormalizeTitle(once), "normalization must be idempotent for %q", input)
	}
}

func TestNormalizeTitle_CaseAndPunctuationInvariant(t *testing.T) {
	assert.Equal(t,
		NormalizeTitle("Machine Learning: A Survey!"),
		NormalizeTitle("machine learning   a survey"),
	)
}

func TestNormalizeDOI(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "strips https doi.org prefix and lowercases",
			input: "https://doi.org/10.1234/TEST",
			want:  "10.1234/test",
		},
		{
			name:  "strips http doi.org prefix",
			input: "http://doi.org/10.1234/test",
			want:  "10.1234/test",
		},
		{
			name:  "strips dx.doi.org prefix",
			input: "https://dx.doi.org/10.5555/abc",
			want:  "10.5555/abc",
		},
		{
			name:  "strips doi scheme",
			input: "doi:10.1234/Test",
			want:  "10.1234/test",
		},
		{
			name:  "bare doi is lowercased",
			input: "10.1234/TeSt",
			want:  "10.1234/test",
		},
		{
			name:  "whitespace is trimmed",
			input: "  10.1234/test  ",
			want:  "10.1234/test",
		},
		{
			name:  "empty stays empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDOI(tt.input))
		})
	}
}

func TestNormalizeAuthorName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain name", input: "Ada Lovelace", want: "ada lovelace"},
		{name: "last comma first", input: "Lovelace, Ada", want: "ada lovelace"},
		{name: "strips periods", input: "A. M. Turing", want: "a m turing"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeAuthorName(tt.input))
		})
	}
}

func TestYearFromDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{name: "ISO date", input: "2019-03-01", want: 2019},
		{name: "year only", input: "2021", want: 2021},
		{name: "month name date", input: "March 1998", want: 1998},
		{name: "no year", input: "spring issue", want: 0},
		{name: "implausible year ignored", input: "0042", want: 0},
		{name: "empty", input: "", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, YearFromDate(tt.input))
		})
	}
}
