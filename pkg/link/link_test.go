package link

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "stickerdl/pkg/errors"
)

func TestResolveValidForms(t *testing.T) {
	inputs := []string{
		"https://t.me/addstickers/ExamplePack",
		"  https://t.me/addstickers/ExamplePack  ",
		"\thttps://t.me/addstickers/ExamplePack\n",
		"http://t.me/addstickers/ExamplePack",
		"t.me/addstickers/ExamplePack",
		"https://t.me/addstickers/ExamplePack/",
		"https://t.me/addstickers/ExamplePack?utm_source=share",
		"https://t.me/addstickers/ExamplePack#top",
		"https://telegram.me/addstickers/ExamplePack",
		"https://www.t.me/addstickers/ExamplePack",
		"https://telegram.dog/addstickers/ExamplePack",
		"https://T.ME/AddStickers/ExamplePack",
		"https://t.me/addemoji/ExamplePack",
		"tg://addstickers?set=ExamplePack",
		"/addstickers ExamplePack",
		"/addstickers/ExamplePack",
		"ExamplePack",
		"  ExamplePack ",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			name, err := Resolve(input)
			require.NoError(t, err)
			assert.Equal(t, "ExamplePack", name)
		})
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	for _, input := range []string{"https://t.me/addstickers/Animals_by_bot", "Animals_by_bot", "123pack"} {
		first, err := Resolve(input)
		require.NoError(t, err)

		second, err := Resolve(first)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestResolveInvalid(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"hello world",
		"!!!",
		"https://example.com/addstickers/ExamplePack",
		"https://t.me/",
		"https://t.me/addstickers/",
		"https://t.me/joinchat/ExamplePack",
		"https://t.me/addstickers/Example-Pack",
		"https://t.me/addstickers/ExamplePack/extra",
		"ftp://t.me/addstickers/ExamplePack",
		"tg://resolve?domain=ExamplePack",
		"/start",
		"/addstickers",
		"/addstickers one two",
		"a_name_that_is_way_too_long_to_be_a_sticker_set_name_on_telegram_really",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			name, err := Resolve(input)
			require.Error(t, err)
			assert.Empty(t, name)
			assert.True(t, apperrors.IsInvalidInput(err), "want invalid input error, got %v", err)
		})
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"single", "ExamplePack", []string{"ExamplePack"}},
		{"commas", "A, B ,C", []string{"A", "B", "C"}},
		{"newlines", "A\nB\r\nC\n", []string{"A", "B", "C"}},
		{"mixed with blanks", " A,,\n , B ", []string{"A", "B"}},
		{"empty", "  ", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.input))
		})
	}
}
